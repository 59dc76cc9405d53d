package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/chronoscope/internal/config"
	"github.com/lazypower/chronoscope/internal/engine"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/logging"
	"github.com/lazypower/chronoscope/internal/store"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	catalogue  string
	dbPath     string
	verbose    bool

	cfg config.Config
	log *zap.Logger
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("172"))
)

// NewRootCmd builds the chronoscope command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "chronoscope",
		Short: "Tune into the echoes of past epochs",
		Long: `Chronoscope synthesizes images and sounds from historical epochs.
Each epoch is weighted by how far back it lies; nearer, stronger epochs
dominate the blend. The same request and seed always produce the same echo.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ~/.chronoscope/config.toml)")
	pf.StringVar(&a.catalogue, "catalogue", "", "YAML catalogue of extra epochs")
	pf.StringVar(&a.dbPath, "db", "", "Echo ledger database (default ~/.chronoscope/chronoscope.db)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newVersionCmd(),
		a.newServeCmd(),
		a.newEchoCmd(),
		a.newEpochsCmd(),
		a.newHistoryCmd(),
		a.newReplayCmd(),
		a.newStatsCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.catalogue != "" {
		cfg.Epochs.Catalogue = a.catalogue
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	a.log, err = logging.New(cfg.Log, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// registry returns the built-in epochs plus any configured catalogue.
func (a *app) registry() (*epoch.Registry, error) {
	if a.cfg.Epochs.Catalogue == "" {
		return epoch.Default(), nil
	}
	extra, err := epoch.LoadFile(a.cfg.Epochs.Catalogue)
	if err != nil {
		return nil, err
	}
	reg := epoch.NewBuiltin()
	if err := reg.RegisterAll(extra); err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", a.cfg.Epochs.Catalogue, err)
	}
	reg.Seal()
	a.log.Debug("catalogue loaded", zap.String("path", a.cfg.Epochs.Catalogue), zap.Int("epochs", len(extra)))
	return reg, nil
}

func (a *app) engine() (*engine.Engine, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return engine.New(reg, a.cfg, a.log)
}

func (a *app) openDB() (*store.DB, error) {
	path := a.cfg.Database.Path
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func heading(w io.Writer, s string) {
	fmt.Fprintln(w, headingStyle.Render(s))
}
