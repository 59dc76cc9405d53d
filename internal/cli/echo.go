package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/client"
	"github.com/lazypower/chronoscope/internal/engine"
	"github.com/lazypower/chronoscope/internal/export"
	"github.com/lazypower/chronoscope/internal/store"
)

type echoOptions struct {
	epochs   []string
	kind     string
	width    int
	height   int
	samples  int
	seconds  float64
	seed     uint64
	count    int
	out      string
	noRecord bool
	server   string
}

func (a *app) newEchoCmd() *cobra.Command {
	var o echoOptions
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Synthesize an echo from one or more epochs",
		Example: `  chronoscope echo -e belle_epoque -e interwar --seed 42
  chronoscope echo -e present --kind audio --seconds 10 --out ./echoes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEcho(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&o.epochs, "epoch", "e", nil, "Epoch key to tune into (repeatable)")
	f.StringVarP(&o.kind, "kind", "k", string(artifact.KindBoth), "Output kind: image, audio or both")
	f.IntVar(&o.width, "width", 256, "Image width in pixels")
	f.IntVar(&o.height, "height", 192, "Image height in pixels")
	f.IntVar(&o.samples, "samples", 0, "Audio length in samples (overrides --seconds)")
	f.Float64Var(&o.seconds, "seconds", 4, "Audio length in seconds")
	f.Uint64Var(&o.seed, "seed", 0, "Seed; omitted means random")
	f.IntVarP(&o.count, "count", "n", 1, "Number of echoes; with --seed they use consecutive seeds")
	f.StringVarP(&o.out, "out", "o", ".", "Directory for the PNG and WAV files")
	f.BoolVar(&o.noRecord, "no-record", false, "Do not record echoes in the ledger")
	f.StringVar(&o.server, "server", "", "Synthesize on a running chronoscope server at this URL")
	cmd.MarkFlagRequired("epoch")
	return cmd
}

func (a *app) runEcho(cmd *cobra.Command, o echoOptions) error {
	if o.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	samples := o.samples
	if samples == 0 {
		samples = int(o.seconds * float64(a.cfg.Noise.SampleRate))
	}
	seeded := cmd.Flags().Changed("seed")

	reqs := make([]engine.Request, o.count)
	for i := range reqs {
		reqs[i] = engine.Request{
			EpochKeys: o.epochs,
			Kind:      artifact.Kind(o.kind),
			Width:     o.width,
			Height:    o.height,
			Samples:   samples,
		}
		if seeded {
			reqs[i].Seed = engine.Seed(o.seed + uint64(i))
		}
	}

	if o.server != "" {
		return a.runRemoteEcho(cmd, o, reqs)
	}

	eng, err := a.engine()
	if err != nil {
		return err
	}
	var db *store.DB
	if !o.noRecord {
		if db, err = a.openDB(); err != nil {
			return err
		}
		defer db.Close()
	}

	arts, errs := eng.Batch(cmd.Context(), reqs, 0)
	w := cmd.OutOrStdout()
	var failed []error
	for i, art := range arts {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		files, err := writeArtifact(o.out, art)
		if err != nil {
			return err
		}
		if db != nil {
			if _, err := db.SaveArtifact(art); err != nil {
				a.log.Warn("record echo", zap.String("id", art.Meta.ID), zap.Error(err))
			}
		}
		printEcho(w, art.Meta, files)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s: %w", engine.ErrorKind(failed[0]), errors.Join(failed...))
	}
	return nil
}

// writeArtifact saves the artifact's buffers as <id>.png and <id>.wav.
func writeArtifact(dir string, a *artifact.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var files []string
	if a.Raster != nil {
		path := filepath.Join(dir, a.Meta.ID+".png")
		if err := writeFile(path, func(w io.Writer) error { return export.WritePNG(w, a.Raster) }); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if a.Waveform != nil {
		path := filepath.Join(dir, a.Meta.ID+".wav")
		if err := writeFile(path, func(w io.Writer) error { return export.WriteWAV(w, a.Waveform) }); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := encode(bw); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// runRemoteEcho sends each request to a server, which records it, and
// downloads the outputs.
func (a *app) runRemoteEcho(cmd *cobra.Command, o echoOptions, reqs []engine.Request) error {
	c := client.New(o.server)
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	for _, req := range reqs {
		e, err := c.Synthesize(ctx, req)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(o.out, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		var files []string
		for _, out := range []struct{ link, ext string }{{"image", ".png"}, {"audio", ".wav"}} {
			link, ok := e.Links[out.link]
			if !ok {
				continue
			}
			path := filepath.Join(o.out, e.Meta.ID+out.ext)
			if err := writeFile(path, func(w io.Writer) error { return c.Download(ctx, link, w) }); err != nil {
				return err
			}
			files = append(files, path)
		}
		a.log.Debug("remote echo", zap.String("server", c.URL()), zap.String("id", e.Meta.ID))
		printEcho(w, e.Meta, files)
	}
	return nil
}

func printEcho(w io.Writer, meta artifact.Metadata, files []string) {
	heading(w, "echo "+meta.ID)
	fmt.Fprintf(w, "  seed %d", meta.Seed)
	if meta.Unresolved {
		fmt.Fprint(w, "  ", warnStyle.Render("unresolved: only the ambient bed came through"))
	}
	if meta.Dissolve > 0 {
		fmt.Fprintf(w, "  dissolve %.0f%%", meta.Dissolve*100)
	}
	fmt.Fprintln(w)
	for _, l := range meta.Layers {
		fmt.Fprintf(w, "  %-22s weight %.6g\n", l.Key, l.Weight)
	}
	for _, path := range files {
		size := ""
		if fi, err := os.Stat(path); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		fmt.Fprintf(w, "  %s %s\n", path, dimStyle.Render(size))
	}
}
