// Package artifact defines the immutable output of a synthesis: raster and/or
// waveform buffers plus the provenance needed to reproduce them.
package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/chronoscope/internal/compose"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/noise"
)

var (
	// ErrUnsupportedKind is returned for output kinds other than image, audio or both.
	ErrUnsupportedKind = errors.New("unsupported output kind")

	// ErrMissingBuffer is returned when a kind's buffer was not supplied.
	ErrMissingBuffer = errors.New("missing buffer")
)

// Kind selects which buffers an artifact carries.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindBoth  Kind = "both"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindAudio, KindBoth:
		return true
	}
	return false
}

// WantsImage reports whether k includes a raster.
func (k Kind) WantsImage() bool { return k == KindImage || k == KindBoth }

// WantsAudio reports whether k includes a waveform.
func (k Kind) WantsAudio() bool { return k == KindAudio || k == KindBoth }

// Raster is a Height x Width x 3 field of channel intensities in [0,1], row-major.
type Raster struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Pix    []float64 `json:"-"`
}

// At returns the RGB intensities at (x, y).
func (r *Raster) At(x, y int) [noise.Channels]float64 {
	i := (y*r.Width + x) * noise.Channels
	return [noise.Channels]float64{r.Pix[i], r.Pix[i+1], r.Pix[i+2]}
}

// RGB8 quantizes the raster to 8-bit RGB, row-major.
func (r *Raster) RGB8() []byte {
	out := make([]byte, len(r.Pix))
	for i, v := range r.Pix {
		out[i] = uint8(math.Round(min(max(v, 0), 1) * 255))
	}
	return out
}

// Waveform is an ordered sequence of sample amplitudes in [-1,1].
type Waveform struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float64 `json:"-"`
}

// PCM16 quantizes the waveform to signed 16-bit samples.
func (w *Waveform) PCM16() []int16 {
	out := make([]int16, len(w.Samples))
	for i, v := range w.Samples {
		out[i] = int16(math.Round(min(max(v, -1), 1) * math.MaxInt16))
	}
	return out
}

// Duration is the playback length of the waveform.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// LayerMeta records one epoch's contribution.
type LayerMeta struct {
	Key       string  `json:"key"`
	Label     string  `json:"label,omitempty"`
	Distance  float64 `json:"distance"`
	Intensity float64 `json:"intensity"`
	Weight    float64 `json:"weight"`
	Seed      uint64  `json:"seed"`
}

// Settings are the engine constants in force when the artifact was made.
type Settings struct {
	HalfLife float64        `json:"half_life"`
	Noise    noise.Params   `json:"noise"`
	Compose  compose.Params `json:"compose"`
}

// Metadata is the provenance of an artifact. Everything except ID and
// CreatedAt feeds generation; together with the engine version it fully
// determines the buffers.
type Metadata struct {
	ID            string             `json:"id"`
	Kind          Kind               `json:"kind"`
	Seed          uint64             `json:"seed"`
	Width         int                `json:"width,omitempty"`
	Height        int                `json:"height,omitempty"`
	Samples       int                `json:"samples,omitempty"`
	Layers        []LayerMeta        `json:"layers"`
	Unresolved    bool               `json:"unresolved"`
	Dissolve      float64            `json:"dissolve,omitempty"`
	Settings      Settings           `json:"settings"`
	Soundscapes   []epoch.Soundscape `json:"soundscapes,omitempty"`
	EngineVersion string             `json:"engine_version"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Keys lists the layer epoch keys in blending order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		keys[i] = l.Key
	}
	return keys
}

var idNamespace = uuid.MustParse("5c1d3e2a-8f0b-4c8e-9a57-6b0e7f1d2c44")

// DeriveID returns a stable UUID for the generating parameters of m.
func DeriveID(m Metadata) string {
	m.ID = ""
	m.CreatedAt = time.Time{}
	b, err := json.Marshal(m)
	if err != nil {
		// NaN or Inf slipped into a float field.
		b = fmt.Appendf(nil, "%+v", m)
	}
	return uuid.NewSHA1(idNamespace, b).String()
}

// Artifact is a finished synthesis. Callers own it; nothing mutates it after Emit.
type Artifact struct {
	Meta     Metadata  `json:"meta"`
	Raster   *Raster   `json:"raster,omitempty"`
	Waveform *Waveform `json:"waveform,omitempty"`
}

// Emit packages buffers and provenance into an Artifact. It performs no
// numeric transformation. Buffers not called for by the kind are dropped.
func Emit(meta Metadata, raster *Raster, wave *Waveform) (*Artifact, error) {
	if !meta.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, meta.Kind)
	}

	a := &Artifact{Meta: meta}
	if meta.Kind.WantsImage() {
		if raster == nil {
			return nil, fmt.Errorf("%w: raster for %s", ErrMissingBuffer, meta.Kind)
		}
		a.Raster = raster
	}
	if meta.Kind.WantsAudio() {
		if wave == nil {
			return nil, fmt.Errorf("%w: waveform for %s", ErrMissingBuffer, meta.Kind)
		}
		a.Waveform = wave
	}
	if a.Meta.ID == "" {
		a.Meta.ID = DeriveID(meta)
	}
	return a, nil
}

// Digest is a SHA-256 over the exact buffer contents, hex encoded.
func (a *Artifact) Digest() string {
	h := sha256.New()
	var b [8]byte
	write := func(vs []float64) {
		for _, v := range vs {
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
			h.Write(b[:])
		}
	}
	if a.Raster != nil {
		h.Write([]byte("raster"))
		write(a.Raster.Pix)
	}
	if a.Waveform != nil {
		h.Write([]byte("waveform"))
		write(a.Waveform.Samples)
	}
	return hex.EncodeToString(h.Sum(nil))
}
