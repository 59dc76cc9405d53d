// Package export encodes artifact buffers into portable files.
package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/noise"
)

// ErrEmptyBuffer is returned when there is nothing to encode.
var ErrEmptyBuffer = errors.New("empty buffer")

// WritePNG encodes r as an 8-bit RGBA PNG.
func WritePNG(w io.Writer, r *artifact.Raster) error {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: raster", ErrEmptyBuffer)
	}
	if len(r.Pix) != r.Width*r.Height*noise.Channels {
		return fmt.Errorf("%w: raster has %d values for %dx%d", noise.ErrInvalidShape, len(r.Pix), r.Width, r.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	rgb := r.RGB8()
	for i := range r.Width * r.Height {
		copy(img.Pix[i*4:i*4+3], rgb[i*3:i*3+3])
		img.Pix[i*4+3] = 0xff
	}
	return png.Encode(w, img)
}

const (
	wavHeaderSize = 44
	bitsPerSample = 16
	channels      = 1
)

// WriteWAV encodes wave as mono 16-bit PCM in a RIFF/WAVE container.
func WriteWAV(w io.Writer, wave *artifact.Waveform) error {
	if wave == nil || len(wave.Samples) == 0 {
		return fmt.Errorf("%w: waveform", ErrEmptyBuffer)
	}
	if wave.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", wave.SampleRate)
	}

	dataSize := uint32(len(wave.Samples) * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	hdr := make([]byte, 0, wavHeaderSize)
	hdr = append(hdr, "RIFF"...)
	hdr = le.AppendUint32(hdr, wavHeaderSize-8+dataSize)
	hdr = append(hdr, "WAVEfmt "...)
	hdr = le.AppendUint32(hdr, 16) // fmt chunk size
	hdr = le.AppendUint16(hdr, 1)  // PCM
	hdr = le.AppendUint16(hdr, channels)
	hdr = le.AppendUint32(hdr, uint32(wave.SampleRate))
	hdr = le.AppendUint32(hdr, uint32(wave.SampleRate)*uint32(blockAlign))
	hdr = le.AppendUint16(hdr, blockAlign)
	hdr = le.AppendUint16(hdr, bitsPerSample)
	hdr = append(hdr, "data"...)
	hdr = le.AppendUint32(hdr, dataSize)
	if _, err := bw.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := binary.Write(bw, le, wave.PCM16()); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	return bw.Flush()
}
