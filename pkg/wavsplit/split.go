// Package wavsplit cuts PCM WAV files into parts of equal duration.
package wavsplit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for input that is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("not a valid WAV file")

// PartName returns the file name of part i (1-based) of the WAV file named base.
func PartName(file string, i int) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return fmt.Sprintf("%s_part%d.wav", base, i)
}

// Split writes file as parts WAV files of equal duration into outDir and returns their
// paths in order. An empty outDir means the directory of file. The last part takes any
// frames left over by the division.
func Split(file, outDir string, parts int) ([]string, error) {
	if parts < 1 {
		return nil, fmt.Errorf("split %s: parts must be at least 1, got %d", file, parts)
	}
	if outDir == "" {
		outDir = filepath.Dir(file)
	}

	buf, bitDepth, err := decode(file)
	if err != nil {
		return nil, err
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	if frames < parts {
		return nil, fmt.Errorf("split %s: %d frames cannot make %d parts", file, frames, parts)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, parts)
	for i := 0; i < parts; i++ {
		start := i * frames / parts * channels
		end := (i + 1) * frames / parts * channels
		part := &audio.IntBuffer{
			Format:         buf.Format,
			Data:           buf.Data[start:end],
			SourceBitDepth: bitDepth,
		}
		path := filepath.Join(outDir, PartName(file, i+1))
		if err := Write(path, part); err != nil {
			for _, p := range paths {
				_ = os.Remove(p)
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Write encodes buf as a PCM WAV file at path.
func Write(path string, buf *audio.IntBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("finish wav: %w", err)
	}
	return f.Close()
}

func decode(file string) (*audio.IntBuffer, int, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", filepath.Base(file), ErrInvalidWAV)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("%s: %w", filepath.Base(file), ErrInvalidWAV)
	}
	return buf, int(dec.BitDepth), nil
}
