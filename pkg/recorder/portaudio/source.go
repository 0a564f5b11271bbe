// Package portaudio reads microphone input through the PortAudio C library.
package portaudio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/mattsolo1/grove-convo/pkg/recorder"
)

// Source opens the default input device.
type Source struct{}

// NewSource returns a Source for the default input device.
func NewSource() *Source {
	return &Source{}
}

// Open initializes PortAudio and starts a blocking input stream. The library is
// terminated when the stream is closed.
func (Source) Open(sampleRate, channels, framesPerBuffer int) (recorder.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	in := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return &inputStream{stream: stream, in: in}, nil
}

type inputStream struct {
	stream *portaudio.Stream
	in     []int16
}

func (s *inputStream) Read(buf []int16) error {
	// An overflow only means samples were dropped; the buffer still holds fresh input.
	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return err
	}
	copy(buf, s.in)
	return nil
}

func (s *inputStream) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}
