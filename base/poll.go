package base

import (
	"errors"
	"io"
	"time"

	"github.com/cybroslabs/libserialio-go/serial"
)

// PollByte returns one byte if it is already buffered or arrives within
// window, and serial.ErrWouldBlock otherwise.
func PollByte(s Stream, window time.Duration) (byte, error) {
	var b [1]byte
	if bs, ok := s.(Buffered); !ok || bs.Buffered() == 0 {
		s.SetDeadline(time.Now().Add(window))
		defer s.SetDeadline(time.Time{})
	}
	n, err := s.Read(b[:])
	if errors.Is(err, ErrCommunicationTimeout) {
		return 0, serial.ErrWouldBlock
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.ErrNoProgress
	}
	return b[0], nil
}
