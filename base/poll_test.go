package base

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cybroslabs/libserialio-go/serial"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStream struct {
	data      []byte
	err       error
	deadlines []time.Time
	buffered  int
}

func (f *fakeStream) Close() error                 { return nil }
func (f *fakeStream) Open() error                  { return nil }
func (f *fakeStream) Disconnect() error            { return nil }
func (f *fakeStream) IsOpen() bool                 { return true }
func (f *fakeStream) SetLogger(*zap.SugaredLogger) {}
func (f *fakeStream) SetDeadline(t time.Time)      { f.deadlines = append(f.deadlines, t) }
func (f *fakeStream) GetRxTxBytes() (int64, int64) { return 0, 0 }
func (f *fakeStream) Write([]byte) error           { return nil }
func (f *fakeStream) Buffered() int                { return f.buffered }

func (f *fakeStream) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		return 0, ErrCommunicationTimeout
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestPollByte(t *testing.T) {
	s := &fakeStream{data: []byte{0x42}}
	b, err := PollByte(s, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)
	require.Len(t, s.deadlines, 2)
	require.True(t, s.deadlines[1].IsZero())

	_, err = PollByte(s, time.Millisecond)
	require.ErrorIs(t, err, serial.ErrWouldBlock)

	s.err = io.EOF
	_, err = PollByte(s, time.Millisecond)
	require.True(t, errors.Is(err, io.EOF))
}

func TestPollByteBufferedSkipsDeadline(t *testing.T) {
	s := &fakeStream{data: []byte{1}, buffered: 1}
	_, err := PollByte(s, time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, s.deadlines)
}
