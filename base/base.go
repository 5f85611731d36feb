package base

import (
	"time"

	"go.uber.org/zap"
)

// Stream is a byte transport underneath network serial drivers.
type Stream interface {
	Close() error
	Open() error
	Disconnect() error // hard end of connection
	IsOpen() bool
	SetLogger(logger *zap.SugaredLogger)
	SetDeadline(t time.Time) // zero time means no deadline
	GetRxTxBytes() (int64, int64)
	Read(p []byte) (n int, err error)
	Write(src []byte) error // always write everything
}

// Buffered is implemented by streams that can tell whether a Read would be
// served without touching the network.
type Buffered interface {
	Buffered() int
}
