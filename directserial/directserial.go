package directserial

import (
	"time"

	"github.com/cybroslabs/libserialio-go/base"
	"github.com/cybroslabs/libserialio-go/serial"
	"go.uber.org/zap"
)

const pollWindow = time.Millisecond

// DirectSerial is a serial driver on top of a raw byte stream, usually tcp
// to a transparent serial server. Line settings are owned by the server, so
// they are accepted and ignored here.
type DirectSerial struct {
	transport base.Stream

	baudrate int
	config   uint

	logger *zap.SugaredLogger
}

func (r *DirectSerial) logf(format string, v ...any) {
	if r.logger != nil {
		r.logger.Infof(format, v...)
	}
}

func (r *DirectSerial) Open() error {
	return r.transport.Open()
}

func (r *DirectSerial) Disconnect() error {
	return r.transport.Disconnect()
}

func (r *DirectSerial) SetLogger(logger *zap.SugaredLogger) {
	r.logger = logger
	r.transport.SetLogger(logger)
}

// SetBRG implements serial.Ops.
func (r *DirectSerial) SetBRG(baudRate int) error {
	if !r.transport.IsOpen() {
		return base.ErrNotOpened
	}

	r.logf("SetBRG: %d (ignoring)", baudRate)
	r.baudrate = baudRate
	return nil
}

// SetConfig implements serial.Ops.
func (r *DirectSerial) SetConfig(config uint) error {
	if !r.transport.IsOpen() {
		return base.ErrNotOpened
	}

	r.logf("SetConfig: %s (ignoring)", serial.ConfigString(config))
	r.config = config
	return nil
}

// PutC implements serial.Ops.
func (r *DirectSerial) PutC(ch byte) error {
	if !r.transport.IsOpen() {
		return base.ErrNotOpened
	}

	return r.transport.Write([]byte{ch})
}

// GetC implements serial.Ops.
func (r *DirectSerial) GetC() (int, error) {
	if !r.transport.IsOpen() {
		return 0, base.ErrNotOpened
	}

	b, err := base.PollByte(r.transport, pollWindow)
	if err != nil {
		return 0, err
	}
	return int(b), nil
}

// Settings returns what the last SetBRG and SetConfig asked for.
func (r *DirectSerial) Settings() (int, uint) {
	return r.baudrate, r.config
}

func New(t base.Stream) *DirectSerial {
	return &DirectSerial{
		transport: t,
		config:    serial.DefaultConfig,
	}
}
