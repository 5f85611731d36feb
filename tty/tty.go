// Package tty drives a local serial port through go.bug.st/serial.
package tty

import (
	"errors"
	"fmt"
	"time"

	"github.com/cybroslabs/libserialio-go/base"
	"github.com/cybroslabs/libserialio-go/serial"
	bugst "go.bug.st/serial"
	"go.uber.org/zap"
)

// pollTimeout bounds how long GetC waits for a pending character.
const pollTimeout = time.Millisecond

// Opener opens a port by name; bugst.Open by default.
type Opener func(name string, mode *bugst.Mode) (bugst.Port, error)

type TTY struct {
	name   string
	open   Opener
	port   bugst.Port
	mode   bugst.Mode
	logger *zap.SugaredLogger
}

func (t *TTY) logf(format string, v ...any) {
	if t.logger != nil {
		t.logger.Infof(format, v...)
	}
}

func (t *TTY) logd(format string, v ...any) {
	if t.logger != nil {
		t.logger.Debugf(format, v...)
	}
}

func New(name string, baudRate int) *TTY {
	return NewWithOpener(name, baudRate, bugst.Open)
}

func NewWithOpener(name string, baudRate int, open Opener) *TTY {
	return &TTY{
		name: name,
		open: open,
		mode: bugst.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   bugst.NoParity,
			StopBits: bugst.OneStopBit,
		},
	}
}

func (t *TTY) SetLogger(logger *zap.SugaredLogger) {
	t.logger = logger
}

func (t *TTY) Open() error {
	if t.port != nil {
		return nil
	}
	port, err := t.open(t.name, &t.mode)
	if err != nil {
		t.logf("Open %s failed: %v", t.name, err)
		return fmt.Errorf("open %s: %w", t.name, err)
	}
	if err := port.SetReadTimeout(pollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout on %s: %w", t.name, err)
	}
	t.port = port
	t.logf("Opened %s at %d", t.name, t.mode.BaudRate)
	return nil
}

func (t *TTY) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// SetBRG implements serial.Ops.
func (t *TTY) SetBRG(baudRate int) error {
	if t.port == nil {
		return base.ErrNotOpened
	}
	if baudRate <= 0 {
		return fmt.Errorf("unsupported baud rate %d", baudRate)
	}
	mode := t.mode
	mode.BaudRate = baudRate
	return t.apply(mode)
}

// SetConfig implements serial.Ops.
func (t *TTY) SetConfig(config uint) error {
	if t.port == nil {
		return base.ErrNotOpened
	}
	mode := t.mode
	mode.DataBits = serial.ConfigBits(config).DataBits()
	switch serial.ConfigPar(config) {
	case serial.ParNone:
		mode.Parity = bugst.NoParity
	case serial.ParOdd:
		mode.Parity = bugst.OddParity
	case serial.ParEven:
		mode.Parity = bugst.EvenParity
	default:
		return fmt.Errorf("unsupported parity in %#x", config)
	}
	switch serial.ConfigStop(config) {
	case serial.StopOne:
		mode.StopBits = bugst.OneStopBit
	case serial.StopOneHalf:
		mode.StopBits = bugst.OnePointFiveStopBits
	case serial.StopTwo:
		mode.StopBits = bugst.TwoStopBits
	default:
		return fmt.Errorf("unsupported stop bits in %#x", config)
	}
	return t.apply(mode)
}

func (t *TTY) apply(mode bugst.Mode) error {
	if err := t.port.SetMode(&mode); err != nil {
		return fmt.Errorf("set mode on %s: %w", t.name, err)
	}
	t.mode = mode
	t.logd("%s mode %d/%d", t.name, mode.BaudRate, mode.DataBits)
	return nil
}

// PutC implements serial.Ops.
func (t *TTY) PutC(ch byte) error {
	if t.port == nil {
		return base.ErrNotOpened
	}
	n, err := t.port.Write([]byte{ch})
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("short write")
	}
	return nil
}

// GetC implements serial.Ops. go.bug.st/serial reports an elapsed read
// timeout as a zero length read.
func (t *TTY) GetC() (int, error) {
	var b [1]byte
	if t.port == nil {
		return 0, base.ErrNotOpened
	}
	n, err := t.port.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, serial.ErrWouldBlock
	}
	return int(b[0]), nil
}

// Clear implements serial.Clearer.
func (t *TTY) Clear() error {
	if t.port == nil {
		return base.ErrNotOpened
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return err
	}
	return t.port.ResetOutputBuffer()
}

// Mode returns the line settings last applied to the port.
func (t *TTY) Mode() bugst.Mode {
	return t.mode
}
