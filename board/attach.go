package board

import (
	"fmt"

	"github.com/cybroslabs/libserialio-go/directserial"
	"github.com/cybroslabs/libserialio-go/rfc2217"
	"github.com/cybroslabs/libserialio-go/serial"
	"github.com/cybroslabs/libserialio-go/tcp"
	"github.com/cybroslabs/libserialio-go/tty"
	"github.com/cybroslabs/libserialio-go/uclass"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Device is an opened driver owned by the board.
type Device interface {
	serial.Ops
	SetLogger(logger *zap.SugaredLogger)
}

type opener interface {
	Open() error
}

// Board keeps opened devices so they can be released at exit.
type Board struct {
	Registry *uclass.Registry
	devices  []Device
	logger   *zap.SugaredLogger
}

func (b *Board) logf(format string, v ...any) {
	if b.logger != nil {
		b.logger.Infof(format, v...)
	}
}

func (b *Board) logw(format string, v ...any) {
	if b.logger != nil {
		b.logger.Warnf(format, v...)
	}
}

// newDevice is swapped in tests.
var newDevice = func(s SerialConfig) (Device, error) {
	switch s.Driver {
	case DriverTTY:
		return tty.New(s.Path, s.Baud), nil
	case DriverRFC2217:
		t, err := tcp.New(s.Address, s.Timeout.Duration)
		if err != nil {
			return nil, err
		}
		return rfc2217.New(t), nil
	case DriverDirect:
		t, err := tcp.New(s.Address, s.Timeout.Duration)
		if err != nil {
			return nil, err
		}
		return directserial.New(t), nil
	}
	return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, s.Driver)
}

// Attach opens every configured serial device and adds the ones that came
// up to a fresh registry in file order. Devices that fail are skipped and
// reported in the combined error; the board is usable either way.
func Attach(cfg *Config, logger *zap.SugaredLogger) (*Board, error) {
	b := &Board{Registry: uclass.NewRegistry(), logger: logger}
	var errs error
	for _, s := range cfg.Serial {
		if err := b.attach(s); err != nil {
			b.logw("serial %s not attached: %v", s.Name, err)
			errs = multierr.Append(errs, fmt.Errorf("serial %s: %w", s.Name, err))
		}
	}
	return b, errs
}

func (b *Board) attach(s SerialConfig) error {
	dev, err := newDevice(s)
	if err != nil {
		return err
	}
	if logger := b.logger; logger != nil {
		dev.SetLogger(logger.With("device", s.Name))
	}
	if o, ok := dev.(opener); ok {
		if err := o.Open(); err != nil {
			_ = b.release(dev)
			return err
		}
	}
	if err := dev.SetBRG(s.Baud); err != nil {
		_ = b.release(dev)
		return fmt.Errorf("set baud rate: %w", err)
	}
	if _, err := b.Registry.Add(uclass.Serial, s.Name, dev); err != nil {
		_ = b.release(dev)
		return err
	}
	b.devices = append(b.devices, dev)
	b.logf("serial %s attached via %s at %d baud", s.Name, s.Driver, s.Baud)
	return nil
}

func (b *Board) release(dev Device) error {
	switch d := dev.(type) {
	case interface{ Close() error }:
		return d.Close()
	case interface{ Disconnect() error }:
		return d.Disconnect()
	}
	return nil
}

// Close releases every attached device.
func (b *Board) Close() error {
	var errs error
	for _, d := range b.devices {
		errs = multierr.Append(errs, b.release(d))
	}
	b.devices = nil
	return errs
}
