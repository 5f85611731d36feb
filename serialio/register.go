package serialio

import (
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/uclass"
	"go.uber.org/zap"
)

type adapter struct {
	resolver Resolver
	mode     *Mode

	logger *zap.SugaredLogger
}

func (a *adapter) logf(format string, v ...any) {
	if a.logger != nil {
		a.logger.Infof(format, v...)
	}
}

func (a *adapter) logd(format string, v ...any) {
	if a.logger != nil {
		a.logger.Debugf(format, v...)
	}
}

func (a *adapter) logw(format string, v ...any) {
	if a.logger != nil {
		a.logger.Warnf(format, v...)
	}
}

func (a *adapter) loge(format string, v ...any) {
	if a.logger != nil {
		a.logger.Errorf(format, v...)
	}
}

// Option configures Register.
type Option func(*adapter)

// WithResolver replaces the default device selection.
func WithResolver(r Resolver) Option {
	return func(a *adapter) {
		a.resolver = r
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(a *adapter) {
		a.logger = logger
	}
}

func (a *adapter) protocol() *Protocol {
	return &Protocol{
		Revision: Revision,
		Reset: func(_ *Protocol) efi.Status {
			return efi.StatusOf(a.reset())
		},
		SetAttributes: func(_ *Protocol, baudRate uint64, receiveFifoDepth uint32, timeout uint32, parity Parity, dataBits uint8, stopBits StopBits) efi.Status {
			return efi.StatusOf(a.setAttributes(baudRate, receiveFifoDepth, timeout, parity, dataBits, stopBits))
		},
		SetControlBits: a.setControlBits,
		GetControlBits: a.getControlBits,
		Write: func(_ *Protocol, bufferSize *uint64, buffer []byte) efi.Status {
			return efi.StatusOf(a.write(bufferSize, buffer))
		},
		Read: func(_ *Protocol, bufferSize *uint64, buffer []byte) efi.Status {
			return efi.StatusOf(a.read(bufferSize, buffer))
		},
		Mode: a.mode,
	}
}

// Register installs the Serial I/O protocol on the root handle of dir,
// backed by the first serial device of reg unless WithResolver says
// otherwise. Without a serial device nothing is installed and nil is
// returned. It must be called once per directory; the protocol is reachable
// afterwards only through dir.LocateProtocol(Guid).
func Register(dir *efi.Directory, reg *uclass.Registry, opts ...Option) error {
	a := &adapter{
		resolver: ClassResolver{Registry: reg},
		mode:     defaultMode(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.resolver == nil {
		return fmt.Errorf("no resolver: %w", efi.ErrInvalidParameter)
	}

	dev, err := a.resolver.Resolve()
	if err != nil {
		a.logw("No serial device found for Serial I/O protocol: %v", err)
		return nil
	}

	if err := dir.AddProtocol(efi.Root, Guid, a.protocol()); err != nil {
		a.loge("Failed to add Serial I/O protocol: %v", err)
		return fmt.Errorf("%w: %w", efi.ErrRegistration, err)
	}

	a.logf("Registered Serial I/O protocol for device %s", dev.Name)
	return nil
}
