package serialio

import (
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/serial"
	"github.com/cybroslabs/libserialio-go/uclass"
)

// Resolver picks the device backing the protocol. It is consulted on every
// call; platforms with special selection rules supply their own.
type Resolver interface {
	Resolve() (*uclass.Device, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func() (*uclass.Device, error)

func (f ResolverFunc) Resolve() (*uclass.Device, error) {
	return f()
}

// ClassResolver returns the first serial device of a registry.
type ClassResolver struct {
	Registry *uclass.Registry
}

func (r ClassResolver) Resolve() (*uclass.Device, error) {
	if r.Registry == nil {
		return nil, fmt.Errorf("no device registry: %w", uclass.ErrNoDevice)
	}
	dev, err := r.Registry.Get(uclass.Serial, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to get serial device: %w", err)
	}
	return dev, nil
}

func (a *adapter) ops() (serial.Ops, error) {
	dev, err := a.resolver.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", efi.ErrDeviceError, err)
	}
	ops, ok := dev.Ops.(serial.Ops)
	if !ok {
		return nil, fmt.Errorf("device %q has no serial ops: %w", dev.Name, efi.ErrDeviceError)
	}
	return ops, nil
}
