package serialio

import "github.com/cybroslabs/libserialio-go/efi"

// The driver model has no modem control lines, so both directions are
// permanently unsupported and never reach the device.

func (a *adapter) setControlBits(_ *Protocol, control uint32) efi.Status {
	a.logd("SetControlBits: %#x (unsupported)", control)
	return efi.Unsupported
}

func (a *adapter) getControlBits(_ *Protocol, _ *uint32) efi.Status {
	a.logd("GetControlBits (unsupported)")
	return efi.Unsupported
}
