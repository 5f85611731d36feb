package serialio

import (
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/serial"
)

// reset flushes the device FIFOs when the driver can; a driver without a
// clear operation is still a valid device.
func (a *adapter) reset() error {
	ops, err := a.ops()
	if err != nil {
		return err
	}

	clearer, ok := ops.(serial.Clearer)
	if !ok {
		return nil
	}
	if err := clearer.Clear(); err != nil {
		a.loge("Unable to clear serial device: %v", err)
		return fmt.Errorf("clear: %w: %w", efi.ErrDeviceError, err)
	}
	return nil
}
