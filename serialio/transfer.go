package serialio

import (
	"errors"
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/serial"
)

func checkBuffer(bufferSize *uint64, buffer []byte) error {
	if bufferSize == nil || *bufferSize == 0 || len(buffer) == 0 {
		return efi.ErrInvalidParameter
	}
	return nil
}

// write sends buffer[0] only and reports one byte transferred.
func (a *adapter) write(bufferSize *uint64, buffer []byte) error {
	if err := checkBuffer(bufferSize, buffer); err != nil {
		return err
	}

	ops, err := a.ops()
	if err != nil {
		return err
	}

	if err := ops.PutC(buffer[0]); err != nil {
		a.loge("Unable to write to serial device: %v", err)
		return fmt.Errorf("put char: %w: %w", efi.ErrDeviceError, err)
	}
	*bufferSize = 1
	return nil
}

// read polls for one byte. An empty queue sets *bufferSize to 0 and
// returns efi.ErrTimeout.
func (a *adapter) read(bufferSize *uint64, buffer []byte) error {
	if err := checkBuffer(bufferSize, buffer); err != nil {
		return err
	}

	ops, err := a.ops()
	if err != nil {
		return err
	}

	ch, err := ops.GetC()
	if errors.Is(err, serial.ErrWouldBlock) {
		*bufferSize = 0
		return efi.ErrTimeout
	}
	if err != nil {
		a.loge("Unable to read from serial device: %v", err)
		return fmt.Errorf("get char: %w: %w", efi.ErrDeviceError, err)
	}
	if ch < 0 || ch > 0xff {
		a.loge("Unable to read from serial device: value %d out of range", ch)
		return fmt.Errorf("get char returned %d: %w", ch, efi.ErrDeviceError)
	}

	buffer[0] = byte(ch & 0xff)
	*bufferSize = 1
	return nil
}
