package serialio

import (
	"fmt"
	"math"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/serial"
)

func translateParity(parity Parity) (serial.Par, error) {
	switch parity {
	case DefaultParity, NoParity:
		return serial.ParNone, nil
	case EvenParity:
		return serial.ParEven, nil
	case OddParity:
		return serial.ParOdd, nil
	}
	return 0, fmt.Errorf("invalid parity value %v: %w", parity, efi.ErrInvalidParameter)
}

func translateStopBits(stopBits StopBits) (serial.Stop, error) {
	switch stopBits {
	case DefaultStopBits, OneStopBit:
		return serial.StopOne, nil
	case OneFiveStopBits:
		return serial.StopOneHalf, nil
	case TwoStopBits:
		return serial.StopTwo, nil
	}
	return 0, fmt.Errorf("invalid stop bits value %v: %w", stopBits, efi.ErrInvalidParameter)
}

func translateDataBits(dataBits uint8) (serial.Bits, error) {
	switch dataBits {
	case 5:
		return serial.Bits5, nil
	case 6:
		return serial.Bits6, nil
	case 7:
		return serial.Bits7, nil
	case 8:
		return serial.Bits8, nil
	}
	return 0, fmt.Errorf("invalid data bits value %d: %w", dataBits, efi.ErrInvalidParameter)
}

// translateConfig maps the protocol line format onto one driver word. No
// word is produced unless all three values are valid.
func translateConfig(parity Parity, dataBits uint8, stopBits StopBits) (uint, error) {
	par, err := translateParity(parity)
	if err != nil {
		return 0, err
	}
	stop, err := translateStopBits(stopBits)
	if err != nil {
		return 0, err
	}
	bits, err := translateDataBits(dataBits)
	if err != nil {
		return 0, err
	}
	return serial.Config(par, bits, stop), nil
}

// setAttributes applies the baud rate first so that a rejected rate leaves
// the line format untouched.
func (a *adapter) setAttributes(baudRate uint64, receiveFifoDepth uint32, timeout uint32, parity Parity, dataBits uint8, stopBits StopBits) error {
	ops, err := a.ops()
	if err != nil {
		return err
	}

	if baudRate > math.MaxInt {
		a.loge("Unable to set serial device baud rate %d: out of range", baudRate)
		return fmt.Errorf("baud rate %d out of range: %w", baudRate, efi.ErrDeviceError)
	}
	if err := ops.SetBRG(int(baudRate)); err != nil {
		a.loge("Unable to set serial device baud rate %d: %v", baudRate, err)
		return fmt.Errorf("set baud rate %d: %w: %w", baudRate, efi.ErrDeviceError, err)
	}

	config, err := translateConfig(parity, dataBits, stopBits)
	if err != nil {
		a.loge("%v", err)
		return err
	}

	if err := ops.SetConfig(config); err != nil {
		a.loge("Unable to set serial device config %s: %v", serial.ConfigString(config), err)
		return fmt.Errorf("set config %s: %w: %w", serial.ConfigString(config), efi.ErrDeviceError, err)
	}

	a.recordMode(baudRate, receiveFifoDepth, timeout, config)
	return nil
}

func (a *adapter) recordMode(baudRate uint64, receiveFifoDepth uint32, timeout uint32, config uint) {
	if receiveFifoDepth == 0 {
		receiveFifoDepth = defaultReceiveFifoDepth
	}
	a.mode.BaudRate = baudRate
	a.mode.ReceiveFifoDepth = receiveFifoDepth
	a.mode.Timeout = timeout
	a.mode.DataBits = uint32(serial.ConfigBits(config).DataBits())
	switch serial.ConfigPar(config) {
	case serial.ParEven:
		a.mode.Parity = EvenParity
	case serial.ParOdd:
		a.mode.Parity = OddParity
	default:
		a.mode.Parity = NoParity
	}
	switch serial.ConfigStop(config) {
	case serial.StopOneHalf:
		a.mode.StopBits = OneFiveStopBits
	case serial.StopTwo:
		a.mode.StopBits = TwoStopBits
	default:
		a.mode.StopBits = OneStopBit
	}
}
