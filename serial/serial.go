// Package serial describes the driver model the adapter talks to: a small set
// of per-device operations and the composed line configuration word.
package serial

import (
	"errors"
	"fmt"
)

// ErrWouldBlock is returned by GetC when no character is pending.
var ErrWouldBlock = errors.New("would block")

// Ops is implemented by every serial driver.
type Ops interface {
	SetBRG(baudRate int) error
	SetConfig(config uint) error
	PutC(ch byte) error
	// GetC returns the next received character without waiting, or
	// ErrWouldBlock when the receive queue is empty.
	GetC() (int, error)
}

// Clearer is implemented by drivers able to flush their FIFOs.
type Clearer interface {
	Clear() error
}

type Par uint

const (
	ParNone Par = iota
	ParOdd
	ParEven
)

type Bits uint

const (
	Bits5 Bits = iota
	Bits6
	Bits7
	Bits8
)

type Stop uint

const (
	StopHalf Stop = iota
	StopOne
	StopOneHalf
	StopTwo
)

const (
	parShift  = 0
	parMask   = 0x03 << parShift
	bitsShift = 2
	bitsMask  = 0x03 << bitsShift
	stopShift = 4
	stopMask  = 0x03 << stopShift
)

// DefaultConfig is 8N1.
var DefaultConfig = Config(ParNone, Bits8, StopOne)

// Config composes parity, width and stop bits into one configuration word.
func Config(par Par, bits Bits, stop Stop) uint {
	return uint(par)<<parShift&parMask | uint(bits)<<bitsShift&bitsMask | uint(stop)<<stopShift&stopMask
}

func ConfigPar(config uint) Par {
	return Par(config & parMask >> parShift)
}

func ConfigBits(config uint) Bits {
	return Bits(config & bitsMask >> bitsShift)
}

func ConfigStop(config uint) Stop {
	return Stop(config & stopMask >> stopShift)
}

// DataBits returns the character width, 5 to 8.
func (b Bits) DataBits() int {
	return int(b) + 5
}

func (p Par) String() string {
	switch p {
	case ParNone:
		return "none"
	case ParOdd:
		return "odd"
	case ParEven:
		return "even"
	}
	return fmt.Sprintf("par(%d)", uint(p))
}

func (s Stop) String() string {
	switch s {
	case StopHalf:
		return "0.5"
	case StopOne:
		return "1"
	case StopOneHalf:
		return "1.5"
	case StopTwo:
		return "2"
	}
	return fmt.Sprintf("stop(%d)", uint(s))
}

// ConfigString renders a word as e.g. "8/none/1".
func ConfigString(config uint) string {
	return fmt.Sprintf("%d/%v/%v", ConfigBits(config).DataBits(), ConfigPar(config), ConfigStop(config))
}
