// Package serialio publishes a serial device as a Serial I/O protocol in an
// efi.Directory.
//
// The protocol moves at most one byte per Read or Write call. Callers that
// request more get *bufferSize set to the count actually transferred, which
// is always 1 on success; this mirrors what the driver model can do
// atomically and is part of the protocol contract. Read never waits: an
// empty receive queue is reported as efi.Timeout and callers poll again.
package serialio

import (
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
)

// Guid identifies the Serial I/O protocol in the directory.
var Guid = efi.MustParseGUID("BB25CF6F-F1D4-11D2-9A0C-0090273FC1FD")

const Revision uint32 = 1

type Parity uint32

const (
	DefaultParity Parity = iota
	NoParity
	EvenParity
	OddParity
	MarkParity
	SpaceParity
)

func (p Parity) String() string {
	switch p {
	case DefaultParity:
		return "default"
	case NoParity:
		return "none"
	case EvenParity:
		return "even"
	case OddParity:
		return "odd"
	case MarkParity:
		return "mark"
	case SpaceParity:
		return "space"
	}
	return fmt.Sprintf("parity(%d)", uint32(p))
}

type StopBits uint32

const (
	DefaultStopBits StopBits = iota
	OneStopBit
	OneFiveStopBits
	TwoStopBits
)

func (s StopBits) String() string {
	switch s {
	case DefaultStopBits:
		return "default"
	case OneStopBit:
		return "1"
	case OneFiveStopBits:
		return "1.5"
	case TwoStopBits:
		return "2"
	}
	return fmt.Sprintf("stopbits(%d)", uint32(s))
}

// Control line bits.
const (
	DataTerminalReady         uint32 = 0x0001
	RequestToSend             uint32 = 0x0002
	ClearToSend               uint32 = 0x0010
	DataSetReady              uint32 = 0x0020
	RingIndicate              uint32 = 0x0040
	CarrierDetect             uint32 = 0x0080
	InputBufferEmpty          uint32 = 0x0100
	OutputBufferEmpty         uint32 = 0x0200
	HardwareLoopbackEnable    uint32 = 0x1000
	SoftwareLoopbackEnable    uint32 = 0x2000
	HardwareFlowControlEnable uint32 = 0x4000
)

const (
	defaultControlMask      uint32 = 0x3f
	defaultReceiveFifoDepth uint32 = 1
	defaultBaudRate         uint64 = 115200
	defaultDataBits         uint32 = 8
)

// Mode describes the line settings last applied through SetAttributes, or
// the defaults when none were applied yet. It is informational; the driver
// holds the live configuration, and settings applied to the driver directly
// (for example a board's initial baud rate) do not show up here.
type Mode struct {
	ControlMask      uint32
	Timeout          uint32
	BaudRate         uint64
	ReceiveFifoDepth uint32
	DataBits         uint32
	Parity           Parity
	StopBits         StopBits
}

func defaultMode() *Mode {
	return &Mode{
		ControlMask:      defaultControlMask,
		Timeout:          0,
		BaudRate:         defaultBaudRate,
		ReceiveFifoDepth: defaultReceiveFifoDepth,
		DataBits:         defaultDataBits,
		Parity:           NoParity,
		StopBits:         OneStopBit,
	}
}

// Protocol is the published function table. Every function takes the
// protocol itself as first argument.
type Protocol struct {
	Revision       uint32
	Reset          func(this *Protocol) efi.Status
	SetAttributes  func(this *Protocol, baudRate uint64, receiveFifoDepth uint32, timeout uint32, parity Parity, dataBits uint8, stopBits StopBits) efi.Status
	SetControlBits func(this *Protocol, control uint32) efi.Status
	GetControlBits func(this *Protocol, control *uint32) efi.Status
	Write          func(this *Protocol, bufferSize *uint64, buffer []byte) efi.Status
	Read           func(this *Protocol, bufferSize *uint64, buffer []byte) efi.Status

	Mode *Mode
}
