package base

import "github.com/cybroslabs/libserialio-go/serial"

// Line setting codes as carried on the wire by RFC 2217 access servers.
type SerialDataBits int
type SerialParity int
type SerialStopBits int

const (
	Serial5DataBits          SerialDataBits = 5
	Serial6DataBits          SerialDataBits = 6
	Serial7DataBits          SerialDataBits = 7
	Serial8DataBits          SerialDataBits = 8
	SerialNoParity           SerialParity   = 1
	SerialOddParity          SerialParity   = 2
	SerialEvenParity         SerialParity   = 3
	SerialMarkParity         SerialParity   = 4
	SerialSpaceParity        SerialParity   = 5
	SerialOneStopBit         SerialStopBits = 1
	SerialTwoStopBits        SerialStopBits = 2
	SerialOneAndHalfStopBits SerialStopBits = 3
)

// SerialSettings is a decoded driver configuration word.
type SerialSettings struct {
	DataBits SerialDataBits
	Parity   SerialParity
	StopBits SerialStopBits
}

// DecodeConfig converts a driver configuration word. Half stop bits have no
// wire code and report ok == false.
func DecodeConfig(config uint) (s SerialSettings, ok bool) {
	s.DataBits = SerialDataBits(serial.ConfigBits(config).DataBits())
	switch serial.ConfigPar(config) {
	case serial.ParNone:
		s.Parity = SerialNoParity
	case serial.ParOdd:
		s.Parity = SerialOddParity
	case serial.ParEven:
		s.Parity = SerialEvenParity
	default:
		return s, false
	}
	switch serial.ConfigStop(config) {
	case serial.StopOne:
		s.StopBits = SerialOneStopBit
	case serial.StopOneHalf:
		s.StopBits = SerialOneAndHalfStopBits
	case serial.StopTwo:
		s.StopBits = SerialTwoStopBits
	default:
		return s, false
	}
	return s, true
}
