package rfc2217

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/cybroslabs/libserialio-go/base"
	"github.com/cybroslabs/libserialio-go/serial"
	"go.uber.org/zap"
)

const (
	COM_PORT_OPTION = 44 // 0x2c
	BINARY_OPTION   = 0
	SGA_OPTION      = 3

	IAC = 255
	SB  = 250 // 0xfa
	SE  = 240 // 0xf0

	WILL = 251 // 0xfb
	WONT = 252 // 0xfc
	DO   = 253 // 0xfd
	DONT = 254 // 0xfe

	Signature = "Serial-IO-Adapter"

	// client to server com port commands, server replies add 100
	cmdSignature = 0
	cmdBaudRate  = 1
	cmdDataSize  = 2
	cmdParity    = 3
	cmdStopSize  = 4
	cmdControl   = 5
	cmdPurgeData = 12

	purgeBoth = 3

	pollWindow = time.Millisecond
)

// Serial is a serial driver talking to an RFC 2217 access server.
type Serial struct {
	transport   base.Stream // usually tcp
	isopen      bool
	writebuffer []byte

	// values reported by the server
	baudrate   int
	databits   int
	parity     int
	stopbits   int
	control    int
	linestate  byte
	modemstate byte

	logger *zap.SugaredLogger
}

func (r *Serial) logf(format string, v ...any) {
	if r.logger != nil {
		r.logger.Infof(format, v...)
	}
}

func (r *Serial) logd(format string, v ...any) {
	if r.logger != nil {
		r.logger.Debugf(format, v...)
	}
}

func (r *Serial) SetLogger(logger *zap.SugaredLogger) {
	r.logger = logger
	r.transport.SetLogger(logger)
}

// Disconnect drops the underlying connection.
func (r *Serial) Disconnect() error {
	r.isopen = false
	return r.transport.Disconnect()
}

// Open connects and negotiates binary mode, suppress go ahead and the com
// port option, then asks the server for its current line settings.
func (r *Serial) Open() error {
	if r.isopen {
		return nil
	}

	if err := r.transport.Open(); err != nil {
		return err
	}

	r.logf("negotiating telnet options")
	r.writebuffer = r.writeOption(r.writebuffer[:0], BINARY_OPTION, WILL)
	r.writebuffer = r.writeOption(r.writebuffer, SGA_OPTION, WILL)
	r.writebuffer = r.writeOption(r.writebuffer, COM_PORT_OPTION, WILL)
	r.writebuffer = r.writeSignature(r.writebuffer)

	cmd := []byte{0, 0, 0, 0}
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdBaudRate, cmd[:])
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdDataSize, cmd[:1])
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdParity, cmd[:1])
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdStopSize, cmd[:1])
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdControl, cmd[:1])

	if err := r.transport.Write(r.writebuffer); err != nil {
		return fmt.Errorf("telnet negotiation failed: %w", err)
	}
	r.isopen = true
	return nil
}

func (r *Serial) writeOption(src []byte, option byte, intent byte) []byte {
	return append(src, IAC, intent, option)
}

func (r *Serial) writeSignature(src []byte) []byte {
	src = append(src, IAC, SB, COM_PORT_OPTION, cmdSignature)
	src = append(src, Signature...)
	return append(src, IAC, SE)
}

func (r *Serial) writeSubnegotiation(src []byte, cmd byte, value []byte) []byte {
	src = append(src, IAC, SB, COM_PORT_OPTION, cmd)
	for _, b := range value {
		if b == IAC {
			src = append(src, IAC)
		}
		src = append(src, b)
	}
	return append(src, IAC, SE)
}

func (r *Serial) getCode() (byte, error) {
	var code [1]byte
	_, err := io.ReadFull(r.transport, code[:])
	if err != nil {
		return 0, err
	}
	return code[0], nil
}

func (r *Serial) processCommand(cmd byte) (err error) {
	var code byte
	switch cmd {
	case WILL:
		code, err = r.getCode()
		if err != nil {
			return err
		}
		switch code {
		case BINARY_OPTION, SGA_OPTION, COM_PORT_OPTION:
		default:
			r.logf("other party has intent to do %v", code)
			return fmt.Errorf("unsupported com state")
		}
	case WONT:
		code, err = r.getCode()
		if err != nil {
			return err
		}
		switch code {
		case BINARY_OPTION, SGA_OPTION, COM_PORT_OPTION:
			r.logf("other party doesnt support mandatory option %v", code)
			return fmt.Errorf("unsupported mandatory option")
		default:
			r.logf("other party has intent not to do %v", code)
		}
	case DO:
		code, err = r.getCode()
		if err != nil {
			return err
		}
		switch code {
		case BINARY_OPTION, SGA_OPTION, COM_PORT_OPTION:
		default:
			r.logf("other party has intent to do %v", code)
			return r.transport.Write([]byte{IAC, WONT, code})
		}
	case DONT:
		code, err = r.getCode()
		if err != nil {
			return err
		}
		switch code {
		case BINARY_OPTION, SGA_OPTION, COM_PORT_OPTION:
			r.logf("other party doesnt want mandatory option %v", code)
			return fmt.Errorf("unsupported mandatory option")
		default:
			r.logf("other party has intent not to do %v", code)
			return r.transport.Write([]byte{IAC, WONT, code})
		}
	case SB:
		return r.handleSubnegotiation()
	default:
		r.logf("unknown/unsupported command: %02x", cmd)
	}
	return nil
}

func (r *Serial) handleSubnegotiation() error {
	var buffer [1024]byte // maximum size of subnegotiation command
	offset := 0
	riac := false
	for {
		if offset >= len(buffer) {
			return fmt.Errorf("subnegotiation buffer overflow")
		}

		b, err := r.getCode()
		if err != nil {
			return err
		}
		if riac {
			switch b {
			case IAC:
				buffer[offset] = IAC
				offset++
				riac = false
			case SE:
				return r.processSubnegotiation(buffer[:offset])
			default:
				return fmt.Errorf("invalid subnegotiation command")
			}
		} else if b == IAC {
			riac = true
		} else {
			buffer[offset] = b
			offset++
		}
	}
}

func (r *Serial) processSubnegotiation(sub []byte) error {
	if len(sub) < 2 {
		return fmt.Errorf("subnegotiation too short")
	}
	if sub[0] != COM_PORT_OPTION {
		return fmt.Errorf("unsupported subnegotiation option %02x", sub[0])
	}
	sub = sub[1:]
	switch sub[0] {
	case 100 + cmdSignature:
		if len(sub) == 1 {
			r.writebuffer = r.writeSignature(r.writebuffer[:0])
			return r.transport.Write(r.writebuffer)
		}
		r.logf("signature: \"%s\"", strings.Trim(string(sub[1:]), "\x00 \n\r\t"))
	case 100 + cmdBaudRate:
		if len(sub) != 5 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.baudrate = int(binary.BigEndian.Uint32(sub[1:]))
		r.logd("reported baudrate: %d", r.baudrate)
	case 100 + cmdDataSize:
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.databits = int(sub[1])
		r.logd("reported data bits: %d", r.databits)
	case 100 + cmdParity:
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.parity = int(sub[1])
		r.logd("reported parity: %d", r.parity)
	case 100 + cmdStopSize:
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.stopbits = int(sub[1])
		r.logd("reported stop bits: %d", r.stopbits)
	case 100 + cmdControl:
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.control = int(sub[1])
		r.logd("reported control: %d", r.control)
	case 106: // notify line state
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.linestate = sub[1]
		r.logd("reported line state: %02x", r.linestate)
	case 107: // notify modem state
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.modemstate = sub[1]
		r.logd("reported modem state: %02x", r.modemstate)
	case 108, 109: // flow control suspend, flow control resume
		r.logd("flow control notification: %d", sub[0])
	case 110, 111, 100 + cmdPurgeData: // line state mask, modem state mask, purge data
		if len(sub) != 2 {
			return fmt.Errorf("invalid subnegotiation length")
		}
		r.logd("access server notification: %d with data %02x", sub[0], sub[1])
	default:
		return fmt.Errorf("unsupported subnegotiation command %02x", sub[0])
	}
	return nil
}

// SetBRG implements serial.Ops.
func (r *Serial) SetBRG(baudRate int) error {
	var cmd [4]byte
	if !r.isopen {
		return base.ErrNotOpened
	}
	if baudRate <= 0 || uint64(baudRate) > math.MaxUint32 {
		return fmt.Errorf("unsupported baud rate %d", baudRate)
	}

	binary.BigEndian.PutUint32(cmd[:], uint32(baudRate))
	r.writebuffer = r.writeSubnegotiation(r.writebuffer[:0], cmdBaudRate, cmd[:])
	return r.transport.Write(r.writebuffer)
}

// SetConfig implements serial.Ops.
func (r *Serial) SetConfig(config uint) error {
	if !r.isopen {
		return base.ErrNotOpened
	}
	s, ok := base.DecodeConfig(config)
	if !ok {
		return fmt.Errorf("unsupported line format %s", serial.ConfigString(config))
	}

	r.writebuffer = r.writeSubnegotiation(r.writebuffer[:0], cmdDataSize, []byte{byte(s.DataBits)})
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdParity, []byte{byte(s.Parity)})
	r.writebuffer = r.writeSubnegotiation(r.writebuffer, cmdStopSize, []byte{byte(s.StopBits)})
	return r.transport.Write(r.writebuffer)
}

// Clear implements serial.Clearer by asking the server to purge both
// directions.
func (r *Serial) Clear() error {
	if !r.isopen {
		return base.ErrNotOpened
	}

	r.writebuffer = r.writeSubnegotiation(r.writebuffer[:0], cmdPurgeData, []byte{purgeBoth})
	return r.transport.Write(r.writebuffer)
}

// PutC implements serial.Ops.
func (r *Serial) PutC(ch byte) error {
	if !r.isopen {
		return base.ErrNotOpened
	}
	if ch == IAC {
		return r.transport.Write([]byte{IAC, IAC})
	}
	return r.transport.Write([]byte{ch})
}

// GetC implements serial.Ops. Telnet commands in front of the next data
// byte are consumed on the way.
func (r *Serial) GetC() (int, error) {
	if !r.isopen {
		return 0, base.ErrNotOpened
	}

	for {
		b, err := base.PollByte(r.transport, pollWindow)
		if err != nil {
			return 0, err
		}
		if b != IAC {
			return int(b), nil
		}
		// the rest of an escape sequence is already on its way
		b, err = r.getCode()
		if err != nil {
			return 0, err
		}
		if b == IAC {
			return IAC, nil
		}
		if err = r.processCommand(b); err != nil {
			return 0, err
		}
	}
}

// Reported returns the line settings the server last announced.
func (r *Serial) Reported() (baudrate, databits, parity, stopbits int) {
	return r.baudrate, r.databits, r.parity, r.stopbits
}

func New(t base.Stream) *Serial {
	return &Serial{
		transport:   t,
		writebuffer: make([]byte, 0, 1024),
	}
}
