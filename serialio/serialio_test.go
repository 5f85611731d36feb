package serialio

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/serial"
	"github.com/cybroslabs/libserialio-go/uclass"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"k8s.io/utils/ptr"
)

type getcResult struct {
	ch  int
	err error
}

type spyOps struct {
	calls   int
	baud    []int
	configs []uint
	put     []byte
	getc    []getcResult

	brgErr    error
	configErr error
	putErr    error
}

func (s *spyOps) SetBRG(baudRate int) error {
	s.calls++
	if s.brgErr != nil {
		return s.brgErr
	}
	s.baud = append(s.baud, baudRate)
	return nil
}

func (s *spyOps) SetConfig(config uint) error {
	s.calls++
	if s.configErr != nil {
		return s.configErr
	}
	s.configs = append(s.configs, config)
	return nil
}

func (s *spyOps) PutC(ch byte) error {
	s.calls++
	if s.putErr != nil {
		return s.putErr
	}
	s.put = append(s.put, ch)
	return nil
}

func (s *spyOps) GetC() (int, error) {
	s.calls++
	if len(s.getc) == 0 {
		return 0, serial.ErrWouldBlock
	}
	r := s.getc[0]
	s.getc = s.getc[1:]
	return r.ch, r.err
}

type clearingOps struct {
	spyOps
	cleared  int
	clearErr error
}

func (c *clearingOps) Clear() error {
	c.cleared++
	return c.clearErr
}

func register(t *testing.T, ops any) *Protocol {
	t.Helper()
	reg := uclass.NewRegistry()
	_, err := reg.Add(uclass.Serial, "uart0", ops)
	require.NoError(t, err)

	dir := efi.NewDirectory()
	require.NoError(t, Register(dir, reg, WithLogger(zaptest.NewLogger(t).Sugar())))

	iface, err := dir.LocateProtocol(Guid)
	require.NoError(t, err)
	p, ok := iface.(*Protocol)
	require.True(t, ok)
	return p
}

func TestSetAttributesValidWidths(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)

	for _, bits := range []uint8{5, 6, 7, 8} {
		st := p.SetAttributes(p, 9600, 0, 0, EvenParity, bits, TwoStopBits)
		require.Equal(t, efi.Success, st, "data bits %d", bits)
	}
	require.Equal(t, []uint{
		serial.Config(serial.ParEven, serial.Bits5, serial.StopTwo),
		serial.Config(serial.ParEven, serial.Bits6, serial.StopTwo),
		serial.Config(serial.ParEven, serial.Bits7, serial.StopTwo),
		serial.Config(serial.ParEven, serial.Bits8, serial.StopTwo),
	}, spy.configs)
	require.Equal(t, []int{9600, 9600, 9600, 9600}, spy.baud)
}

func TestSetAttributesInvalidWidth(t *testing.T) {
	for _, bits := range []uint8{0, 4, 9, 255} {
		spy := &spyOps{}
		p := register(t, spy)
		st := p.SetAttributes(p, 115200, 0, 0, NoParity, bits, OneStopBit)
		require.Equal(t, efi.InvalidParameter, st, "data bits %d", bits)
		require.Empty(t, spy.configs)
	}
}

func TestSetAttributesParityMapping(t *testing.T) {
	cases := []struct {
		parity Parity
		want   serial.Par
	}{
		{DefaultParity, serial.ParNone},
		{NoParity, serial.ParNone},
		{EvenParity, serial.ParEven},
		{OddParity, serial.ParOdd},
	}
	for _, c := range cases {
		spy := &spyOps{}
		p := register(t, spy)
		require.Equal(t, efi.Success, p.SetAttributes(p, 115200, 0, 0, c.parity, 8, DefaultStopBits))
		require.Len(t, spy.configs, 1)
		require.Equal(t, c.want, serial.ConfigPar(spy.configs[0]), "parity %v", c.parity)
		require.Equal(t, serial.StopOne, serial.ConfigStop(spy.configs[0]))
	}
}

func TestSetAttributesMarkSpaceRejected(t *testing.T) {
	for _, parity := range []Parity{MarkParity, SpaceParity, Parity(42)} {
		for _, stop := range []StopBits{DefaultStopBits, OneStopBit, OneFiveStopBits, TwoStopBits} {
			for _, bits := range []uint8{5, 8} {
				spy := &spyOps{}
				p := register(t, spy)
				require.Equal(t, efi.InvalidParameter, p.SetAttributes(p, 115200, 0, 0, parity, bits, stop))
				require.Empty(t, spy.configs)
			}
		}
	}
}

func TestSetAttributesStopBitsMapping(t *testing.T) {
	cases := map[StopBits]serial.Stop{
		DefaultStopBits: serial.StopOne,
		OneStopBit:      serial.StopOne,
		OneFiveStopBits: serial.StopOneHalf,
		TwoStopBits:     serial.StopTwo,
	}
	for stop, want := range cases {
		spy := &spyOps{}
		p := register(t, spy)
		require.Equal(t, efi.Success, p.SetAttributes(p, 115200, 0, 0, NoParity, 8, stop))
		require.Equal(t, want, serial.ConfigStop(spy.configs[0]))
	}

	spy := &spyOps{}
	p := register(t, spy)
	require.Equal(t, efi.InvalidParameter, p.SetAttributes(p, 115200, 0, 0, NoParity, 8, StopBits(4)))
	require.Empty(t, spy.configs)
}

func TestSetAttributesBaudFailureShortCircuits(t *testing.T) {
	spy := &spyOps{brgErr: errors.New("unsupported rate")}
	p := register(t, spy)

	// the invalid parity is never looked at
	require.Equal(t, efi.DeviceError, p.SetAttributes(p, 12345, 0, 0, MarkParity, 8, OneStopBit))
	require.Empty(t, spy.configs)
	require.Equal(t, 1, spy.calls)
}

func TestSetAttributesConfigRejected(t *testing.T) {
	spy := &spyOps{configErr: errors.New("nope")}
	p := register(t, spy)
	require.Equal(t, efi.DeviceError, p.SetAttributes(p, 115200, 0, 0, NoParity, 8, OneStopBit))
	require.Equal(t, defaultMode(), p.Mode)
}

func TestSetAttributesBaudOutOfRange(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)

	require.Equal(t, efi.DeviceError, p.SetAttributes(p, math.MaxUint64, 0, 0, NoParity, 8, OneStopBit))
	require.Zero(t, spy.calls)
	require.Equal(t, defaultMode(), p.Mode)
}

func TestDriverFaultsAreDeviceErrors(t *testing.T) {
	spy := &spyOps{
		brgErr: fmt.Errorf("no rate control: %w", efi.ErrUnsupported),
		putErr: fmt.Errorf("bad: %w", efi.ErrInvalidParameter),
		getc:   []getcResult{{err: fmt.Errorf("stale: %w", efi.ErrTimeout)}},
	}
	p := register(t, spy)

	require.Equal(t, efi.DeviceError, p.SetAttributes(p, 9600, 0, 0, NoParity, 8, OneStopBit))
	require.Equal(t, efi.DeviceError, p.Write(p, ptr.To(uint64(1)), []byte("x")))
	require.Equal(t, efi.DeviceError, p.Read(p, ptr.To(uint64(1)), make([]byte, 1)))

	spy.brgErr = nil
	spy.configErr = fmt.Errorf("width: %w", efi.ErrInvalidParameter)
	require.Equal(t, efi.DeviceError, p.SetAttributes(p, 9600, 0, 0, NoParity, 8, OneStopBit))

	c := &clearingOps{clearErr: fmt.Errorf("purge: %w", efi.ErrUnsupported)}
	p = register(t, c)
	require.Equal(t, efi.DeviceError, p.Reset(p))
}

func TestResolverFaultsAreDeviceErrors(t *testing.T) {
	dir := efi.NewDirectory()
	fail := false
	resolver := ResolverFunc(func() (*uclass.Device, error) {
		if fail {
			return nil, fmt.Errorf("bus gone: %w", efi.ErrUnsupported)
		}
		return &uclass.Device{Name: "uart0", Class: uclass.Serial, Ops: &spyOps{}}, nil
	})
	require.NoError(t, Register(dir, nil, WithResolver(resolver)))
	iface, err := dir.LocateProtocol(Guid)
	require.NoError(t, err)
	p := iface.(*Protocol)

	fail = true
	require.Equal(t, efi.DeviceError, p.Reset(p))
	require.Equal(t, efi.DeviceError, p.Write(p, ptr.To(uint64(1)), []byte("x")))
}

func TestSetAttributesUpdatesMode(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)
	require.Equal(t, defaultMode(), p.Mode)

	require.Equal(t, efi.Success, p.SetAttributes(p, 9600, 16, 1000, OddParity, 7, TwoStopBits))
	require.Equal(t, &Mode{
		ControlMask:      defaultControlMask,
		Timeout:          1000,
		BaudRate:         9600,
		ReceiveFifoDepth: 16,
		DataBits:         7,
		Parity:           OddParity,
		StopBits:         TwoStopBits,
	}, p.Mode)

	require.Equal(t, efi.Success, p.SetAttributes(p, 115200, 0, 0, DefaultParity, 8, DefaultStopBits))
	require.Equal(t, NoParity, p.Mode.Parity)
	require.Equal(t, OneStopBit, p.Mode.StopBits)
	require.Equal(t, defaultReceiveFifoDepth, p.Mode.ReceiveFifoDepth)

	require.Equal(t, efi.InvalidParameter, p.SetAttributes(p, 300, 0, 0, SpaceParity, 8, OneStopBit))
	require.Equal(t, uint64(115200), p.Mode.BaudRate)
}

func TestWriteGuards(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)

	require.Equal(t, efi.InvalidParameter, p.Write(p, ptr.To(uint64(0)), []byte("H")))
	require.Equal(t, efi.InvalidParameter, p.Write(p, ptr.To(uint64(1)), nil))
	require.Equal(t, efi.InvalidParameter, p.Write(p, nil, []byte("H")))
	require.Equal(t, efi.InvalidParameter, p.Read(p, ptr.To(uint64(0)), make([]byte, 1)))
	require.Equal(t, efi.InvalidParameter, p.Read(p, ptr.To(uint64(1)), nil))
	require.Equal(t, efi.InvalidParameter, p.Read(p, nil, make([]byte, 1)))
	require.Zero(t, spy.calls)
}

func TestWriteSingleByte(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)

	size := ptr.To(uint64(5))
	require.Equal(t, efi.Success, p.Write(p, size, []byte("HELLO")))
	require.Equal(t, uint64(1), *size)
	require.Equal(t, []byte("H"), spy.put)
}

func TestWritePutFailure(t *testing.T) {
	spy := &spyOps{putErr: errors.New("tx stuck")}
	p := register(t, spy)

	size := ptr.To(uint64(1))
	require.Equal(t, efi.DeviceError, p.Write(p, size, []byte("x")))
}

func TestReadWouldBlock(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)

	buf := []byte{0xaa}
	size := ptr.To(uint64(4))
	require.Equal(t, efi.Timeout, p.Read(p, size, buf))
	require.Zero(t, *size)
	require.Equal(t, byte(0xaa), buf[0])
}

func TestReadByte(t *testing.T) {
	spy := &spyOps{getc: []getcResult{{ch: 'A'}, {ch: 0xff}, {ch: 0}}}
	p := register(t, spy)

	buf := make([]byte, 8)
	for _, want := range []byte{'A', 0xff, 0} {
		size := ptr.To(uint64(len(buf)))
		require.Equal(t, efi.Success, p.Read(p, size, buf))
		require.Equal(t, uint64(1), *size)
		require.Equal(t, want, buf[0])
	}
}

func TestReadOutOfRange(t *testing.T) {
	spy := &spyOps{getc: []getcResult{{ch: 256}, {ch: -1}, {ch: 0, err: errors.New("framing error")}}}
	p := register(t, spy)

	for i := 0; i < 3; i++ {
		require.Equal(t, efi.DeviceError, p.Read(p, ptr.To(uint64(1)), make([]byte, 1)))
	}
}

func TestControlBitsUnsupported(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)

	for _, mask := range []uint32{0, DataTerminalReady, RequestToSend | DataTerminalReady, 0xffffffff} {
		require.Equal(t, efi.Unsupported, p.SetControlBits(p, mask))
	}
	control := ptr.To(uint32(0x1234))
	require.Equal(t, efi.Unsupported, p.GetControlBits(p, control))
	require.Equal(t, uint32(0x1234), *control)
	require.Equal(t, efi.Unsupported, p.GetControlBits(p, nil))
	require.Zero(t, spy.calls)
}

func TestResetWithoutClear(t *testing.T) {
	spy := &spyOps{}
	p := register(t, spy)
	require.Equal(t, efi.Success, p.Reset(p))
	require.Zero(t, spy.calls)
}

func TestResetClears(t *testing.T) {
	ops := &clearingOps{}
	p := register(t, ops)
	require.Equal(t, efi.Success, p.Reset(p))
	require.Equal(t, 1, ops.cleared)

	ops.clearErr = errors.New("fifo jammed")
	require.Equal(t, efi.DeviceError, p.Reset(p))
}

func TestOperationsReResolve(t *testing.T) {
	reg := uclass.NewRegistry()
	spy := &spyOps{}
	_, err := reg.Add(uclass.Serial, "uart0", spy)
	require.NoError(t, err)

	present := true
	resolver := ResolverFunc(func() (*uclass.Device, error) {
		if !present {
			return nil, uclass.ErrNoDevice
		}
		return reg.Get(uclass.Serial, 0)
	})

	dir := efi.NewDirectory()
	require.NoError(t, Register(dir, nil, WithResolver(resolver)))
	iface, err := dir.LocateProtocol(Guid)
	require.NoError(t, err)
	p := iface.(*Protocol)

	require.Equal(t, efi.Success, p.Write(p, ptr.To(uint64(1)), []byte("a")))

	present = false
	require.Equal(t, efi.DeviceError, p.Write(p, ptr.To(uint64(1)), []byte("b")))
	require.Equal(t, efi.DeviceError, p.Read(p, ptr.To(uint64(1)), make([]byte, 1)))
	require.Equal(t, efi.DeviceError, p.SetAttributes(p, 115200, 0, 0, NoParity, 8, OneStopBit))
	require.Equal(t, efi.DeviceError, p.Reset(p))
	require.Equal(t, []byte("a"), spy.put)
}

func TestDeviceWithoutSerialOps(t *testing.T) {
	p := register(t, struct{}{})
	require.Equal(t, efi.DeviceError, p.Write(p, ptr.To(uint64(1)), []byte("a")))
}
