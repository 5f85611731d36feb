package selftest

import (
	"errors"
	"fmt"

	"github.com/cybroslabs/libserialio-go/efi"
	"github.com/cybroslabs/libserialio-go/serialio"
	"k8s.io/utils/ptr"
)

// SerialUnit checks that the Serial I/O protocol is published and well
// formed. It does not move data over the line.
func SerialUnit() *Unit {
	var dir *efi.Directory
	return &Unit{
		Name:  "serial io",
		Phase: ExecuteBeforeBootExit,
		Setup: func(env *Env) error {
			if env == nil || env.Directory == nil {
				return errors.New("no protocol directory")
			}
			dir = env.Directory
			return nil
		},
		Execute: func() error {
			iface, err := dir.LocateProtocol(serialio.Guid)
			if err != nil {
				return fmt.Errorf("serial io protocol not available: %w", err)
			}
			return checkSerial(iface)
		},
	}
}

func checkSerial(iface any) error {
	p, ok := iface.(*serialio.Protocol)
	if !ok || p == nil {
		return fmt.Errorf("protocol has type %T", iface)
	}
	if p.Revision != serialio.Revision {
		return fmt.Errorf("revision %d, want %d", p.Revision, serialio.Revision)
	}
	if p.Mode == nil {
		return errors.New("mode is nil")
	}
	if p.Reset == nil || p.SetAttributes == nil || p.SetControlBits == nil ||
		p.GetControlBits == nil || p.Write == nil || p.Read == nil {
		return errors.New("incomplete function table")
	}

	// neither call may reach the device
	if st := p.GetControlBits(p, ptr.To(uint32(0))); st != efi.Unsupported {
		return fmt.Errorf("get control bits returned %v", st)
	}
	if st := p.Write(p, ptr.To(uint64(0)), []byte{0}); st != efi.InvalidParameter {
		return fmt.Errorf("empty write returned %v", st)
	}
	return nil
}
