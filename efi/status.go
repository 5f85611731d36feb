package efi

import (
	"errors"
	"fmt"
)

// Status is the result code returned by every published protocol function.
type Status uint64

const errorBit Status = 1 << 63

const (
	Success          Status = 0
	InvalidParameter Status = errorBit | 2
	Unsupported      Status = errorBit | 3
	DeviceError      Status = errorBit | 7
	NotFound         Status = errorBit | 14
	Timeout          Status = errorBit | 18
	AlreadyStarted   Status = errorBit | 20
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnsupported      = errors.New("unsupported")
	ErrDeviceError      = errors.New("device error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrAlreadyStarted   = errors.New("already started")
	ErrRegistration     = errors.New("protocol registration failed")
)

// statusErrors is searched in order. DeviceError comes first so that a
// driver fault stays a device error whatever its cause wraps.
var statusErrors = []struct {
	status Status
	err    error
}{
	{DeviceError, ErrDeviceError},
	{InvalidParameter, ErrInvalidParameter},
	{Unsupported, ErrUnsupported},
	{NotFound, ErrNotFound},
	{Timeout, ErrTimeout},
	{AlreadyStarted, ErrAlreadyStarted},
}

// IsError reports whether s has the error bit set.
func (s Status) IsError() bool {
	return s&errorBit != 0
}

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	for _, se := range statusErrors {
		if se.status == s {
			return se.err.Error()
		}
	}
	if s.IsError() {
		return fmt.Sprintf("error %d", uint64(s&^errorBit))
	}
	return fmt.Sprintf("warning %d", uint64(s))
}

// Err converts s back into a Go error, nil for Success.
func (s Status) Err() error {
	if s == Success {
		return nil
	}
	for _, se := range statusErrors {
		if se.status == s {
			return se.err
		}
	}
	return fmt.Errorf("efi status %s", s)
}

// StatusOf maps err onto the status taxonomy. Registration failures carry
// the status of their cause; anything unrecognised is a device error.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status
		}
	}
	return DeviceError
}
