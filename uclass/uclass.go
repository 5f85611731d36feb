// Package uclass is the platform device registry: devices grouped by class,
// addressed by their probe order within the class.
package uclass

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoDevice = errors.New("no such device")
	ErrNilOps   = errors.New("device ops are nil")
)

// ID names a device class.
type ID int

const (
	Serial ID = iota + 1
)

func (id ID) String() string {
	switch id {
	case Serial:
		return "serial"
	}
	return fmt.Sprintf("uclass(%d)", int(id))
}

// Device is a probed device. The registry owns it; consumers keep only
// transient references.
type Device struct {
	Name  string
	Class ID
	Ops   any
}

type Registry struct {
	mu      sync.RWMutex
	classes map[ID][]*Device
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[ID][]*Device)}
}

// Add appends a device to class id and returns it. The first device added
// to a class has index 0.
func (r *Registry) Add(id ID, name string, ops any) (*Device, error) {
	if ops == nil {
		return nil, fmt.Errorf("%s device %q: %w", id, name, ErrNilOps)
	}
	dev := &Device{Name: name, Class: id, Ops: ops}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[id] = append(r.classes[id], dev)
	return dev, nil
}

// Get returns the device at index within class id.
func (r *Registry) Get(id ID, index int) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	devs := r.classes[id]
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("%s device %d: %w", id, index, ErrNoDevice)
	}
	return devs[index], nil
}

// Count returns the number of devices in class id.
func (r *Registry) Count(id ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes[id])
}
