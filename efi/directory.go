package efi

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handle names an object in the directory that protocols are installed on.
type Handle uint32

// Root is the firmware root handle, present in every directory.
const Root Handle = 0

type protocolEntry struct {
	guid  GUID
	iface any
}

// Directory is the global protocol database: handles carrying protocol
// interfaces keyed by GUID.
type Directory struct {
	mu      sync.RWMutex
	handles map[Handle][]protocolEntry
	next    Handle

	logger *zap.SugaredLogger
}

// NewDirectory creates a directory containing only the root handle.
func NewDirectory() *Directory {
	return &Directory{
		handles: map[Handle][]protocolEntry{Root: nil},
		next:    Root + 1,
	}
}

func (d *Directory) logf(format string, v ...any) {
	if d.logger != nil {
		d.logger.Debugf(format, v...)
	}
}

func (d *Directory) SetLogger(logger *zap.SugaredLogger) {
	d.logger = logger
}

// CreateHandle allocates a new empty handle.
func (d *Directory) CreateHandle() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.next
	d.next++
	d.handles[h] = nil
	return h
}

// AddProtocol installs iface under guid on handle h. A guid may be installed
// only once per handle.
func (d *Directory) AddProtocol(h Handle, guid GUID, iface any) error {
	if iface == nil {
		return fmt.Errorf("protocol %s: %w", guid, ErrInvalidParameter)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	entries, ok := d.handles[h]
	if !ok {
		return fmt.Errorf("handle %d: %w", h, ErrInvalidParameter)
	}
	for _, e := range entries {
		if e.guid == guid {
			return fmt.Errorf("protocol %s on handle %d: %w", guid, h, ErrAlreadyStarted)
		}
	}
	d.handles[h] = append(entries, protocolEntry{guid: guid, iface: iface})
	d.logf("added protocol %s on handle %d", guid, h)
	return nil
}

// LocateProtocol returns the first interface installed under guid, scanning
// handles in ascending order.
func (d *Directory) LocateProtocol(guid GUID) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.sortedHandles() {
		for _, e := range d.handles[h] {
			if e.guid == guid {
				return e.iface, nil
			}
		}
	}
	return nil, fmt.Errorf("protocol %s: %w", guid, ErrNotFound)
}

// ProtocolsOn lists the GUIDs installed on h in installation order.
func (d *Directory) ProtocolsOn(h Handle) ([]GUID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entries, ok := d.handles[h]
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", h, ErrInvalidParameter)
	}
	list := make([]GUID, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.guid)
	}
	return list, nil
}

func (d *Directory) sortedHandles() []Handle {
	list := make([]Handle, 0, len(d.handles))
	for h := range d.handles {
		list = append(list, h)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i] < list[j]
	})
	return list
}
