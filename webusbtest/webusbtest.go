// Package webusbtest provides an in-memory fake implementing the
// webusb/backend contract, for exercising the device state machine and
// transfer engine without real hardware. Shaped after
// original_source/src/lib.rs's test module, which drives the public API
// against a real Arduino; here the same call sequences run against a
// scripted fake instead.
package webusbtest

import (
	"time"

	"github.com/go-webusb/webusb/backend"
)

// Device is a scripted fake device: its descriptor and configuration tree
// are fixed at construction, and every transfer call is recorded for test
// assertions.
type Device struct {
	ID         string
	Descriptor backend.DeviceDescriptor
	Configs    []backend.ConfigDescriptor
	Strings    map[uint8]string

	// Access, if true, makes Open return backend.ErrAccess, simulating a
	// device the process lacks permission to open.
	Access bool

	// ControlResponses lets a test script canned response bytes for a
	// control-in transfer, keyed by request number. Missing entries return
	// an empty, successful transfer.
	ControlResponses map[uint8][]byte

	Calls []Call
}

// Call records one backend.DeviceHandle invocation for test assertions.
type Call struct {
	Method  string
	Address uint8
	Data    []byte
}

// Backend is a fixed set of Devices, implementing backend.Backend.
type Backend struct {
	Devices_ []*Device
	Closed   bool
}

// New returns a Backend exposing the given devices.
func New(devices ...*Device) *Backend {
	return &Backend{Devices_: devices}
}

func (b *Backend) Close() error {
	b.Closed = true
	return nil
}

func (b *Backend) Devices() ([]backend.DeviceInfo, error) {
	infos := make([]backend.DeviceInfo, len(b.Devices_))
	for i, d := range b.Devices_ {
		infos[i] = backend.DeviceInfo{ID: d.ID, Descriptor: d.Descriptor}
	}
	return infos, nil
}

func (b *Backend) Open(id any) (backend.DeviceHandle, error) {
	for _, d := range b.Devices_ {
		if d.ID == id {
			if d.Access {
				return nil, backend.ErrAccess
			}
			return &handle{dev: d}, nil
		}
	}
	return nil, backend.ErrAccess
}

type handle struct {
	dev *Device
}

func (h *handle) record(c Call) { h.dev.Calls = append(h.dev.Calls, c) }

func (h *handle) Close() error {
	h.record(Call{Method: "Close"})
	return nil
}

func (h *handle) ConfigDescriptorByIndex(index uint8) (backend.ConfigDescriptor, error) {
	if int(index) >= len(h.dev.Configs) {
		return backend.ConfigDescriptor{}, backend.ErrAccess
	}
	return h.dev.Configs[index], nil
}

func (h *handle) ActiveConfigDescriptor() (backend.ConfigDescriptor, error) {
	if len(h.dev.Configs) == 0 {
		return backend.ConfigDescriptor{}, backend.ErrAccess
	}
	return h.dev.Configs[0], nil
}

func (h *handle) StringDescriptor(index uint8) (string, error) {
	return h.dev.Strings[index], nil
}

func (h *handle) ControlTransfer(dir backend.Direction, reqType backend.RequestType, recipient backend.Recipient, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	h.record(Call{Method: "ControlTransfer", Data: append([]byte(nil), data...)})
	if dir == backend.DirectionIn {
		resp := h.dev.ControlResponses[request]
		n := copy(data, resp)
		return n, nil
	}
	return len(data), nil
}

func (h *handle) BulkTransfer(address uint8, data []byte, timeout time.Duration) (int, error) {
	h.record(Call{Method: "BulkTransfer", Address: address, Data: append([]byte(nil), data...)})
	return len(data), nil
}

func (h *handle) InterruptTransfer(address uint8, data []byte, timeout time.Duration) (int, error) {
	h.record(Call{Method: "InterruptTransfer", Address: address, Data: append([]byte(nil), data...)})
	return len(data), nil
}

func (h *handle) SetConfiguration(value uint8) error {
	h.record(Call{Method: "SetConfiguration", Address: value})
	return nil
}

func (h *handle) ClaimInterface(number uint8) error {
	h.record(Call{Method: "ClaimInterface", Address: number})
	return nil
}

func (h *handle) ReleaseInterface(number uint8) error {
	h.record(Call{Method: "ReleaseInterface", Address: number})
	return nil
}

func (h *handle) SetAlternateSetting(number, alternate uint8) error {
	h.record(Call{Method: "SetAlternateSetting", Address: number})
	return nil
}

func (h *handle) ClearHalt(address uint8) error {
	h.record(Call{Method: "ClearHalt", Address: address})
	return nil
}

func (h *handle) Reset() error {
	h.record(Call{Method: "Reset"})
	return nil
}
