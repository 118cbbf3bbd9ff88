package webusb

import (
	"sync"

	"github.com/go-webusb/webusb/backend"
)

// Device is a single enumerated USB device. All exported methods are safe to
// call from a single goroutine at a time; a Device is single-writer — callers
// needing concurrent access from multiple goroutines must serialize their own
// calls.
//
// Invariants held at all times:
//   - Opened ⇒ the backend handle is present; !Opened ⇒ it is absent.
//   - Configuration, when non-nil, is equal by value to some element of
//     Configurations.
//   - Any Interface.Claimed == true implies Opened == true and that interface
//     belongs to the currently selected Configuration.
type Device struct {
	DeviceClass    uint8
	DeviceSubClass uint8
	DeviceProtocol uint8

	DeviceVersionMajor    uint8
	DeviceVersionMinor    uint8
	DeviceVersionSubminor uint8
	USBVersionMajor       uint8
	USBVersionMinor       uint8
	USBVersionSubminor    uint8

	VendorID  uint16
	ProductID uint16

	ManufacturerName string
	ProductName      string
	SerialNumber     string

	// URL is the WebUSB landing page, computed once at enumeration time.
	// Empty if the device has none or URL discovery failed.
	URL string

	Configurations []Configuration
	Configuration  *Configuration

	Opened bool

	mu      sync.Mutex
	id      any
	backend backend.Backend
	handle  backend.DeviceHandle
}

// Open acquires a backend handle for the device. Re-opening an already-open
// device is a no-op success.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Opened {
		return nil
	}

	handle, err := d.backend.Open(d.id)
	if err != nil {
		return errUsb(err)
	}
	d.handle = handle
	d.Opened = true
	return nil
}

// Close releases the backend handle and forces every Interface.Claimed to
// false. Closing an already-closed device is a no-op success.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.Opened {
		return nil
	}

	var err error
	if d.handle != nil {
		err = d.handle.Close()
	}
	d.handle = nil
	d.Opened = false
	if d.Configuration != nil {
		for i := range d.Configuration.Interfaces {
			d.Configuration.Interfaces[i].Claimed = false
		}
	}
	if err != nil {
		return errUsb(err)
	}
	return nil
}

// SelectConfiguration switches the device's active configuration to the one
// whose ConfigurationValue matches value. Any interfaces claimed under the
// previous configuration are dropped without being released on the wire,
// matching the postcondition that claims do not survive a reconfiguration.
func (d *Device) SelectConfiguration(value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i := range d.Configurations {
		if d.Configurations[i].ConfigurationValue == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errNotFound()
	}

	if !d.Opened {
		return errInvalidState()
	}

	if err := d.handle.SetConfiguration(value); err != nil {
		return errUsb(err)
	}

	cfg := d.Configurations[idx]
	d.Configuration = &cfg
	return nil
}

func (d *Device) findClaimedInterface(number uint8) (*Interface, error) {
	if d.Configuration == nil {
		return nil, errNotFound()
	}
	iface := d.Configuration.findInterface(number)
	if iface == nil {
		return nil, errNotFound()
	}
	return iface, nil
}

// ClaimInterface reserves the named interface for this process. Idempotent
// when the interface is already claimed.
func (d *Device) ClaimInterface(number uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	iface, err := d.findClaimedInterface(number)
	if err != nil {
		return err
	}
	if !d.Opened {
		return errInvalidState()
	}
	if iface.Claimed {
		return nil
	}

	if err := d.handle.ClaimInterface(number); err != nil {
		return errUsb(err)
	}
	iface.Claimed = true
	return nil
}

// ReleaseInterface drops the reservation on the named interface. Idempotent
// when the interface is not claimed.
func (d *Device) ReleaseInterface(number uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	iface, err := d.findClaimedInterface(number)
	if err != nil {
		return err
	}
	if !d.Opened {
		return errInvalidState()
	}
	if !iface.Claimed {
		return nil
	}

	if err := d.handle.ReleaseInterface(number); err != nil {
		return errUsb(err)
	}
	iface.Claimed = false
	return nil
}

// SelectAlternateInterface switches the interface's active alternate setting
// both on the wire and in the data model. The interface must already be
// claimed.
func (d *Device) SelectAlternateInterface(number, alternateSetting uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	iface, err := d.findClaimedInterface(number)
	if err != nil {
		return err
	}
	if !d.Opened || !iface.Claimed {
		return errInvalidState()
	}

	var match *AlternateInterface
	for i := range iface.Alternates {
		if iface.Alternates[i].AlternateSetting == alternateSetting {
			match = &iface.Alternates[i]
			break
		}
	}
	if match == nil {
		return errNotFound()
	}

	if err := d.handle.SetAlternateSetting(number, alternateSetting); err != nil {
		return errUsb(err)
	}
	iface.Alternate = *match
	return nil
}

// Reset issues a bus reset. Per the USB state machine, the device's claimed
// interfaces and selected configuration are left in an undefined state on the
// wire afterward; callers must re-claim anything they need. This
// implementation conservatively forces every interface's Claimed flag back to
// false so the in-memory model never claims something the device no longer
// honors.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.Opened {
		return errInvalidState()
	}

	if err := d.handle.Reset(); err != nil {
		return errUsb(err)
	}
	if d.Configuration != nil {
		for i := range d.Configuration.Interfaces {
			d.Configuration.Interfaces[i].Claimed = false
		}
	}
	return nil
}
