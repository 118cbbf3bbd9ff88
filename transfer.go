package webusb

import (
	"github.com/go-webusb/webusb/backend"
)

// RequestType is the control-transfer bmRequestType "type" field.
type RequestType uint8

const (
	RequestTypeStandard RequestType = iota
	RequestTypeClass
	RequestTypeVendor
)

func (r RequestType) toBackend() backend.RequestType {
	switch r {
	case RequestTypeClass:
		return backend.RequestTypeClass
	case RequestTypeVendor:
		return backend.RequestTypeVendor
	default:
		return backend.RequestTypeStandard
	}
}

// Recipient is the control-transfer bmRequestType "recipient" field.
type Recipient uint8

const (
	RecipientDevice Recipient = iota
	RecipientInterface
	RecipientEndpoint
	RecipientOther
)

func (r Recipient) toBackend() backend.Recipient {
	switch r {
	case RecipientInterface:
		return backend.RecipientInterface
	case RecipientEndpoint:
		return backend.RecipientEndpoint
	case RecipientOther:
		return backend.RecipientOther
	default:
		return backend.RecipientDevice
	}
}

// ControlSetup carries the parameters of a control transfer, mirroring
// USBControlTransferParameters from the WebUSB API.
type ControlSetup struct {
	RequestType RequestType
	Recipient   Recipient
	Request     uint8
	Value       uint16
	Index       uint16
}

const getURLRequestIndex = 0x0002

// ControlTransferIn issues a control read of up to length bytes and returns
// the prefix actually transferred.
func (d *Device) ControlTransferIn(setup ControlSetup, length int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.Opened {
		return nil, errInvalidState()
	}
	if err := d.validateControlSetup(setup); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	n, err := d.handle.ControlTransfer(backend.DirectionIn, setup.RequestType.toBackend(), setup.Recipient.toBackend(), setup.Request, setup.Value, setup.Index, buf, 0)
	if err != nil {
		return nil, errUsb(err)
	}
	return buf[:n], nil
}

// ControlTransferOut issues a control write of data and returns the number of
// bytes the backend reports as written.
func (d *Device) ControlTransferOut(setup ControlSetup, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.Opened {
		return 0, errInvalidState()
	}
	if err := d.validateControlSetup(setup); err != nil {
		return 0, err
	}

	n, err := d.handle.ControlTransfer(backend.DirectionOut, setup.RequestType.toBackend(), setup.Recipient.toBackend(), setup.Request, setup.Value, setup.Index, data, 0)
	if err != nil {
		return 0, errUsb(err)
	}
	return n, nil
}

// validateControlSetup checks the validity of the control-transfer parameters
// per the WebUSB specification's "check the validity of the control transfer
// parameters" algorithm. Skipped entirely when no configuration is currently
// selected; callers still require Opened, checked by the caller.
func (d *Device) validateControlSetup(setup ControlSetup) error {
	cfg := d.Configuration
	if cfg == nil {
		return nil
	}

	switch setup.Recipient {
	case RecipientInterface:
		interfaceNumber := uint8(setup.Index & 0xFF)
		iface := cfg.findInterface(interfaceNumber)
		if iface == nil {
			return errNotFound()
		}
		if !iface.Claimed {
			return errInvalidState()
		}
	case RecipientEndpoint:
		// The endpoint number is the low nibble of wIndex; this is
		// independent of the direction bit's position on the wire. An
		// earlier draft masked with `1 << 4`, which is wrong — the
		// specification's wire format places the endpoint number in bits
		// 0-3.
		endpointNumber := uint8(setup.Index) & 0x0F
		dir := DirectionOut
		if setup.Index&0x0100 != 0 {
			dir = DirectionIn
		}
		if cfg.findEndpoint(endpointNumber, dir) == nil {
			return errNotFound()
		}
	}
	return nil
}

// ClearHalt clears the halt/stall condition on the given endpoint. The
// endpoint's owning interface must be claimed.
func (d *Device) ClearHalt(dir Direction, endpointNumber uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Configuration == nil {
		return errNotFound()
	}
	ep := d.Configuration.findEndpoint(endpointNumber, dir)
	if ep == nil {
		return errNotFound()
	}
	iface := ifaceOwningEndpoint(d.Configuration, endpointNumber, dir)
	if !d.Opened || iface == nil || !iface.Claimed {
		return errInvalidState()
	}

	address := endpointNumber
	if dir == DirectionIn {
		address |= 0x80
	}
	if err := d.handle.ClearHalt(address); err != nil {
		return errUsb(err)
	}
	return nil
}

func ifaceOwningEndpoint(cfg *Configuration, number uint8, dir Direction) *Interface {
	for i := range cfg.Interfaces {
		if cfg.Interfaces[i].findEndpoint(number, dir) != nil {
			return &cfg.Interfaces[i]
		}
	}
	return nil
}

// TransferIn issues a bulk or interrupt read of up to length bytes from
// endpointNumber and returns the prefix actually received.
func (d *Device) TransferIn(endpointNumber uint8, length int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep, iface, err := d.lookupTransferEndpoint(endpointNumber, DirectionIn)
	if err != nil {
		return nil, err
	}
	if ep.Type != TransferTypeBulk && ep.Type != TransferTypeInterrupt {
		return nil, errInvalidAccess()
	}
	if !d.Opened || !iface.Claimed {
		return nil, errInvalidState()
	}

	address := endpointNumber | 0x80
	buf := make([]byte, length)
	var n int
	if ep.Type == TransferTypeBulk {
		n, err = d.handle.BulkTransfer(address, buf, 0)
	} else {
		n, err = d.handle.InterruptTransfer(address, buf, 0)
	}
	if err != nil {
		return nil, errUsb(err)
	}
	return buf[:n], nil
}

// TransferOut issues a bulk or interrupt write of data to endpointNumber and
// returns the number of bytes the backend reports as written.
func (d *Device) TransferOut(endpointNumber uint8, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep, iface, err := d.lookupTransferEndpoint(endpointNumber, DirectionOut)
	if err != nil {
		return 0, err
	}
	if ep.Type != TransferTypeBulk && ep.Type != TransferTypeInterrupt {
		return 0, errInvalidAccess()
	}
	if !d.Opened || !iface.Claimed {
		return 0, errInvalidState()
	}

	address := endpointNumber
	var n int
	if ep.Type == TransferTypeBulk {
		n, err = d.handle.BulkTransfer(address, data, 0)
	} else {
		n, err = d.handle.InterruptTransfer(address, data, 0)
	}
	if err != nil {
		return 0, errUsb(err)
	}
	return n, nil
}

// lookupTransferEndpoint locates the endpoint and its owning interface for a
// bulk/interrupt transfer. It checks neither Opened nor Claimed: TransferIn
// and TransferOut enforce the claim-before-transfer precondition on the
// interface returned here.
func (d *Device) lookupTransferEndpoint(number uint8, dir Direction) (*Endpoint, *Interface, error) {
	if d.Configuration == nil {
		return nil, nil, errNotFound()
	}
	ep := d.Configuration.findEndpoint(number, dir)
	if ep == nil {
		return nil, nil, errNotFound()
	}
	iface := ifaceOwningEndpoint(d.Configuration, number, dir)
	if iface == nil {
		return nil, nil, errNotFound()
	}
	return ep, iface, nil
}

// IsochronousTransferIn is deliberately unimplemented. It exists so callers
// and test suites can assert that invoking it faults loudly rather than
// silently returning a zero value.
func (d *Device) IsochronousTransferIn(endpointNumber uint8, length int) {
	isochronousFault()
}

// IsochronousTransferOut is deliberately unimplemented; see IsochronousTransferIn.
func (d *Device) IsochronousTransferOut(endpointNumber uint8, data []byte) {
	isochronousFault()
}
