// Package backend defines the minimal capability contract a host USB stack
// must satisfy for the webusb package to build its device model and issue
// transfers through it. Two shapes are expected to implement it: a native
// host-USB binding (backend/gousb, backend/linuxusbfs) and a runtime-provided
// WebUSB facade for embedding in a host that already exposes navigator.usb
// (backend/jsfacade). Neither shape is part of this contract's concerns —
// the webusb package never imports either.
package backend

import "time"

// Direction is the data-transfer direction of an endpoint or control request.
type Direction uint8

const (
	DirectionOut Direction = 0x00
	DirectionIn  Direction = 0x80
)

// RequestType is the bmRequestType "type" field (USB 2.0 table 9-2).
type RequestType uint8

const (
	RequestTypeStandard RequestType = 0
	RequestTypeClass    RequestType = 1
	RequestTypeVendor   RequestType = 2
)

// Recipient is the bmRequestType "recipient" field.
type Recipient uint8

const (
	RecipientDevice    Recipient = 0
	RecipientInterface Recipient = 1
	RecipientEndpoint  Recipient = 2
	RecipientOther     Recipient = 3
)

// DeviceDescriptor holds the decoded fields of a USB device descriptor.
type DeviceDescriptor struct {
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16 // bcdDevice
	USBVersion        uint16 // bcdUSB
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// EndpointDescriptor is a raw endpoint descriptor.
type EndpointDescriptor struct {
	Address       uint8 // includes the direction bit
	Attributes    uint8 // low two bits are the transfer type
	MaxPacketSize uint16
}

// InterfaceDescriptor is one alternate setting of one interface.
type InterfaceDescriptor struct {
	InterfaceNumber   uint8
	AlternateSetting  uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceNameIdx  uint8
	Endpoints         []EndpointDescriptor
}

// ConfigDescriptor is a fully parsed configuration descriptor tree.
type ConfigDescriptor struct {
	ConfigurationValue uint8
	ConfigurationIdx   uint8
	Interfaces         []InterfaceDescriptor
}

// DeviceInfo identifies an enumerated device before it is opened.
type DeviceInfo struct {
	// ID is an opaque, backend-specific handle used to Open the device again.
	ID         any
	Descriptor DeviceDescriptor
}

// Backend enumerates devices and opens them. A Backend instance is the
// process-wide session a Context owns; it must be safe for concurrent,
// read-only use from multiple goroutines.
type Backend interface {
	// Devices lists every attached device, hubs included; callers filter.
	Devices() ([]DeviceInfo, error)
	// Open acquires a handle to the device identified by id.
	Open(id any) (DeviceHandle, error)
	// Close releases any process-wide resources the backend holds.
	Close() error
}

// DeviceHandle is the capability set available once a device is open.
// All methods may block for the duration of the underlying USB transaction;
// a timeout of 0 means wait indefinitely.
type DeviceHandle interface {
	Close() error

	ConfigDescriptorByIndex(index uint8) (ConfigDescriptor, error)
	ActiveConfigDescriptor() (ConfigDescriptor, error)
	StringDescriptor(index uint8) (string, error)

	ControlTransfer(dir Direction, reqType RequestType, recipient Recipient, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)
	BulkTransfer(address uint8, data []byte, timeout time.Duration) (int, error)
	InterruptTransfer(address uint8, data []byte, timeout time.Duration) (int, error)

	SetConfiguration(value uint8) error
	ClaimInterface(number uint8) error
	ReleaseInterface(number uint8) error
	SetAlternateSetting(number, alternate uint8) error
	ClearHalt(address uint8) error
	Reset() error
}

// ErrAccess reports that the process lacks permission to open a device.
// Backends otherwise return ordinary errors for a failed transfer or
// state-change operation; ErrAccess is the one sentinel the enumeration
// pipeline inspects for, to silently skip such devices.
var ErrAccess = errAccess{}

type errAccess struct{}

func (errAccess) Error() string { return "access denied" }
