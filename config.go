package webusb

import "github.com/go-webusb/webusb/backend"

// TransferType is the endpoint transfer type, encoded on the wire as the low
// two bits of the endpoint descriptor's bmAttributes.
type TransferType uint8

const (
	TransferTypeControl TransferType = iota
	TransferTypeIsochronous
	TransferTypeBulk
	TransferTypeInterrupt
)

// Direction is the data-transfer direction of an endpoint.
type Direction uint8

const (
	DirectionOut Direction = iota
	DirectionIn
)

// Endpoint describes a single endpoint of an alternate interface setting.
// Immutable once constructed.
type Endpoint struct {
	EndpointNumber uint8 // 1..15
	Direction      Direction
	Type           TransferType
	PacketSize     uint16
}

func endpointFromDescriptor(d backend.EndpointDescriptor) Endpoint {
	dir := DirectionOut
	if d.Address&0x80 != 0 {
		dir = DirectionIn
	}
	return Endpoint{
		EndpointNumber: d.Address & 0x0F,
		Direction:      dir,
		Type:           TransferType(d.Attributes & 0x03),
		PacketSize:     d.MaxPacketSize,
	}
}

// AlternateInterface is one of the mutually exclusive endpoint sets an
// Interface may expose. Immutable once constructed.
type AlternateInterface struct {
	AlternateSetting  uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceName     string // empty if the device has no string for it
	Endpoints         []Endpoint
}

func alternateFromDescriptor(d backend.InterfaceDescriptor, name string) AlternateInterface {
	eps := make([]Endpoint, len(d.Endpoints))
	for i, e := range d.Endpoints {
		eps[i] = endpointFromDescriptor(e)
	}
	return AlternateInterface{
		AlternateSetting:  d.AlternateSetting,
		InterfaceClass:    d.InterfaceClass,
		InterfaceSubClass: d.InterfaceSubClass,
		InterfaceProtocol: d.InterfaceProtocol,
		InterfaceName:     name,
		Endpoints:         eps,
	}
}

// Interface is one numbered USB interface: a currently-selected alternate
// plus the full ordered set of alternates it may switch between.
//
// Invariant: Alternate is always equal (by value) to one element of
// Alternates. Claimed may only be true while the owning Device is opened.
type Interface struct {
	InterfaceNumber uint8
	Alternate       AlternateInterface
	Alternates      []AlternateInterface
	Claimed         bool
}

// findEndpoint returns the endpoint matching number and direction across any
// alternate setting of this interface, or nil if none matches.
func (i *Interface) findEndpoint(number uint8, dir Direction) *Endpoint {
	for a := range i.Alternates {
		eps := i.Alternates[a].Endpoints
		for e := range eps {
			if eps[e].EndpointNumber == number && eps[e].Direction == dir {
				return &eps[e]
			}
		}
	}
	return nil
}

// Configuration is one USB configuration: an ordered, uniquely-numbered
// sequence of Interfaces.
type Configuration struct {
	ConfigurationName  string // empty if the device has no string for it
	ConfigurationValue uint8  // matches bConfigurationValue
	Interfaces         []Interface
}

// findInterface returns a pointer to the interface with the given number,
// or nil if it is not part of this configuration.
func (c *Configuration) findInterface(number uint8) *Interface {
	for i := range c.Interfaces {
		if c.Interfaces[i].InterfaceNumber == number {
			return &c.Interfaces[i]
		}
	}
	return nil
}

// findEndpoint returns the endpoint matching number and direction across
// every interface and alternate setting in this configuration.
func (c *Configuration) findEndpoint(number uint8, dir Direction) *Endpoint {
	for i := range c.Interfaces {
		if ep := c.Interfaces[i].findEndpoint(number, dir); ep != nil {
			return ep
		}
	}
	return nil
}

// buildConfiguration turns a raw backend configuration descriptor into the
// data model's Configuration, grouping interface descriptors (one per
// alternate setting) by interface number. Returns an error if any interface
// number lacks an alternateSetting == 0 descriptor, per the data model's
// default-alternate invariant.
func buildConfiguration(raw backend.ConfigDescriptor, nameOf func(idx uint8) string, ifaceNameOf func(idx uint8) string) (Configuration, error) {
	order := []uint8{}
	byNumber := map[uint8][]backend.InterfaceDescriptor{}
	for _, d := range raw.Interfaces {
		if _, ok := byNumber[d.InterfaceNumber]; !ok {
			order = append(order, d.InterfaceNumber)
		}
		byNumber[d.InterfaceNumber] = append(byNumber[d.InterfaceNumber], d)
	}

	interfaces := make([]Interface, 0, len(order))
	for _, num := range order {
		descs := byNumber[num]
		alternates := make([]AlternateInterface, len(descs))
		var def *AlternateInterface
		for i, d := range descs {
			alternates[i] = alternateFromDescriptor(d, ifaceNameOf(d.InterfaceNameIdx))
			if d.AlternateSetting == 0 {
				def = &alternates[i]
			}
		}
		if def == nil {
			return Configuration{}, errNotFound()
		}
		interfaces = append(interfaces, Interface{
			InterfaceNumber: num,
			Alternate:       *def,
			Alternates:      alternates,
			Claimed:         false,
		})
	}

	return Configuration{
		ConfigurationName:  nameOf(raw.ConfigurationIdx),
		ConfigurationValue: raw.ConfigurationValue,
		Interfaces:         interfaces,
	}, nil
}
