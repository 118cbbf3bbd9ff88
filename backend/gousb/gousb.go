// Package gousb adapts github.com/google/gousb (a cgo binding to libusb-1.0)
// to the webusb/backend contract. This is the default, cross-platform
// backend: any platform libusb supports is usable here without a
// platform-specific ioctl or IOKit binding.
package gousb

import (
	"errors"
	"sync"
	"time"

	libusb "github.com/google/gousb"

	"github.com/go-webusb/webusb/backend"
)

// Backend wraps a *gousb.Context as a backend.Backend.
type Backend struct {
	ctx *libusb.Context
}

// New opens a libusb session. The returned Backend owns it until Close.
func New() *Backend {
	return &Backend{ctx: libusb.NewContext()}
}

func (b *Backend) Close() error {
	return b.ctx.Close()
}

func (b *Backend) Devices() ([]backend.DeviceInfo, error) {
	var infos []backend.DeviceInfo
	// OpenDevices opens every device matching the predicate and closes the
	// rest; we want descriptors for all of them without retaining handles, so
	// the predicate returns false and we work from the returned descriptor
	// list instead of the (always empty) device slice.
	_, err := b.ctx.OpenDevices(func(desc *libusb.DeviceDesc) bool {
		infos = append(infos, backend.DeviceInfo{
			ID:         desc,
			Descriptor: fromDeviceDesc(desc),
		})
		return false
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

func fromDeviceDesc(desc *libusb.DeviceDesc) backend.DeviceDescriptor {
	return backend.DeviceDescriptor{
		DeviceClass:       uint8(desc.Class),
		DeviceSubClass:    uint8(desc.SubClass),
		DeviceProtocol:    uint8(desc.Protocol),
		VendorID:          uint16(desc.Vendor),
		ProductID:         uint16(desc.Product),
		DeviceVersion:     bcdFromVersion(desc.Device),
		USBVersion:        bcdFromVersion(desc.Spec),
		ManufacturerIndex: 0, // gousb does not surface the raw string indices, so manufacturer, product and serial names stay empty with this backend
		ProductIndex:      0,
		SerialNumberIndex: 0,
		NumConfigurations: uint8(len(desc.Configs)),
	}
}

func bcdFromVersion(v libusb.Version) uint16 {
	return uint16(v.Major())<<8 | uint16(v.Minor())<<4 | uint16(v.SubMinor())
}

func (b *Backend) Open(id any) (backend.DeviceHandle, error) {
	desc, ok := id.(*libusb.DeviceDesc)
	if !ok {
		return nil, errors.New("gousb: invalid device id")
	}
	dev, err := b.ctx.OpenDeviceWithVIDPID(desc.Vendor, desc.Product)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, backend.ErrAccess
	}
	return &handle{dev: dev, desc: desc, claims: make(map[uint8]*claimedInterface)}, nil
}

// claimedInterface is the libusb-level session kept open for the lifetime of
// one core ClaimInterface/ReleaseInterface pair: the *libusb.Config and
// *libusb.Interface gousb requires holding open to actually own the
// interface, plus the alternate setting it was last opened against so
// transfers can be routed to the alternate SelectAlternateInterface most
// recently chose rather than whatever the static descriptor lists first.
type claimedInterface struct {
	cfgNum int
	cfg    *libusb.Config
	iface  *libusb.Interface
	alt    int
}

type handle struct {
	dev  *libusb.Device
	desc *libusb.DeviceDesc

	mu     sync.Mutex
	claims map[uint8]*claimedInterface
}

func (h *handle) Close() error {
	h.mu.Lock()
	for number, c := range h.claims {
		c.iface.Close()
		c.cfg.Close()
		delete(h.claims, number)
	}
	h.mu.Unlock()
	return h.dev.Close()
}

func (h *handle) ConfigDescriptorByIndex(index uint8) (backend.ConfigDescriptor, error) {
	if int(index) >= len(h.desc.Configs) {
		return backend.ConfigDescriptor{}, errors.New("gousb: no such configuration index")
	}
	i := 0
	for _, cfg := range h.desc.Configs {
		if i == int(index) {
			return fromConfigDesc(cfg), nil
		}
		i++
	}
	return backend.ConfigDescriptor{}, errors.New("gousb: no such configuration index")
}

func (h *handle) ActiveConfigDescriptor() (backend.ConfigDescriptor, error) {
	num, err := h.dev.ActiveConfigNum()
	if err != nil {
		return backend.ConfigDescriptor{}, err
	}
	cfg, ok := h.desc.Configs[num]
	if !ok {
		return backend.ConfigDescriptor{}, errors.New("gousb: active configuration not in descriptor set")
	}
	return fromConfigDesc(cfg), nil
}

func fromConfigDesc(cfg libusb.ConfigDesc) backend.ConfigDescriptor {
	var ifaces []backend.InterfaceDescriptor
	for _, iface := range cfg.Interfaces {
		for _, alt := range iface.AltSettings {
			var eps []backend.EndpointDescriptor
			for _, ep := range alt.Endpoints {
				eps = append(eps, backend.EndpointDescriptor{
					Address:       uint8(ep.Address),
					Attributes:    uint8(ep.TransferType),
					MaxPacketSize: uint16(ep.MaxPacketSize),
				})
			}
			ifaces = append(ifaces, backend.InterfaceDescriptor{
				InterfaceNumber:   uint8(alt.Number),
				AlternateSetting:  uint8(alt.Alternate),
				InterfaceClass:    uint8(alt.Class),
				InterfaceSubClass: uint8(alt.SubClass),
				InterfaceProtocol: uint8(alt.Protocol),
				InterfaceNameIdx:  0,
				Endpoints:         eps,
			})
		}
	}
	return backend.ConfigDescriptor{
		ConfigurationValue: uint8(cfg.Number),
		ConfigurationIdx:   0,
		Interfaces:         ifaces,
	}
}

func (h *handle) StringDescriptor(index uint8) (string, error) {
	if index == 0 {
		return "", nil
	}
	return h.dev.GetStringDescriptor(int(index))
}

func (h *handle) ControlTransfer(dir backend.Direction, reqType backend.RequestType, recipient backend.Recipient, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	rt := uint8(dir) | uint8(reqType)<<5 | uint8(recipient)
	h.dev.ControlTimeout = timeout
	return h.dev.Control(rt, request, value, index, data)
}

func (h *handle) BulkTransfer(address uint8, data []byte, timeout time.Duration) (int, error) {
	return h.transferViaEndpoint(address, data, timeout, false)
}

func (h *handle) InterruptTransfer(address uint8, data []byte, timeout time.Duration) (int, error) {
	return h.transferViaEndpoint(address, data, timeout, true)
}

// transferViaEndpoint dispatches through the *libusb.Interface already held
// open by ClaimInterface/SetAlternateSetting for whichever claimed interface
// currently exposes address, so a transfer always targets the alternate
// setting most recently selected rather than re-deriving one from the static
// descriptor set.
func (h *handle) transferViaEndpoint(address uint8, data []byte, timeout time.Duration, interrupt bool) (int, error) {
	c, err := h.ownerOf(address)
	if err != nil {
		return 0, err
	}

	if address&0x80 != 0 {
		ep, err := c.iface.InEndpoint(int(address & 0x0F))
		if err != nil {
			return 0, err
		}
		return ep.Read(data)
	}
	ep, err := c.iface.OutEndpoint(int(address & 0x0F))
	if err != nil {
		return 0, err
	}
	return ep.Write(data)
}

// ownerOf returns the claimedInterface whose currently selected alternate
// setting (tracked since the matching ClaimInterface/SetAlternateSetting
// call, not re-scanned from alternate 0) exposes address.
func (h *handle) ownerOf(address uint8) (*claimedInterface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for number, c := range h.claims {
		cfgDesc, ok := h.desc.Configs[c.cfgNum]
		if !ok {
			continue
		}
		for _, iface := range cfgDesc.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Number != int(number) || alt.Alternate != c.alt {
					continue
				}
				for _, ep := range alt.Endpoints {
					if uint8(ep.Address) == address {
						return c, nil
					}
				}
			}
		}
	}
	return nil, errors.New("gousb: no claimed interface's selected alternate owns this endpoint address")
}

func (h *handle) SetConfiguration(value uint8) error {
	_, err := h.dev.Config(int(value))
	return err
}

// ClaimInterface opens the interface at alternate setting 0 and keeps both
// it and its owning *libusb.Config open until ReleaseInterface, so the
// libusb-level claim genuinely spans the core's claim/release pair instead
// of being released the instant this call returns.
func (h *handle) ClaimInterface(number uint8) error {
	cfgNum, err := h.dev.ActiveConfigNum()
	if err != nil {
		return err
	}
	cfg, err := h.dev.Config(cfgNum)
	if err != nil {
		return err
	}
	iface, err := cfg.Interface(int(number), 0)
	if err != nil {
		cfg.Close()
		return err
	}

	h.mu.Lock()
	h.claims[number] = &claimedInterface{cfgNum: cfgNum, cfg: cfg, iface: iface, alt: 0}
	h.mu.Unlock()
	return nil
}

func (h *handle) ReleaseInterface(number uint8) error {
	h.mu.Lock()
	c, ok := h.claims[number]
	delete(h.claims, number)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	c.iface.Close()
	return c.cfg.Close()
}

// SetAlternateSetting re-opens the already-claimed interface at the new
// alternate setting, replacing the held *libusb.Interface and updating the
// tracked alt number ownerOf consults for subsequent transfers.
func (h *handle) SetAlternateSetting(number, alternate uint8) error {
	h.mu.Lock()
	c, ok := h.claims[number]
	h.mu.Unlock()
	if !ok {
		return errors.New("gousb: interface not claimed")
	}

	iface, err := c.cfg.Interface(int(number), int(alternate))
	if err != nil {
		return err
	}

	h.mu.Lock()
	c.iface.Close()
	c.iface = iface
	c.alt = int(alternate)
	h.mu.Unlock()
	return nil
}

func (h *handle) ClearHalt(address uint8) error {
	return h.dev.ClearHalt(address)
}

func (h *handle) Reset() error {
	return h.dev.Reset()
}
