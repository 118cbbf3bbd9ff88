package webusb

import (
	"time"

	"github.com/go-webusb/webusb/backend"
	"golang.org/x/sync/errgroup"
)

// usbHubClass is bDeviceClass for hub devices (USB 2.0 §9.1.1), filtered out
// of enumeration results.
const usbHubClass = 0x09

// bosDescriptorGetLength is the exploratory read size used to discover a
// BOS descriptor's true wTotalLength before re-reading the whole thing.
const bosDescriptorGetLength = 5

const getDescriptorRequest = 0x06

// webusbDiscoveryTimeout bounds each control transfer issued during URL
// discovery; discovery is best-effort and must never hang enumeration.
const webusbDiscoveryTimeout = 2 * time.Second

// Context owns the process-wide backend session and enumerates devices.
// Safe for concurrent, read-only use from multiple goroutines.
type Context struct {
	backend backend.Backend
}

// NewContext returns a Context owning the backend session b, which the caller
// has already created (for example with gousb.New); NewContext itself does no
// initialization. b must not be nil.
func NewContext(b backend.Backend) *Context {
	return &Context{backend: b}
}

// Close releases the process-wide backend session.
func (c *Context) Close() error {
	return c.backend.Close()
}

// Devices lists every attached, non-hub device the backend can see. Devices
// the process lacks permission to open are silently skipped; any other
// enumeration failure propagates. Devices are enumerated concurrently,
// bounded by a small worker pool, since each requires its own short-lived
// open/read/close sequence for configuration and URL discovery.
func (c *Context) Devices() ([]*Device, error) {
	infos, err := c.backend.Devices()
	if err != nil {
		return nil, errUsb(err)
	}

	filtered := infos[:0]
	for _, info := range infos {
		if info.Descriptor.DeviceClass == usbHubClass {
			continue
		}
		filtered = append(filtered, info)
	}

	results := make([]*Device, len(filtered))
	var g errgroup.Group
	g.SetLimit(8)
	for i, info := range filtered {
		i, info := i, info
		g.Go(func() error {
			dev, err := c.buildDevice(info)
			if err != nil {
				if err == backend.ErrAccess {
					return nil
				}
				return err
			}
			results[i] = dev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errUsb(err)
	}

	devices := make([]*Device, 0, len(results))
	for _, d := range results {
		if d != nil {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// buildDevice takes the device descriptor from info and opens a short-lived
// handle to read string descriptors, every configuration, and — for devices
// declaring USB 2.1 or later —
// discover the WebUSB landing page. The handle is closed before returning;
// the resulting Device starts with Opened == false.
func (c *Context) buildDevice(info backend.DeviceInfo) (*Device, error) {
	handle, err := c.backend.Open(info.ID)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	desc := info.Descriptor
	nameOf := func(idx uint8) string {
		s, err := handle.StringDescriptor(idx)
		if err != nil {
			return ""
		}
		return s
	}

	var configurations []Configuration
	for i := uint8(0); i < desc.NumConfigurations; i++ {
		raw, err := handle.ConfigDescriptorByIndex(i)
		if err != nil {
			return nil, err
		}
		cfg, err := buildConfiguration(raw, nameOf, nameOf)
		if err != nil {
			return nil, err
		}
		configurations = append(configurations, cfg)
	}

	var active *Configuration
	if raw, err := handle.ActiveConfigDescriptor(); err == nil {
		if cfg, err := buildConfiguration(raw, nameOf, nameOf); err == nil {
			active = &cfg
		}
	}

	var url string
	if desc.USBVersion >= 0x0210 {
		url = discoverWebUSBURL(handle)
	}

	dev := &Device{
		DeviceClass:           desc.DeviceClass,
		DeviceSubClass:        desc.DeviceSubClass,
		DeviceProtocol:        desc.DeviceProtocol,
		DeviceVersionMajor:    uint8(desc.DeviceVersion >> 8),
		DeviceVersionMinor:    uint8(desc.DeviceVersion>>4) & 0x0F,
		DeviceVersionSubminor: uint8(desc.DeviceVersion) & 0x0F,
		USBVersionMajor:       uint8(desc.USBVersion >> 8),
		USBVersionMinor:       uint8(desc.USBVersion>>4) & 0x0F,
		USBVersionSubminor:    uint8(desc.USBVersion) & 0x0F,
		VendorID:              desc.VendorID,
		ProductID:             desc.ProductID,
		ManufacturerName:      nameOf(desc.ManufacturerIndex),
		ProductName:           nameOf(desc.ProductIndex),
		SerialNumber:          nameOf(desc.SerialNumberIndex),
		URL:                   url,
		Configurations:        configurations,
		Configuration:         active,
		Opened:                false,
		id:                    info.ID,
		backend:               c.backend,
	}
	return dev, nil
}

// discoverWebUSBURL runs the BOS-read / parse / vendor-URL-read pipeline.
// Any transfer failure abandons discovery and returns an empty string —
// WebUSB metadata is optional and must never fail enumeration.
func discoverWebUSBURL(handle backend.DeviceHandle) string {
	head := make([]byte, bosDescriptorGetLength)
	n, err := handle.ControlTransfer(backend.DirectionIn, backend.RequestTypeStandard, backend.RecipientDevice,
		getDescriptorRequest, uint16(bosDescriptorType)<<8, 0, head, webusbDiscoveryTimeout)
	if err != nil || n != bosDescriptorGetLength {
		return ""
	}

	totalLength := int(head[2]) | int(head[3])<<8
	full := make([]byte, totalLength)
	if _, err := handle.ControlTransfer(backend.DirectionIn, backend.RequestTypeStandard, backend.RecipientDevice,
		getDescriptorRequest, uint16(bosDescriptorType)<<8, 0, full, webusbDiscoveryTimeout); err != nil {
		return ""
	}

	vendorCode, landingPageID, ok := ParseBOS(full)
	if !ok {
		return ""
	}

	buf := make([]byte, 255)
	n, err = handle.ControlTransfer(backend.DirectionIn, backend.RequestTypeVendor, backend.RecipientDevice,
		vendorCode, uint16(landingPageID), getURLRequestIndex, buf, webusbDiscoveryTimeout)
	if err != nil {
		return ""
	}

	url, ok := ParseWebUSBURL(buf[:n])
	if !ok {
		return ""
	}
	return url
}
