package webusb

// knownVendors and knownClasses are small, hand-maintained fallback tables
// for printing a human-readable label next to an enumerated device when its
// own descriptors don't already supply a name. This is not a usb.ids parser:
// nothing in SPEC_FULL.md's scope needs the full USB-IF database, only
// cmd/webusb-ls's device listing, so there is nothing here to load from disk.
var knownVendors = map[uint16]string{
	0x2341: "Arduino LLC",
	0x1d6b: "Linux Foundation",
	0x046d: "Logitech, Inc.",
}

var knownClasses = map[uint8]string{
	0x00: "Use class information in the Interface Descriptors",
	0x01: "Audio",
	0x02: "Communications and CDC Control",
	0x03: "Human Interface Device",
	0x05: "Physical",
	0x06: "Image",
	0x07: "Printer",
	0x08: "Mass Storage",
	0x09: "Hub",
	0x0a: "CDC Data",
	0x0b: "Smart Card",
	0x0d: "Content Security",
	0x0e: "Video",
	0x0f: "Personal Healthcare",
	0x10: "Audio/Video Devices",
	0xdc: "Diagnostic",
	0xe0: "Wireless",
	0xef: "Miscellaneous Device",
	0xfe: "Application Specific",
	0xff: "Vendor Specific",
}

// VendorLabel returns a human-readable vendor name for d, preferring its own
// ManufacturerName string descriptor (read at enumeration time) and falling
// back to the small known-vendor table above.
func (d *Device) VendorLabel() string {
	if d.ManufacturerName != "" {
		return d.ManufacturerName
	}
	return knownVendors[d.VendorID]
}

// ClassLabel returns the USB-IF defined name for d's device class, or "" if
// unrecognized.
func (d *Device) ClassLabel() string {
	return knownClasses[d.DeviceClass]
}
