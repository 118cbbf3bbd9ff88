package webusb

// Descriptor-level constants from USB 2.0 §9.6.2 and the WebUSB spec
// (https://wicg.github.io/webusb/). Grounded on
// original_source/src/constants.rs, restated in Go const form.
const (
	bosDescriptorType           = 0x0F
	deviceCapabilityDescType    = 0x10
	platformDevCapabilityType   = 0x05
	webUSBURLDescriptorType     = 0x03
	urlDescriptorMinLength      = 3
	getURLRequest               = 0x0002
)

// webUSBCapabilityUUID is the little-endian encoding of
// {3408b638-09a9-47a0-8bfd-a0768815b665}.
var webUSBCapabilityUUID = [16]byte{
	0x38, 0xB6, 0x08, 0x34, 0xA9, 0x09, 0xA0, 0x47,
	0x8B, 0xFD, 0xA0, 0x76, 0x88, 0x15, 0xB6, 0x65,
}

// ParseBOS scans the Device Capability descriptors inside a BOS descriptor
// and returns the (bVendorCode, iLandingPage) pair from the first WebUSB
// Platform Capability descriptor whose bcdVersion is at least 0x0100. It
// never panics: any malformed input yields ok == false.
func ParseBOS(b []byte) (vendorCode, landingPageID uint8, ok bool) {
	if len(b) < 5 {
		return 0, 0, false
	}
	if b[0] != 5 {
		return 0, 0, false
	}
	if b[1] != bosDescriptorType {
		return 0, 0, false
	}
	totalLength := int(b[2]) | int(b[3])<<8
	if totalLength < 5 || totalLength > len(b) {
		return 0, 0, false
	}

	// Each check below is either a "require" (violation aborts the whole
	// scan, returning absent) or a conditional "skip" (continue to the next
	// capability descriptor) per the WebUSB platform capability scan.
	numDeviceCaps := int(b[4])
	pos := 5
	for i := 0; i < numDeviceCaps; i++ {
		if pos >= len(b) {
			return 0, 0, false
		}
		capLen := int(b[pos])
		if capLen < 3 || pos+capLen > len(b) {
			return 0, 0, false
		}
		cap := b[pos : pos+capLen]
		pos += capLen

		if cap[1] != deviceCapabilityDescType {
			return 0, 0, false
		}
		if cap[2] != platformDevCapabilityType {
			continue
		}
		if capLen < 20 {
			return 0, 0, false
		}
		if !uuidEqual(cap[4:20], webUSBCapabilityUUID[:]) {
			continue
		}
		if capLen < 22 {
			return 0, 0, false
		}
		bcdVersion := uint16(cap[20]) | uint16(cap[21])<<8
		if bcdVersion < 0x0100 {
			continue
		}
		if capLen < 24 {
			return 0, 0, false
		}
		return cap[22], cap[23], true
	}
	return 0, 0, false
}

func uuidEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParseWebUSBURL decodes a WebUSB URL descriptor. It never panics: any
// malformed input yields ok == false.
func ParseWebUSBURL(b []byte) (url string, ok bool) {
	if len(b) == 0 || b[0] < urlDescriptorMinLength || int(b[0]) > len(b) {
		return "", false
	}
	if b[1] != webUSBURLDescriptorType {
		return "", false
	}
	var prefix string
	switch b[2] {
	case 0:
		prefix = "http://"
	case 1:
		prefix = "https://"
	default:
		return "", false
	}
	return prefix + string(b[3:b[0]]), true
}
