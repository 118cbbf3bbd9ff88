package webusb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-webusb/webusb/backend"
	"github.com/go-webusb/webusb/webusbtest"
)

func TestContextDevicesFiltersHubs(t *testing.T) {
	hub := &webusbtest.Device{ID: "hub", Descriptor: backend.DeviceDescriptor{DeviceClass: usbHubClass}}
	leaf := &webusbtest.Device{ID: "leaf", Descriptor: backend.DeviceDescriptor{VendorID: 0x1234}}

	devices, err := NewContext(webusbtest.New(hub, leaf)).Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, uint16(0x1234), devices[0].VendorID)
}

func TestContextCloseDelegatesToBackend(t *testing.T) {
	b := webusbtest.New()
	ctx := NewContext(b)
	require.NoError(t, ctx.Close())
	require.True(t, b.Closed)
}

// buildBOS assembles a minimal BOS descriptor carrying exactly one WebUSB
// platform capability, for exercising the discovery pipeline end to end.
func buildBOS(vendorCode, landingPageID uint8) []byte {
	cap := make([]byte, 24)
	cap[0] = 24
	cap[1] = 0x10 // deviceCapabilityDescType
	cap[2] = 0x05 // platformDevCapabilityType
	copy(cap[4:20], webUSBCapabilityUUID[:])
	cap[20], cap[21] = 0x00, 0x01 // bcdVersion 0x0100
	cap[22], cap[23] = vendorCode, landingPageID
	header := []byte{0x05, 0x0F, byte(5 + len(cap)), 0x00, 0x01}
	return append(header, cap...)
}

func TestContextDiscoversWebUSBURL(t *testing.T) {
	bos := buildBOS(0x42, 0x01)
	url := "https://example.com/index.html"
	urlDescriptor := append([]byte{byte(3 + len(url) - len("https://")), 0x03, 0x01}, []byte(url[len("https://"):])...)

	fake := &webusbtest.Device{
		ID: "dev-1",
		Descriptor: backend.DeviceDescriptor{
			USBVersion:        0x0210,
			NumConfigurations: 0,
		},
		ControlResponses: map[uint8][]byte{
			6:    bos, // getDescriptorRequest
			0x42: urlDescriptor,
		},
	}

	devices, err := NewContext(webusbtest.New(fake)).Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, url, devices[0].URL)
}

func TestContextSkipsURLDiscoveryBelowUSB21(t *testing.T) {
	fake := &webusbtest.Device{
		ID:         "dev-1",
		Descriptor: backend.DeviceDescriptor{USBVersion: 0x0200},
	}
	devices, err := NewContext(webusbtest.New(fake)).Devices()
	require.NoError(t, err)
	require.Empty(t, devices[0].URL)
}
