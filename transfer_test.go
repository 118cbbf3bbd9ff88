package webusb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-webusb/webusb/backend"
	"github.com/go-webusb/webusb/webusbtest"
)

func newTransferTestDevice(t *testing.T) *Device {
	t.Helper()
	fake := &webusbtest.Device{
		ID: "dev-1",
		Descriptor: backend.DeviceDescriptor{
			USBVersion:        0x0200,
			NumConfigurations: 1,
		},
		Configs: []backend.ConfigDescriptor{
			{
				ConfigurationValue: 1,
				Interfaces: []backend.InterfaceDescriptor{
					{InterfaceNumber: 2, AlternateSetting: 0, Endpoints: []backend.EndpointDescriptor{
						{Address: 0x04, Attributes: 0x02, MaxPacketSize: 64}, // bulk OUT 4
						{Address: 0x84, Attributes: 0x02, MaxPacketSize: 64}, // bulk IN 4
					}},
				},
			},
		},
	}
	b := webusbtest.New(fake)
	devices, err := NewContext(b).Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)

	dev := devices[0]
	require.NoError(t, dev.Open())
	require.NoError(t, dev.SelectConfiguration(1))
	return dev
}

func TestTransferOutRequiresClaimedInterface(t *testing.T) {
	dev := newTransferTestDevice(t)

	_, err := dev.TransferOut(4, []byte("HI"))
	require.True(t, Is(err, KindInvalidState), "got %v", err)

	require.NoError(t, dev.ClaimInterface(2))
	_, err = dev.TransferOut(4, []byte("HI"))
	require.NoError(t, err)
}

func TestTransferInRequiresClaimedInterface(t *testing.T) {
	dev := newTransferTestDevice(t)

	_, err := dev.TransferIn(4, 8)
	require.True(t, Is(err, KindInvalidState), "got %v", err)

	require.NoError(t, dev.ClaimInterface(2))
	_, err = dev.TransferIn(4, 8)
	require.NoError(t, err)
}

func TestTransferUnknownEndpointNotFound(t *testing.T) {
	dev := newTransferTestDevice(t)
	_, err := dev.TransferOut(9, []byte("x"))
	require.True(t, Is(err, KindNotFound), "got %v", err)
}

func TestValidateControlSetupInterfaceRecipient(t *testing.T) {
	dev := newTransferTestDevice(t)
	setup := ControlSetup{RequestType: RequestTypeClass, Recipient: RecipientInterface, Request: 0x22, Value: 1, Index: 2}

	_, err := dev.ControlTransferOut(setup, nil)
	require.True(t, Is(err, KindInvalidState), "control transfer to unclaimed interface 2 should be InvalidState, got %v", err)

	require.NoError(t, dev.ClaimInterface(2))
	_, err = dev.ControlTransferOut(setup, nil)
	require.NoError(t, err)
}

func TestValidateControlSetupEndpointRecipientLowNibble(t *testing.T) {
	dev := newTransferTestDevice(t)
	require.NoError(t, dev.ClaimInterface(2))

	// wIndex 0x0104 encodes endpoint number 4 (low nibble) with the direction
	// bit (0x0100) set -> endpoint 0x84 IN. The endpoint number always comes
	// from the low nibble, never from a shifted bit.
	setupIn := ControlSetup{RequestType: RequestTypeVendor, Recipient: RecipientEndpoint, Index: 0x0104}
	_, err := dev.ControlTransferIn(setupIn, 8)
	require.NoError(t, err)

	setupOut := ControlSetup{RequestType: RequestTypeVendor, Recipient: RecipientEndpoint, Index: 0x0004}
	_, err = dev.ControlTransferOut(setupOut, nil)
	require.NoError(t, err)

	setupMissing := ControlSetup{RequestType: RequestTypeVendor, Recipient: RecipientEndpoint, Index: 0x010F}
	_, err = dev.ControlTransferIn(setupMissing, 8)
	require.True(t, Is(err, KindNotFound), "got %v", err)
}

func TestClearHaltRequiresClaim(t *testing.T) {
	dev := newTransferTestDevice(t)

	err := dev.ClearHalt(DirectionOut, 4)
	require.True(t, Is(err, KindInvalidState), "got %v", err)

	require.NoError(t, dev.ClaimInterface(2))
	require.NoError(t, dev.ClearHalt(DirectionOut, 4))
}

func TestIsochronousTransfersFaultLoudly(t *testing.T) {
	dev := newTransferTestDevice(t)

	assertPanics := func(name string, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "%s: expected panic", name)
			require.Equal(t, ErrIsochronousNotImplemented, r, "%s", name)
		}()
		fn()
	}

	assertPanics("IsochronousTransferIn", func() { dev.IsochronousTransferIn(4, 8) })
	assertPanics("IsochronousTransferOut", func() { dev.IsochronousTransferOut(4, []byte("x")) })
}
