package webusb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-webusb/webusb/backend"
	"github.com/go-webusb/webusb/webusbtest"
)

func newTestDevice(t *testing.T, access bool) (*Device, *webusbtest.Backend) {
	t.Helper()
	fake := &webusbtest.Device{
		ID: "dev-1",
		Descriptor: backend.DeviceDescriptor{
			VendorID:          0x2341,
			ProductID:         0x8036,
			USBVersion:        0x0200,
			NumConfigurations: 1,
		},
		Configs: []backend.ConfigDescriptor{
			{
				ConfigurationValue: 1,
				Interfaces: []backend.InterfaceDescriptor{
					{InterfaceNumber: 2, AlternateSetting: 0, Endpoints: []backend.EndpointDescriptor{
						{Address: 0x04, Attributes: 0x02, MaxPacketSize: 64}, // bulk OUT, endpoint 4
					}},
				},
			},
		},
		Access: access,
	}
	b := webusbtest.New(fake)
	devices, err := NewContext(b).Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	return devices[0], b
}

func TestDeviceOpenCloseIdempotent(t *testing.T) {
	dev, _ := newTestDevice(t, false)

	require.False(t, dev.Opened)
	require.NoError(t, dev.Open())
	require.True(t, dev.Opened)
	require.NoError(t, dev.Open(), "re-opening an already-open device is a no-op success")

	require.NoError(t, dev.Close())
	require.False(t, dev.Opened)
	require.NoError(t, dev.Close(), "closing an already-closed device is a no-op success")
}

func TestDeviceOperationsRequireOpen(t *testing.T) {
	dev, _ := newTestDevice(t, false)

	err := dev.ClaimInterface(2)
	require.True(t, Is(err, KindInvalidState), "got %v", err)

	err = dev.SelectConfiguration(1)
	require.True(t, Is(err, KindInvalidState), "got %v", err)

	_, err = dev.TransferOut(4, []byte("x"))
	require.True(t, Is(err, KindInvalidState), "got %v", err)
}

func TestDeviceEnumerationSkipsAccessDenied(t *testing.T) {
	b := webusbtest.New(&webusbtest.Device{ID: "locked", Access: true})
	devices, err := NewContext(b).Devices()
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestDeviceClaimReleaseIdempotentAndInterfaceLifecycle(t *testing.T) {
	dev, _ := newTestDevice(t, false)
	require.NoError(t, dev.Open())
	require.NoError(t, dev.SelectConfiguration(1))

	require.NoError(t, dev.ClaimInterface(2))
	require.NoError(t, dev.ClaimInterface(2), "claiming twice is a no-op success")
	require.True(t, dev.Configuration.findInterface(2).Claimed)

	require.NoError(t, dev.ReleaseInterface(2))
	require.NoError(t, dev.ReleaseInterface(2), "releasing twice is a no-op success")
	require.False(t, dev.Configuration.findInterface(2).Claimed)
}

func TestDeviceCloseForcesInterfacesUnclaimed(t *testing.T) {
	dev, _ := newTestDevice(t, false)
	require.NoError(t, dev.Open())
	require.NoError(t, dev.SelectConfiguration(1))
	require.NoError(t, dev.ClaimInterface(2))

	require.NoError(t, dev.Close())
	require.False(t, dev.Configuration.findInterface(2).Claimed)
}

func TestDeviceResetForcesInterfacesUnclaimed(t *testing.T) {
	dev, _ := newTestDevice(t, false)
	require.NoError(t, dev.Open())
	require.NoError(t, dev.SelectConfiguration(1))
	require.NoError(t, dev.ClaimInterface(2))

	require.NoError(t, dev.Reset())
	require.False(t, dev.Configuration.findInterface(2).Claimed)

	require.NoError(t, dev.Reset(), "resetting again while still opened should succeed")
}

func TestDeviceSelectConfigurationResolvesByValueNotIndex(t *testing.T) {
	dev, _ := newTestDevice(t, false)
	require.NoError(t, dev.Open())
	require.NoError(t, dev.SelectConfiguration(1))
	require.NotNil(t, dev.Configuration)
	require.Equal(t, uint8(1), dev.Configuration.ConfigurationValue)

	err := dev.SelectConfiguration(99)
	require.True(t, Is(err, KindNotFound), "got %v", err)
}

func TestDeviceSelectAlternateInterfaceRequiresClaim(t *testing.T) {
	dev, _ := newTestDevice(t, false)
	require.NoError(t, dev.Open())
	require.NoError(t, dev.SelectConfiguration(1))

	err := dev.SelectAlternateInterface(2, 0)
	require.True(t, Is(err, KindInvalidState), "got %v", err)
}
