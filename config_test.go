package webusb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-webusb/webusb/backend"
)

func constName(s string) func(uint8) string {
	return func(uint8) string { return s }
}

func TestBuildConfigurationGroupsAlternates(t *testing.T) {
	raw := backend.ConfigDescriptor{
		ConfigurationValue: 1,
		ConfigurationIdx:   0,
		Interfaces: []backend.InterfaceDescriptor{
			{InterfaceNumber: 0, AlternateSetting: 0, Endpoints: []backend.EndpointDescriptor{
				{Address: 0x81, Attributes: 0x02, MaxPacketSize: 64},
			}},
			{InterfaceNumber: 0, AlternateSetting: 1, Endpoints: []backend.EndpointDescriptor{
				{Address: 0x81, Attributes: 0x03, MaxPacketSize: 8},
			}},
			{InterfaceNumber: 1, AlternateSetting: 0},
		},
	}

	cfg, err := buildConfiguration(raw, constName(""), constName(""))
	require.NoError(t, err)
	require.Len(t, cfg.Interfaces, 2)

	iface0 := cfg.findInterface(0)
	require.NotNil(t, iface0)
	require.Len(t, iface0.Alternates, 2)
	require.Equal(t, uint8(0), iface0.Alternate.AlternateSetting)

	ep := cfg.findEndpoint(1, DirectionIn)
	require.NotNil(t, ep)
	require.Equal(t, TransferTypeBulk, ep.Type)
}

func TestBuildConfigurationRequiresDefaultAlternate(t *testing.T) {
	raw := backend.ConfigDescriptor{
		ConfigurationValue: 1,
		Interfaces: []backend.InterfaceDescriptor{
			{InterfaceNumber: 0, AlternateSetting: 1},
		},
	}
	_, err := buildConfiguration(raw, constName(""), constName(""))
	require.True(t, Is(err, KindNotFound), "expected KindNotFound for missing alternateSetting 0, got %v", err)
}

func TestInterfaceFindEndpointDirectionMatters(t *testing.T) {
	iface := Interface{
		Alternates: []AlternateInterface{{
			Endpoints: []Endpoint{
				{EndpointNumber: 2, Direction: DirectionOut, Type: TransferTypeBulk},
			},
		}},
	}
	require.Nil(t, iface.findEndpoint(2, DirectionIn))
	require.NotNil(t, iface.findEndpoint(2, DirectionOut))
}
