//go:build linux

package linuxusbfs

import (
	"encoding/binary"
	"fmt"

	"github.com/go-webusb/webusb/backend"
)

const (
	descTypeInterface = 0x04
	descTypeEndpoint  = 0x05
)

// parseConfigDescriptor decodes a raw configuration descriptor (as returned
// by a standard Get-Descriptor control read) into the backend's flat
// representation, one InterfaceDescriptor per alternate setting. Adapted
// from the teacher's config.go Unmarshal, trimmed to the fields the backend
// contract actually needs.
func parseConfigDescriptor(data []byte) (backend.ConfigDescriptor, error) {
	if len(data) < 9 {
		return backend.ConfigDescriptor{}, fmt.Errorf("linuxusbfs: config descriptor too short: %d bytes", len(data))
	}

	cfg := backend.ConfigDescriptor{
		ConfigurationValue: data[5],
		ConfigurationIdx:   data[6],
	}

	var current *backend.InterfaceDescriptor
	pos := 9
	for pos < len(data) {
		if pos+2 > len(data) {
			break
		}
		length := int(data[pos])
		descType := data[pos+1]
		if length == 0 || pos+length > len(data) {
			break
		}
		body := data[pos : pos+length]

		switch descType {
		case descTypeInterface:
			if current != nil {
				cfg.Interfaces = append(cfg.Interfaces, *current)
			}
			current = &backend.InterfaceDescriptor{
				InterfaceNumber:   body[2],
				AlternateSetting:  body[3],
				InterfaceClass:    body[5],
				InterfaceSubClass: body[6],
				InterfaceProtocol: body[7],
				InterfaceNameIdx:  body[8],
			}
		case descTypeEndpoint:
			if current != nil && length >= 7 {
				current.Endpoints = append(current.Endpoints, backend.EndpointDescriptor{
					Address:       body[2],
					Attributes:    body[3],
					MaxPacketSize: binary.LittleEndian.Uint16(body[4:6]),
				})
			}
		}
		pos += length
	}
	if current != nil {
		cfg.Interfaces = append(cfg.Interfaces, *current)
	}

	return cfg, nil
}
