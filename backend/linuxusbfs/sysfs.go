//go:build linux

package linuxusbfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sysfsDevice is one USB device as seen under /sys/bus/usb/devices. Adapted
// from the teacher's sysfs enumerator; reworked to describe a device by its
// usbfs device-node path rather than building a fully-populated Device
// record, since record construction is now the webusb package's job.
type sysfsDevice struct {
	devNode      string
	busNum       uint8
	devNum       uint8
	vendorID     uint16
	productID    uint16
	deviceBCD    uint16
	usbBCD       uint16
	class        uint8
	subClass     uint8
	protocol     uint8
	numConfigs   uint8
	manufacturer uint8
	product      uint8
	serial       uint8
}

const sysfsRoot = "/sys/bus/usb/devices"

func enumerateSysfs() ([]sysfsDevice, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, fmt.Errorf("linuxusbfs: read sysfs usb directory: %w", err)
	}

	var devices []sysfsDevice
	for _, entry := range entries {
		name := entry.Name()
		if strings.Contains(name, ":") {
			continue // interface entries, not devices
		}
		if !strings.Contains(name, "-") && !strings.HasPrefix(name, "usb") {
			continue
		}
		dev, err := loadSysfsDevice(filepath.Join(sysfsRoot, name))
		if err != nil {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func loadSysfsDevice(path string) (sysfsDevice, error) {
	readU8 := func(name string) (uint8, error) {
		data, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 8)
		return uint8(v), err
	}
	readU16Hex := func(name string) (uint16, error) {
		data, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 16)
		return uint16(v), err
	}

	var dev sysfsDevice
	var err error
	if dev.busNum, err = readU8("busnum"); err != nil {
		return sysfsDevice{}, err
	}
	if dev.devNum, err = readU8("devnum"); err != nil {
		return sysfsDevice{}, err
	}
	if dev.vendorID, err = readU16Hex("idVendor"); err != nil {
		return sysfsDevice{}, err
	}
	if dev.productID, err = readU16Hex("idProduct"); err != nil {
		return sysfsDevice{}, err
	}
	dev.deviceBCD, _ = readU16Hex("bcdDevice")
	if versionData, err := os.ReadFile(filepath.Join(path, "version")); err == nil {
		// The kernel prints bcdUSB as two hex bytes ("2.10" is 0x0210).
		var major, minor uint16
		if n, _ := fmt.Sscanf(strings.TrimSpace(string(versionData)), "%x.%x", &major, &minor); n == 2 {
			dev.usbBCD = major<<8 | minor
		}
	}
	dev.class, _ = readU8("bDeviceClass")
	dev.subClass, _ = readU8("bDeviceSubClass")
	dev.protocol, _ = readU8("bDeviceProtocol")
	dev.numConfigs, _ = readU8("bNumConfigurations")
	// sysfs does not expose raw string-descriptor indices, so manufacturer,
	// product and serial indices stay 0 and those names are empty with this
	// backend.

	dev.devNode = fmt.Sprintf("/dev/bus/usb/%03d/%03d", dev.busNum, dev.devNum)
	return dev, nil
}
