//go:build linux

package linuxusbfs

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// Request codes for Linux's usbfs ioctl interface (linux/usbdevice_fs.h),
// built with github.com/daedaluz/goioctl instead of hand-copied magic
// numbers. Grounded on Daedaluz-gousb's usbfs/ioctl.go.
var (
	reqControl          = ioctl.IOWR('U', 0, unsafe.Sizeof(ctrlTransfer{}))
	reqBulk             = ioctl.IOWR('U', 2, unsafe.Sizeof(bulkTransfer{}))
	reqSetInterface     = ioctl.IOR('U', 4, unsafe.Sizeof(setInterface{}))
	reqSetConfiguration = ioctl.IOR('U', 5, unsafe.Sizeof(uint32(0)))
	reqClaimInterface   = ioctl.IOR('U', 15, unsafe.Sizeof(uint32(0)))
	reqReleaseInterface = ioctl.IOR('U', 16, unsafe.Sizeof(uint32(0)))
	reqReset            = ioctl.IO('U', 20)
	reqClearHalt        = ioctl.IOR('U', 21, unsafe.Sizeof(uint32(0)))
	reqGetCapabilities  = ioctl.IOR('U', 26, unsafe.Sizeof(uint32(0)))
)

type ctrlTransfer struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
	Timeout     uint32
	Data        uintptr
}

type bulkTransfer struct {
	Endpoint uint32
	Length   uint32
	Timeout  uint32
	Data     uintptr
}

type setInterface struct {
	Interface  uint32
	AltSetting uint32
}
