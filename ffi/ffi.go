// Command ffi is a cgo C-ABI surface exposing a Device's operations to
// foreign callers, mirroring original_source/ffi/lib.rs's c_ffi! macro
// pattern: each export takes an opaque device handle, collapses every error
// to a default/zero value, and widens the full error taxonomy the Go side
// keeps into a single "it failed, re-query state" signal. This reimplements
// no logic of its own — see spec.md §9's note that coarse error collapsing
// is acceptable only at this boundary. Built with
// `go build -buildmode=c-shared` (or c-archive) to produce a library other
// runtimes link against; main is never actually run.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"

	"github.com/go-webusb/webusb"
)

// registry maps the opaque handle values handed to C callers back to live
// *webusb.Device values. cgo cannot pass a Go pointer across the boundary
// and have it outlive the call safely, so handles are small integers into
// this table instead.
var (
	registry   = map[C.uintptr_t]*webusb.Device{}
	nextHandle C.uintptr_t
)

// RegisterDevice hands the foreign-function boundary a device obtained some
// other way (typically via webusb.Context.Devices) and returns the opaque
// handle C callers pass into every exported function below. Not itself
// exported across the C ABI — a *webusb.Device cannot appear in a cgo export
// signature — so the embedding program's Go side is expected to call this
// directly before handing control to the foreign runtime.
func RegisterDevice(d *webusb.Device) uintptr {
	nextHandle++
	registry[nextHandle] = d
	return uintptr(nextHandle)
}

// UnregisterDevice drops a handle previously returned by RegisterDevice.
func UnregisterDevice(handle uintptr) {
	delete(registry, C.uintptr_t(handle))
}

func lookup(handle C.uintptr_t) *webusb.Device {
	return registry[handle]
}

//export webusb_open_device
func webusb_open_device(handle C.uintptr_t) C.int {
	if err := lookup(handle).Open(); err != nil {
		return 0
	}
	return 1
}

//export webusb_close_device
func webusb_close_device(handle C.uintptr_t) C.int {
	if err := lookup(handle).Close(); err != nil {
		return 0
	}
	return 1
}

//export webusb_reset_device
func webusb_reset_device(handle C.uintptr_t) C.int {
	if err := lookup(handle).Reset(); err != nil {
		return 0
	}
	return 1
}

//export webusb_select_configuration
func webusb_select_configuration(handle C.uintptr_t, configuration C.uint8_t) C.int {
	if err := lookup(handle).SelectConfiguration(uint8(configuration)); err != nil {
		return 0
	}
	return 1
}

//export webusb_claim_interface
func webusb_claim_interface(handle C.uintptr_t, iface C.uint8_t) C.int {
	if err := lookup(handle).ClaimInterface(uint8(iface)); err != nil {
		return 0
	}
	return 1
}

//export webusb_release_interface
func webusb_release_interface(handle C.uintptr_t, iface C.uint8_t) C.int {
	if err := lookup(handle).ReleaseInterface(uint8(iface)); err != nil {
		return 0
	}
	return 1
}

//export webusb_select_alternate_interface
func webusb_select_alternate_interface(handle C.uintptr_t, iface, alternate C.uint8_t) C.int {
	if err := lookup(handle).SelectAlternateInterface(uint8(iface), uint8(alternate)); err != nil {
		return 0
	}
	return 1
}

//export webusb_clear_halt
func webusb_clear_halt(handle C.uintptr_t, direction, endpoint C.uint8_t) C.int {
	var dir webusb.Direction
	switch direction {
	case 0:
		dir = webusb.DirectionOut
	case 1:
		dir = webusb.DirectionIn
	default:
		return 0
	}
	if err := lookup(handle).ClearHalt(dir, uint8(endpoint)); err != nil {
		return 0
	}
	return 1
}

//export webusb_transfer_out
func webusb_transfer_out(handle C.uintptr_t, endpoint C.uint8_t, data *C.uint8_t, length C.uint32_t) C.int {
	buf := C.GoBytes(unsafe.Pointer(data), C.int(length))
	n, err := lookup(handle).TransferOut(uint8(endpoint), buf)
	if err != nil {
		return 0
	}
	return C.int(n)
}

//export webusb_transfer_in
func webusb_transfer_in(handle C.uintptr_t, endpoint C.uint8_t, size C.uint32_t, out **C.uint8_t) C.int {
	buf, err := lookup(handle).TransferIn(uint8(endpoint), int(size))
	if err != nil {
		return 0
	}
	*out = (*C.uint8_t)(C.CBytes(buf))
	return C.int(len(buf))
}

//export webusb_control_transfer_out
func webusb_control_transfer_out(handle C.uintptr_t, requestType, recipient, request C.uint8_t, value, index C.uint16_t, data *C.uint8_t, length C.uint32_t) C.int {
	buf := C.GoBytes(unsafe.Pointer(data), C.int(length))
	setup := webusb.ControlSetup{
		RequestType: requestTypeFromC(requestType),
		Recipient:   recipientFromC(recipient),
		Request:     uint8(request),
		Value:       uint16(value),
		Index:       uint16(index),
	}
	n, err := lookup(handle).ControlTransferOut(setup, buf)
	if err != nil {
		return 0
	}
	return C.int(n)
}

//export webusb_control_transfer_in
func webusb_control_transfer_in(handle C.uintptr_t, requestType, recipient, request C.uint8_t, value, index C.uint16_t, length C.uint32_t, out **C.uint8_t) C.int {
	setup := webusb.ControlSetup{
		RequestType: requestTypeFromC(requestType),
		Recipient:   recipientFromC(recipient),
		Request:     uint8(request),
		Value:       uint16(value),
		Index:       uint16(index),
	}
	buf, err := lookup(handle).ControlTransferIn(setup, int(length))
	if err != nil {
		return 0
	}
	*out = (*C.uint8_t)(C.CBytes(buf))
	return C.int(len(buf))
}

//export webusb_free_buffer
func webusb_free_buffer(buf *C.uint8_t) {
	C.free(unsafe.Pointer(buf))
}

func requestTypeFromC(v C.uint8_t) webusb.RequestType {
	switch v {
	case 1:
		return webusb.RequestTypeClass
	case 2:
		return webusb.RequestTypeVendor
	default:
		return webusb.RequestTypeStandard
	}
}

func recipientFromC(v C.uint8_t) webusb.Recipient {
	switch v {
	case 1:
		return webusb.RecipientInterface
	case 2:
		return webusb.RecipientEndpoint
	case 3:
		return webusb.RecipientOther
	default:
		return webusb.RecipientDevice
	}
}

func main() {}
