//go:build js && wasm

// Package jsfacade adapts a host-provided navigator.usb object to the
// webusb/backend contract, for embedding this module in a host that already
// exposes the WebUSB runtime (a browser, or a wasm host polyfilling it). Every
// operation here is naturally suspendable on the JavaScript side; this
// adapter blocks the calling goroutine on the returned Promise instead, since
// the backend contract's methods are synchronous. The webusb package offers
// no suspendable variants of its API: every Device operation blocks its
// caller until this adapter's Promise settles.
package jsfacade

import (
	"syscall/js"
	"time"

	"github.com/go-webusb/webusb/backend"
)

// Backend wraps the global navigator.usb object.
type Backend struct {
	usb js.Value
}

// New binds to navigator.usb. Panics if the host has no WebUSB support —
// callers embedding this facade are expected to feature-detect before
// constructing it.
func New() *Backend {
	usb := js.Global().Get("navigator").Get("usb")
	if usb.IsUndefined() {
		panic("jsfacade: navigator.usb is not available in this host")
	}
	return &Backend{usb: usb}
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Devices() ([]backend.DeviceInfo, error) {
	result, err := awaitPromise(b.usb.Call("getDevices"))
	if err != nil {
		return nil, err
	}
	n := result.Length()
	infos := make([]backend.DeviceInfo, n)
	for i := 0; i < n; i++ {
		dev := result.Index(i)
		infos[i] = backend.DeviceInfo{
			ID:         dev,
			Descriptor: descriptorFromJS(dev),
		}
	}
	return infos, nil
}

func descriptorFromJS(dev js.Value) backend.DeviceDescriptor {
	return backend.DeviceDescriptor{
		DeviceClass:       uint8(dev.Get("deviceClass").Int()),
		DeviceSubClass:    uint8(dev.Get("deviceSubclass").Int()),
		DeviceProtocol:    uint8(dev.Get("deviceProtocol").Int()),
		VendorID:          uint16(dev.Get("vendorId").Int()),
		ProductID:         uint16(dev.Get("productId").Int()),
		DeviceVersion:     0,
		USBVersion:        0,
		NumConfigurations: uint8(dev.Get("configurations").Length()),
	}
}

func (b *Backend) Open(id any) (backend.DeviceHandle, error) {
	dev, ok := id.(js.Value)
	if !ok {
		panic("jsfacade: invalid device id")
	}
	if _, err := awaitPromise(dev.Call("open")); err != nil {
		return nil, err
	}
	return &handle{dev: dev}, nil
}

type handle struct {
	dev js.Value
}

func (h *handle) Close() error {
	_, err := awaitPromise(h.dev.Call("close"))
	return err
}

func (h *handle) ConfigDescriptorByIndex(index uint8) (backend.ConfigDescriptor, error) {
	cfgs := h.dev.Get("configurations")
	if int(index) >= cfgs.Length() {
		return backend.ConfigDescriptor{}, backend.ErrAccess
	}
	return configDescriptorFromJS(cfgs.Index(int(index))), nil
}

func (h *handle) ActiveConfigDescriptor() (backend.ConfigDescriptor, error) {
	cfg := h.dev.Get("configuration")
	if cfg.IsNull() || cfg.IsUndefined() {
		return backend.ConfigDescriptor{}, backend.ErrAccess
	}
	return configDescriptorFromJS(cfg), nil
}

func configDescriptorFromJS(cfg js.Value) backend.ConfigDescriptor {
	out := backend.ConfigDescriptor{
		ConfigurationValue: uint8(cfg.Get("configurationValue").Int()),
	}
	ifaces := cfg.Get("interfaces")
	for i := 0; i < ifaces.Length(); i++ {
		iface := ifaces.Index(i)
		num := uint8(iface.Get("interfaceNumber").Int())
		alts := iface.Get("alternates")
		for j := 0; j < alts.Length(); j++ {
			alt := alts.Index(j)
			id := backend.InterfaceDescriptor{
				InterfaceNumber:   num,
				AlternateSetting:  uint8(alt.Get("alternateSetting").Int()),
				InterfaceClass:    uint8(alt.Get("interfaceClass").Int()),
				InterfaceSubClass: uint8(alt.Get("interfaceSubclass").Int()),
				InterfaceProtocol: uint8(alt.Get("interfaceProtocol").Int()),
			}
			eps := alt.Get("endpoints")
			for k := 0; k < eps.Length(); k++ {
				ep := eps.Index(k)
				addr := uint8(ep.Get("endpointNumber").Int())
				if ep.Get("direction").String() == "in" {
					addr |= 0x80
				}
				var attr uint8
				switch ep.Get("type").String() {
				case "bulk":
					attr = 2
				case "interrupt":
					attr = 3
				case "isochronous":
					attr = 1
				}
				id.Endpoints = append(id.Endpoints, backend.EndpointDescriptor{
					Address:       addr,
					Attributes:    attr,
					MaxPacketSize: uint16(ep.Get("packetSize").Int()),
				})
			}
			out.Interfaces = append(out.Interfaces, id)
		}
	}
	return out
}

func (h *handle) StringDescriptor(index uint8) (string, error) {
	// navigator.usb never exposes raw string-descriptor indices, so this
	// returns an empty string for every index; manufacturer, product,
	// configuration and interface names stay empty with this backend.
	// Returning empty keeps this contract method total.
	return "", nil
}

func (h *handle) ControlTransfer(dir backend.Direction, reqType backend.RequestType, recipient backend.Recipient, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	setup := map[string]any{
		"requestType": requestTypeString(reqType),
		"recipient":   recipientString(recipient),
		"request":     request,
		"value":       value,
		"index":       index,
	}
	if dir == backend.DirectionIn {
		result, err := awaitPromise(h.dev.Call("controlTransferIn", setup, len(data)))
		if err != nil {
			return 0, err
		}
		view := js.Global().Get("Uint8Array").New(result.Get("data").Get("buffer"))
		n := js.CopyBytesToGo(data, view)
		return n, nil
	}
	array := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(array, data)
	result, err := awaitPromise(h.dev.Call("controlTransferOut", setup, array))
	if err != nil {
		return 0, err
	}
	return result.Get("bytesWritten").Int(), nil
}

func requestTypeString(r backend.RequestType) string {
	switch r {
	case backend.RequestTypeClass:
		return "class"
	case backend.RequestTypeVendor:
		return "vendor"
	default:
		return "standard"
	}
}

func recipientString(r backend.Recipient) string {
	switch r {
	case backend.RecipientInterface:
		return "interface"
	case backend.RecipientEndpoint:
		return "endpoint"
	case backend.RecipientOther:
		return "other"
	default:
		return "device"
	}
}

func (h *handle) BulkTransfer(address uint8, data []byte, timeout time.Duration) (int, error) {
	return h.transferIO(address, data)
}

func (h *handle) InterruptTransfer(address uint8, data []byte, timeout time.Duration) (int, error) {
	return h.transferIO(address, data)
}

func (h *handle) transferIO(address uint8, data []byte) (int, error) {
	number := address & 0x0F
	if address&0x80 != 0 {
		result, err := awaitPromise(h.dev.Call("transferIn", number, len(data)))
		if err != nil {
			return 0, err
		}
		view := js.Global().Get("Uint8Array").New(result.Get("data").Get("buffer"))
		return js.CopyBytesToGo(data, view), nil
	}
	array := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(array, data)
	result, err := awaitPromise(h.dev.Call("transferOut", number, array))
	if err != nil {
		return 0, err
	}
	return result.Get("bytesWritten").Int(), nil
}

func (h *handle) SetConfiguration(value uint8) error {
	_, err := awaitPromise(h.dev.Call("selectConfiguration", value))
	return err
}

func (h *handle) ClaimInterface(number uint8) error {
	_, err := awaitPromise(h.dev.Call("claimInterface", number))
	return err
}

func (h *handle) ReleaseInterface(number uint8) error {
	_, err := awaitPromise(h.dev.Call("releaseInterface", number))
	return err
}

func (h *handle) SetAlternateSetting(number, alternate uint8) error {
	_, err := awaitPromise(h.dev.Call("selectAlternateInterface", number, alternate))
	return err
}

func (h *handle) ClearHalt(address uint8) error {
	dir := "out"
	if address&0x80 != 0 {
		dir = "in"
	}
	_, err := awaitPromise(h.dev.Call("clearHalt", dir, address&0x0F))
	return err
}

func (h *handle) Reset() error {
	_, err := awaitPromise(h.dev.Call("reset"))
	return err
}

// awaitPromise blocks the calling goroutine until a JavaScript Promise
// settles, translating a rejection into a Go error. This is the one place in
// the facade where async JS meets this package's synchronous contract.
func awaitPromise(promise js.Value) (js.Value, error) {
	done := make(chan struct{})
	var result js.Value
	var rejected js.Value
	var ok bool

	thenFunc := js.FuncOf(func(this js.Value, args []js.Value) any {
		result = args[0]
		ok = true
		close(done)
		return nil
	})
	defer thenFunc.Release()
	catchFunc := js.FuncOf(func(this js.Value, args []js.Value) any {
		rejected = args[0]
		close(done)
		return nil
	})
	defer catchFunc.Release()

	promise.Call("then", thenFunc).Call("catch", catchFunc)
	<-done

	if !ok {
		return js.Value{}, &jsError{rejected}
	}
	return result, nil
}

type jsError struct{ v js.Value }

func (e *jsError) Error() string {
	if e.v.Get("message").Truthy() {
		return e.v.Get("message").String()
	}
	return e.v.String()
}
