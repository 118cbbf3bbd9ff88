// Command blink drives an Arduino Leonardo running the WebUSB console demo
// sketch (https://github.com/webusb/arduino/blob/gh-pages/demos/console/sketch/sketch.ino),
// toggling its LED from stdin. Ported from original_source/examples/blink.rs;
// exercises the same call sequence as testable scenario S5.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/go-webusb/webusb"
	"github.com/go-webusb/webusb/backend/gousb"
)

const (
	arduinoVendorID  = 0x2341
	arduinoProductID = 0x8036
	consoleInterface = 2
	consoleEndpoint  = 4
)

func main() {
	b := gousb.New()
	defer b.Close()

	ctx := webusb.NewContext(b)
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		log.Fatalf("blink: enumerate devices: %v", err)
	}

	var dev *webusb.Device
	for _, d := range devices {
		if d.VendorID == arduinoVendorID && d.ProductID == arduinoProductID {
			dev = d
			break
		}
	}
	if dev == nil {
		log.Fatal("blink: no Arduino Leonardo found (2341:8036) — load the console demo sketch first")
	}

	if err := dev.Open(); err != nil {
		log.Fatalf("blink: open: %v", err)
	}
	defer dev.Close()

	if dev.Configuration == nil {
		if err := dev.SelectConfiguration(1); err != nil {
			log.Fatalf("blink: select configuration: %v", err)
		}
	}

	if err := dev.ClaimInterface(consoleInterface); err != nil {
		log.Fatalf("blink: claim interface: %v", err)
	}
	if err := dev.SelectAlternateInterface(consoleInterface, 0); err != nil {
		log.Fatalf("blink: select alternate: %v", err)
	}

	initSetup := webusb.ControlSetup{
		RequestType: webusb.RequestTypeClass,
		Recipient:   webusb.RecipientInterface,
		Request:     0x22,
		Value:       1,
		Index:       consoleInterface,
	}
	if _, err := dev.ControlTransferOut(initSetup, nil); err != nil {
		log.Fatalf("blink: control init: %v", err)
	}

	fmt.Println("Enter H to turn the LED on, L to turn it off, Q to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case 'H', 'h':
			sendAndClear(dev, "H")
		case 'L', 'l':
			sendAndClear(dev, "L")
		case 'Q', 'q':
			goto shutdown
		}
	}

shutdown:
	shutdownSetup := initSetup
	shutdownSetup.Value = 0
	if _, err := dev.ControlTransferOut(shutdownSetup, nil); err != nil {
		log.Printf("blink: control shutdown: %v", err)
	}
	if err := dev.ReleaseInterface(consoleInterface); err != nil {
		log.Printf("blink: release interface: %v", err)
	}
	if err := dev.Reset(); err != nil {
		log.Printf("blink: reset: %v", err)
	}
}

func sendAndClear(dev *webusb.Device, payload string) {
	if _, err := dev.TransferOut(consoleEndpoint, []byte(payload)); err != nil {
		log.Printf("blink: transfer out %q: %v", payload, err)
		return
	}
	if err := dev.ClearHalt(webusb.DirectionOut, consoleEndpoint); err != nil {
		log.Printf("blink: clear halt: %v", err)
	}
}
