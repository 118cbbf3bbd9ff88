// Command webusb-ls lists attached USB devices and any WebUSB landing page
// they advertise. Derived from the teacher's cmd/lsusb, trimmed to the
// fields this library's Context actually produces.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-webusb/webusb"
	"github.com/go-webusb/webusb/backend/gousb"
)

func main() {
	verbose := flag.Bool("v", false, "show configuration and interface detail")
	flag.Parse()

	b := gousb.New()
	defer b.Close()

	ctx := webusb.NewContext(b)
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		log.Fatalf("webusb-ls: enumerate devices: %v", err)
	}

	for _, d := range devices {
		printDevice(d, *verbose)
	}
}

func printDevice(d *webusb.Device, verbose bool) {
	vendor := d.VendorLabel()
	class := d.ClassLabel()

	fmt.Fprintf(os.Stdout, "ID %04x:%04x %s %s\n", d.VendorID, d.ProductID, vendor, d.ProductName)
	if class != "" {
		fmt.Printf("  Class: %s\n", class)
	}
	if d.URL != "" {
		fmt.Printf("  WebUSB URL: %s\n", d.URL)
	}
	if !verbose {
		return
	}
	for _, cfg := range d.Configurations {
		fmt.Printf("  Configuration %d: %s\n", cfg.ConfigurationValue, cfg.ConfigurationName)
		for _, iface := range cfg.Interfaces {
			alt := iface.Alternate
			fmt.Printf("    Interface %d: class=0x%02x subclass=0x%02x protocol=0x%02x (%d alternate(s))\n",
				iface.InterfaceNumber, alt.InterfaceClass, alt.InterfaceSubClass, alt.InterfaceProtocol, len(iface.Alternates))
			for _, ep := range alt.Endpoints {
				dir := "OUT"
				if ep.Direction == webusb.DirectionIn {
					dir = "IN"
				}
				fmt.Printf("      Endpoint %d %s type=%d packet_size=%d\n", ep.EndpointNumber, dir, ep.Type, ep.PacketSize)
			}
		}
	}
}
