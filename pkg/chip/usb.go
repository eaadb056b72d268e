package chip

import "strings"

type usbID struct {
	vid string
	pid string
}

// Known USB identifiers for ESP32 boards. The common serial bridges (CP210x,
// CH340, FTDI) sit between the host and any silicon, so they can only tell us
// the port is probably an ESP32 dev board, not which variant. Espressif's
// native USB-Serial/JTAG peripheral (303a:1001) is on-die but shared across
// the C3/S3/C6 lines, so it cannot pin the variant either.
var usbIDs = map[usbID]Model{
	{"303a", "1001"}: Unknown, // Espressif USB-Serial/JTAG
	{"303a", "0002"}: ESP32S3, // ESP32-S3 USB-OTG (TinyUSB CDC)
	{"10c4", "ea60"}: Unknown, // Silicon Labs CP210x
	{"1a86", "7523"}: Unknown, // WCH CH340
	{"1a86", "55d4"}: Unknown, // WCH CH9102
	{"0403", "6001"}: Unknown, // FTDI FT232R
	{"0403", "6010"}: Unknown, // FTDI FT2232 (many ESP32 devkits)
}

// FromUSB guesses a chip model from a port's USB vendor/product IDs. The
// second return reports whether the IDs belong to hardware commonly found on
// ESP32 boards at all; when it is false the port is probably not an ESP32.
func FromUSB(vid, pid string) (Model, bool) {
	m, ok := usbIDs[usbID{strings.ToLower(vid), strings.ToLower(pid)}]
	if !ok {
		return Unknown, false
	}
	return m, true
}
