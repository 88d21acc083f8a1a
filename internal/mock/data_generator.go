package mock

import (
	"fmt"
	"math/rand/v2"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/dot11"
)

// Station profiles, named after the newest amendment the device implements.
const (
	ProfileB  = "b"
	ProfileG  = "g"
	ProfileN  = "n"
	ProfileAC = "ac"
	ProfileAX = "ax"
)

const mbps = 1000000

var (
	dsssRates = []uint64{1 * mbps, 2 * mbps, 5500000, 11 * mbps}
	ofdmRates = []uint64{6 * mbps, 9 * mbps, 12 * mbps, 18 * mbps, 24 * mbps, 36 * mbps, 48 * mbps, 54 * mbps}
)

// Vendor OUI prefixes (first 3 bytes of MAC)
var vendorPrefixes = map[string][3]byte{
	"Apple":     {0x00, 0x17, 0xF2},
	"Samsung":   {0x00, 0x12, 0xFB},
	"Google":    {0xF4, 0xF5, 0xD8},
	"Amazon":    {0xFC, 0xA6, 0x67},
	"Xiaomi":    {0x34, 0xCE, 0x00},
	"Huawei":    {0x00, 0xE0, 0xFC},
	"Intel":     {0x00, 0x13, 0x02},
	"Espressif": {0x24, 0x0A, 0xC4},
	"Sony":      {0x00, 0x13, 0xA9},
	"Nintendo":  {0x00, 0x1F, 0x32},
}

// vendorOrder keeps vendor selection deterministic for a seeded generator.
var vendorOrder = []string{"Apple", "Samsung", "Google", "Amazon", "Xiaomi", "Huawei", "Intel", "Espressif", "Sony", "Nintendo"}

// Device names per profile
var deviceNames = map[string][]string{
	ProfileB:  {"Barcode Scanner", "Legacy Printer", "Nintendo DS"},
	ProfileG:  {"ESP8266 Sensor", "Wii", "Kindle Keyboard", "IP Camera"},
	ProfileN:  {"Amazon Echo", "Chromecast", "Smart Plug", "Raspberry Pi 3"},
	ProfileAC: {"iPhone 12", "MacBook Air", "Galaxy S20", "ThinkPad X1", "PlayStation 5"},
	ProfileAX: {"iPhone 15 Pro", "Pixel 8", "Galaxy S23", "MacBook Pro M3", "Surface Laptop 5"},
}

// MockStation is a simulated client device.
type MockStation struct {
	MAC        domain.MAC
	Vendor     string
	DeviceName string
	Profile    string
}

// HasQoS reports whether the device speaks QoS data.
func (s MockStation) HasQoS() bool {
	return s.Profile == ProfileN || s.Profile == ProfileAC || s.Profile == ProfileAX
}

// DataGenerator produces mock stations
type DataGenerator struct {
	rand *rand.Rand
	used map[domain.MAC]struct{}
}

// NewDataGenerator creates a new mock data generator
func NewDataGenerator(rng *rand.Rand) *DataGenerator {
	return &DataGenerator{
		rand: rng,
		used: make(map[domain.MAC]struct{}),
	}
}

// GenerateMAC generates a unique address with the vendor's OUI, or a random
// vendor when the name is unknown.
func (g *DataGenerator) GenerateMAC(vendor string) (domain.MAC, string) {
	prefix, ok := vendorPrefixes[vendor]
	if !ok {
		vendor = vendorOrder[g.rand.IntN(len(vendorOrder))]
		prefix = vendorPrefixes[vendor]
	}
	for {
		mac := domain.MAC{prefix[0], prefix[1], prefix[2], byte(g.rand.IntN(256)), byte(g.rand.IntN(256)), byte(g.rand.IntN(256))}
		if _, dup := g.used[mac]; dup {
			continue
		}
		g.used[mac] = struct{}{}
		return mac, vendor
	}
}

// GenerateStation creates a station of the given profile.
func (g *DataGenerator) GenerateStation(profile string) (MockStation, error) {
	names, ok := deviceNames[profile]
	if !ok {
		return MockStation{}, fmt.Errorf("unknown station profile %q", profile)
	}
	mac, vendor := g.GenerateMAC("")
	return MockStation{
		MAC:        mac,
		Vendor:     vendor,
		DeviceName: names[g.rand.IntN(len(names))],
		Profile:    profile,
	}, nil
}

// AssocElements returns the elements a station of this profile puts in its
// association request.
func (s MockStation) AssocElements(ssid string) dot11.ElementList {
	var rs dot11.RateSet
	for _, r := range dsssRates {
		rs.AddSupportedRate(r)
	}
	if s.Profile != ProfileB {
		for _, r := range ofdmRates {
			rs.AddSupportedRate(r)
		}
	}
	var l dot11.ElementList
	l.AddSSID(ssid)
	rs.AppendTo(&l)
	if !s.HasQoS() {
		return l
	}

	ht := dot11.HTCapabilities{Info: 0x0001}
	for mcs := uint8(0); mcs < 8; mcs++ {
		ht.SetSupportedMCS(mcs)
	}
	l.AddHTCapabilities(ht)
	if s.Profile == ProfileN {
		return l
	}
	// One spatial stream up to MCS 9, the rest not available.
	mcsMap := dot11.VHTMCS0To9
	for nss := 1; nss < 8; nss++ {
		mcsMap |= dot11.VHTMCSNotAvail << (2 * nss)
	}
	l.AddVHTCapabilities(dot11.VHTCapabilities{
		Info:     0x00000002,
		RxMCSMap: mcsMap,
		TxMCSMap: mcsMap,
	})
	return l
}

// Capabilities returns the capability information field the station sends.
func (s MockStation) Capabilities() dot11.CapabilityInfo {
	c := dot11.CapESS
	if s.Profile != ProfileB {
		c |= dot11.CapShortPreamble | dot11.CapShortSlotTime
	}
	return c
}
