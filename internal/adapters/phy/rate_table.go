package phy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// ErrUnknownStandard is returned for a standard name with no table.
var ErrUnknownStandard = errors.New("unknown 802.11 standard")

// Standard names accepted by ForStandard.
const (
	Standard80211b  = "b"
	Standard80211g  = "g"
	Standard80211a  = "a"
	Standard80211n  = "n"
	Standard80211ac = "ac"
	Standard80211ax = "ax"
)

type modulation struct {
	bits    uint64 // coded bits per subcarrier
	codeNum uint64
	codeDen uint64
}

var (
	bpsk12  = modulation{1, 1, 2}
	bpsk34  = modulation{1, 3, 4}
	qpsk12  = modulation{2, 1, 2}
	qpsk34  = modulation{2, 3, 4}
	qam1612 = modulation{4, 1, 2}
	qam1634 = modulation{4, 3, 4}
	qam6423 = modulation{6, 2, 3}
	qam6434 = modulation{6, 3, 4}
	qam6456 = modulation{6, 5, 6}
	qam256  = modulation{8, 3, 4}
	qam2565 = modulation{8, 5, 6}
	qam1k34 = modulation{10, 3, 4}
	qam1k56 = modulation{10, 5, 6}
)

// ofdmRate returns subcarriers x bits x code rate / symbol duration, in b/s.
func ofdmRate(subcarriers uint64, m modulation, symbolNs uint64) uint64 {
	return subcarriers * m.bits * m.codeNum * 1e9 / (m.codeDen * symbolNs)
}

var legacyOFDM = []modulation{bpsk12, bpsk34, qpsk12, qpsk34, qam1612, qam1634, qam6423, qam6434}

var mcsModulation = []modulation{
	bpsk12, qpsk12, qpsk34, qam1612, qam1634, qam6423, qam6434, qam6456,
	qam256, qam2565, qam1k34, qam1k56,
}

func dsssModes() []domain.WifiMode {
	return []domain.WifiMode{
		{Name: "DsssRate1Mbps", Class: domain.ModClassDSSS, DataRate: 1000000, Mandatory: true},
		{Name: "DsssRate2Mbps", Class: domain.ModClassDSSS, DataRate: 2000000, Mandatory: true},
		{Name: "DsssRate5_5Mbps", Class: domain.ModClassHRDSSS, DataRate: 5500000, Mandatory: true},
		{Name: "DsssRate11Mbps", Class: domain.ModClassHRDSSS, DataRate: 11000000, Mandatory: true},
	}
}

func ofdmModes(class domain.ModulationClass, prefix string) []domain.WifiMode {
	modes := make([]domain.WifiMode, 0, len(legacyOFDM))
	for _, m := range legacyOFDM {
		rate := ofdmRate(48, m, 4000)
		modes = append(modes, domain.WifiMode{
			Name:      fmt.Sprintf("%sRate%dMbps", prefix, rate/1000000),
			Class:     class,
			DataRate:  rate,
			Mandatory: rate == 6000000 || rate == 12000000 || rate == 24000000,
		})
	}
	return modes
}

func mcsModes(class domain.ModulationClass, count int, subcarriers, symbolNs uint64) []domain.WifiMode {
	modes := make([]domain.WifiMode, 0, count)
	for i := 0; i < count; i++ {
		modes = append(modes, domain.WifiMode{
			Name:      fmt.Sprintf("%sMcs%d", class, i),
			Class:     class,
			DataRate:  ofdmRate(subcarriers, mcsModulation[i], symbolNs),
			Mandatory: i == 0,
			MCS:       uint8(i),
		})
	}
	return modes
}

// RateTable implements ports.RateService for one standard at 20 MHz with a
// single spatial stream and long guard interval.
type RateTable struct {
	standard      string
	channel       uint8
	modes         []domain.WifiMode
	mcs           map[domain.ModulationClass][]domain.WifiMode
	shortPreamble bool
}

// ForStandard builds the table of a standard. A zero channel selects 1 for
// 2.4 GHz standards and 36 otherwise.
func ForStandard(standard string, channel uint8) (*RateTable, error) {
	t := &RateTable{
		standard: strings.ToLower(standard),
		channel:  channel,
		mcs:      make(map[domain.ModulationClass][]domain.WifiMode),
	}
	fiveGHz := false
	switch t.standard {
	case Standard80211b:
		t.modes = dsssModes()
		t.shortPreamble = true
	case Standard80211g:
		t.modes = append(dsssModes(), ofdmModes(domain.ModClassERPOFDM, "ErpOfdm")...)
		t.shortPreamble = true
	case Standard80211n:
		t.modes = append(dsssModes(), ofdmModes(domain.ModClassERPOFDM, "ErpOfdm")...)
		t.shortPreamble = true
		t.mcs[domain.ModClassHT] = mcsModes(domain.ModClassHT, 8, 52, 4000)
	case Standard80211a:
		t.modes = ofdmModes(domain.ModClassOFDM, "Ofdm")
		fiveGHz = true
	case Standard80211ac:
		t.modes = ofdmModes(domain.ModClassOFDM, "Ofdm")
		t.mcs[domain.ModClassHT] = mcsModes(domain.ModClassHT, 8, 52, 4000)
		t.mcs[domain.ModClassVHT] = mcsModes(domain.ModClassVHT, 10, 52, 4000)
		fiveGHz = true
	case Standard80211ax:
		t.modes = ofdmModes(domain.ModClassOFDM, "Ofdm")
		t.mcs[domain.ModClassHT] = mcsModes(domain.ModClassHT, 8, 52, 4000)
		t.mcs[domain.ModClassVHT] = mcsModes(domain.ModClassVHT, 10, 52, 4000)
		t.mcs[domain.ModClassHE] = mcsModes(domain.ModClassHE, 12, 234, 13600)
		fiveGHz = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStandard, standard)
	}
	if t.channel == 0 {
		t.channel = 1
		if fiveGHz {
			t.channel = 36
		}
	}
	return t, nil
}

// Standard returns the normalized standard name.
func (t *RateTable) Standard() string { return t.standard }

// Modes returns the non-MCS modes.
func (t *RateTable) Modes() []domain.WifiMode {
	out := make([]domain.WifiMode, len(t.modes))
	copy(out, t.modes)
	return out
}

// McsList returns the MCSs of one class.
func (t *RateTable) McsList(class domain.ModulationClass) []domain.WifiMode {
	list := t.mcs[class]
	if list == nil {
		return nil
	}
	out := make([]domain.WifiMode, len(list))
	copy(out, list)
	return out
}

// Supports reports whether the standard implements a modulation class.
func (t *RateTable) Supports(class domain.ModulationClass) bool {
	if class.IsMcsClass() {
		return len(t.mcs[class]) > 0
	}
	for _, m := range t.modes {
		if m.Class == class {
			return true
		}
	}
	return false
}

func (t *RateTable) ShortPreambleSupported() bool { return t.shortPreamble }

// DisableShortPreamble turns off PHY short preamble support.
func (t *RateTable) DisableShortPreamble() { t.shortPreamble = false }

// BasicMode returns the lowest mandatory mode. Group and management frames
// are sent with it.
func (t *RateTable) BasicMode() domain.WifiMode {
	for _, m := range t.modes {
		if m.Mandatory {
			return m
		}
	}
	return t.modes[0]
}

func (t *RateTable) Channel() uint8 { return t.channel }
