package apmac

import (
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/dot11"
)

const (
	htCapShortGI20 uint16 = 1 << 5
	vhtCapRxLDPC   uint32 = 1 << 4
)

// shortSlotTimeEnabled is recomputed on every call.
func (a *ApMac) shortSlotTimeEnabled() bool {
	return a.deps.Registry.ShortSlotTimeEnabled(a.erp, a.cfg.ShortSlotTime)
}

func (a *ApMac) shortPreambleEnabled() bool {
	return a.deps.Registry.ShortPreambleEnabled(a.erp, a.deps.Rates.ShortPreambleSupported())
}

func (a *ApMac) useNonErpProtection() bool {
	return a.deps.Registry.HasNonErp() && a.cfg.NonErpProtection
}

// supportedRates advertises every PHY mode. Mandatory modes other than
// HR-DSSS form the basic rate set.
func (a *ApMac) supportedRates() dot11.RateSet {
	var rs dot11.RateSet
	if a.ht || a.vht || a.he {
		rs.AddBSSMembershipSelector(dot11.BSSMembershipHT)
	}
	if a.vht {
		rs.AddBSSMembershipSelector(dot11.BSSMembershipVHT)
	}
	for _, m := range a.deps.Rates.Modes() {
		rs.AddSupportedRate(m.DataRate)
	}
	for _, m := range a.basicModes {
		rs.SetBasicRate(m.DataRate)
	}
	return rs
}

func (a *ApMac) capabilities() dot11.CapabilityInfo {
	c := dot11.CapESS
	c.Set(dot11.CapShortPreamble, a.shortPreambleEnabled())
	c.Set(dot11.CapShortSlotTime, a.shortSlotTimeEnabled())
	return c
}

func (a *ApMac) erpInformation() dot11.ERPInformation {
	return dot11.ERPInformation{
		NonERPPresent:      a.deps.Registry.HasNonErp(),
		UseProtection:      a.useNonErpProtection(),
		BarkerPreambleMode: !a.shortPreambleEnabled(),
	}
}

func (a *ApMac) edcaParameterSet() dot11.EDCAParameterSet {
	var p dot11.EDCAParameterSet
	order := []domain.AccessCategory{domain.ACBestEffort, domain.ACBackground, domain.ACVideo, domain.ACVoice}
	for i, ac := range order {
		e := a.cfg.Edca[ac]
		p.Records[i] = dot11.EDCARecord{
			ACI:       uint8(ac),
			AIFSN:     e.AIFSN,
			CWMin:     e.CWMin,
			CWMax:     e.CWMax,
			TXOPLimit: uint16(e.TXOPLimit.Microseconds() / 32),
		}
	}
	return p
}

func (a *ApMac) htCapabilities() dot11.HTCapabilities {
	c := dot11.HTCapabilities{Info: htCapShortGI20}
	for _, m := range a.deps.Rates.McsList(domain.ModClassHT) {
		c.SetSupportedMCS(m.MCS)
	}
	return c
}

// htOperation advertises mixed mode protection whenever a non-HT station is
// associated.
func (a *ApMac) htOperation() dot11.HTOperation {
	o := dot11.HTOperation{
		PrimaryChannel: a.deps.Rates.Channel(),
		Protection:     dot11.HTNoProtection,
	}
	if a.deps.Registry.HasNonHT() {
		o.Protection = dot11.HTMixedModeProtection
	}
	for _, m := range a.basicMcs {
		o.BasicMCS[m.MCS/8] |= 1 << (m.MCS % 8)
	}
	return o
}

// vhtMcsMap builds a one spatial stream MCS map covering the highest VHT MCS
// of the PHY.
func (a *ApMac) vhtMcsMap() uint16 {
	var highest uint8
	for _, mode := range a.deps.Rates.McsList(domain.ModClassVHT) {
		if mode.MCS > highest {
			highest = mode.MCS
		}
	}
	switch {
	case highest >= 9:
		return 0xfffc | dot11.VHTMCS0To9
	case highest == 8:
		return 0xfffc | dot11.VHTMCS0To8
	default:
		return 0xfffc | dot11.VHTMCS0To7
	}
}

func (a *ApMac) vhtCapabilities() dot11.VHTCapabilities {
	m := a.vhtMcsMap()
	return dot11.VHTCapabilities{
		Info:     vhtCapRxLDPC,
		RxMCSMap: m,
		TxMCSMap: m,
	}
}

func (a *ApMac) vhtOperation() dot11.VHTOperation {
	return dot11.VHTOperation{
		BasicMCSMap: 0xfffc | dot11.VHTMCS0To7,
	}
}

func (a *ApMac) heOperation() dot11.HEOperation {
	return dot11.HEOperation{BSSColor: a.cfg.BSSColor}
}

// operationalElements appends the elements shared by beacons, probe
// responses and association responses, each only when the PHY supports the
// corresponding feature.
func (a *ApMac) operationalElements(l *dot11.ElementList, withDSSS bool) {
	if withDSSS && a.dsss {
		l.AddDSSS(dot11.DSSSParameterSet{Channel: a.deps.Rates.Channel()})
	}
	if a.erp {
		l.AddERP(a.erpInformation())
	}
	if a.cfg.QoS {
		l.AddEDCA(a.edcaParameterSet())
	}
	if a.ht || a.vht || a.he {
		l.AddHTCapabilities(a.htCapabilities())
		l.AddHTOperation(a.htOperation())
	}
	if a.vht {
		l.AddVHTCapabilities(a.vhtCapabilities())
		l.AddVHTOperation(a.vhtOperation())
	}
	if a.he {
		l.AddHEOperation(a.heOperation())
	}
}
