package dot11

import (
	"fmt"
	"strings"
)

// BSS membership selectors advertised in the supported rates element.
const (
	BSSMembershipHT  uint8 = 127
	BSSMembershipVHT uint8 = 126
)

const (
	rateBasicFlag     = 0x80
	maxSupportedRates = 8
)

// RateSet is the content of the Supported Rates and Extended Supported
// Rates elements. Rates are stored in units of 500 kb/s.
type RateSet struct {
	rates     []uint8 // low 7 bits rate, high bit basic
	selectors []uint8
}

func rateUnits(bps uint64) uint8 {
	return uint8(bps / 500000)
}

// AddSupportedRate adds a rate given in bits per second. Duplicates are
// ignored.
func (r *RateSet) AddSupportedRate(bps uint64) {
	u := rateUnits(bps)
	for _, v := range r.rates {
		if v&^rateBasicFlag == u {
			return
		}
	}
	r.rates = append(r.rates, u)
}

// SetBasicRate marks a rate as basic, adding it when absent.
func (r *RateSet) SetBasicRate(bps uint64) {
	u := rateUnits(bps)
	for i, v := range r.rates {
		if v&^rateBasicFlag == u {
			r.rates[i] |= rateBasicFlag
			return
		}
	}
	r.rates = append(r.rates, u|rateBasicFlag)
}

// AddBSSMembershipSelector adds an HT/VHT selector. Selectors always carry
// the basic flag on the air.
func (r *RateSet) AddBSSMembershipSelector(sel uint8) {
	for _, s := range r.selectors {
		if s == sel {
			return
		}
	}
	r.selectors = append(r.selectors, sel)
}

// IsSupportedRate reports whether the rate is in the set.
func (r RateSet) IsSupportedRate(bps uint64) bool {
	u := rateUnits(bps)
	for _, v := range r.rates {
		if v&^rateBasicFlag == u {
			return true
		}
	}
	return false
}

// IsBasicRate reports whether the rate is in the set and flagged basic.
func (r RateSet) IsBasicRate(bps uint64) bool {
	u := rateUnits(bps)
	for _, v := range r.rates {
		if v == u|rateBasicFlag {
			return true
		}
	}
	return false
}

// HasSelector reports whether a BSS membership selector is present.
func (r RateSet) HasSelector(sel uint8) bool {
	for _, s := range r.selectors {
		if s == sel {
			return true
		}
	}
	return false
}

// Len returns the number of rates, selectors excluded.
func (r RateSet) Len() int { return len(r.rates) }

func (r RateSet) encoded() []byte {
	out := make([]byte, 0, len(r.selectors)+len(r.rates))
	for _, s := range r.selectors {
		out = append(out, s|rateBasicFlag)
	}
	return append(out, r.rates...)
}

// AppendTo adds the Supported Rates element and, when more than eight
// entries are needed, the Extended Supported Rates element.
func (r RateSet) AppendTo(l *ElementList) {
	all := r.encoded()
	if len(all) <= maxSupportedRates {
		l.Add(ElemRates, all)
		return
	}
	l.Add(ElemRates, all[:maxSupportedRates])
	l.Add(ElemExtendedRates, all[maxSupportedRates:])
}

// ParseRateSet merges the Supported Rates and Extended Supported Rates
// elements of a list.
func ParseRateSet(l ElementList) (RateSet, error) {
	var r RateSet
	found := false
	for _, e := range l {
		if e.ID != ElemRates && e.ID != ElemExtendedRates {
			continue
		}
		found = true
		for _, v := range e.Info {
			u := v &^ rateBasicFlag
			if v&rateBasicFlag != 0 && (u == BSSMembershipHT || u == BSSMembershipVHT) {
				r.selectors = append(r.selectors, u)
				continue
			}
			r.rates = append(r.rates, v)
		}
	}
	if !found {
		return r, fmt.Errorf("%w: no supported rates element", ErrMalformedFrame)
	}
	return r, nil
}

func (r RateSet) String() string {
	parts := make([]string, 0, len(r.rates))
	for _, v := range r.rates {
		s := fmt.Sprintf("%.1f", float64(v&^rateBasicFlag)/2)
		if v&rateBasicFlag != 0 {
			s += "*"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
