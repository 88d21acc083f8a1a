package domain

import "time"

// AccessCategory is a WMM access category.
type AccessCategory uint8

// Access categories, numbered by their EDCA ACI value.
const (
	ACBestEffort AccessCategory = 0
	ACBackground AccessCategory = 1
	ACVideo      AccessCategory = 2
	ACVoice      AccessCategory = 3
)

// AllAccessCategories lists the categories in ACI order.
var AllAccessCategories = []AccessCategory{ACBestEffort, ACBackground, ACVideo, ACVoice}

func (ac AccessCategory) String() string {
	switch ac {
	case ACBestEffort:
		return "AC_BE"
	case ACBackground:
		return "AC_BK"
	case ACVideo:
		return "AC_VI"
	case ACVoice:
		return "AC_VO"
	default:
		return "AC_UNKNOWN"
	}
}

// TIDToAC maps a traffic identifier to its access category using the WMM
// user-priority table. TIDs above 7 are treated as TID 0.
func TIDToAC(tid uint8) AccessCategory {
	switch tid {
	case 1, 2:
		return ACBackground
	case 4, 5:
		return ACVideo
	case 6, 7:
		return ACVoice
	default:
		return ACBestEffort
	}
}

// EdcaParams is the contention parameter set of one access category.
type EdcaParams struct {
	CWMin     uint16        `json:"cw_min"`
	CWMax     uint16        `json:"cw_max"`
	AIFSN     uint8         `json:"aifsn"`
	TXOPLimit time.Duration `json:"txop_limit"`
}

// DefaultEdcaParams returns the 802.11 default EDCA table for an OFDM PHY.
func DefaultEdcaParams() map[AccessCategory]EdcaParams {
	return map[AccessCategory]EdcaParams{
		ACBestEffort: {CWMin: 15, CWMax: 1023, AIFSN: 3},
		ACBackground: {CWMin: 15, CWMax: 1023, AIFSN: 7},
		ACVideo:      {CWMin: 7, CWMax: 15, AIFSN: 2, TXOPLimit: 3008 * time.Microsecond},
		ACVoice:      {CWMin: 3, CWMax: 7, AIFSN: 2, TXOPLimit: 1504 * time.Microsecond},
	}
}
