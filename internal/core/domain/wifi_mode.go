package domain

// ModulationClass groups PHY modes into the families used by the
// association compatibility check.
type ModulationClass string

const (
	ModClassDSSS    ModulationClass = "DSSS"
	ModClassHRDSSS  ModulationClass = "HR-DSSS"
	ModClassERPOFDM ModulationClass = "ERP-OFDM"
	ModClassOFDM    ModulationClass = "OFDM"
	ModClassHT      ModulationClass = "HT"
	ModClassVHT     ModulationClass = "VHT"
	ModClassHE      ModulationClass = "HE"
)

// IsMcsClass reports whether modes of this class are identified by an MCS
// index rather than a legacy rate.
func (c ModulationClass) IsMcsClass() bool {
	return c == ModClassHT || c == ModClassVHT || c == ModClassHE
}

// WifiMode is one PHY transmission mode.
type WifiMode struct {
	Name      string          `json:"name"`
	Class     ModulationClass `json:"class"`
	DataRate  uint64          `json:"data_rate"` // bits per second at the operating width, 1 SS, long GI
	Mandatory bool            `json:"mandatory"`
	MCS       uint8           `json:"mcs,omitempty"` // only meaningful for MCS classes
}
