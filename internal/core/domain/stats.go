package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSettings is returned when a settings update carries an
// impossible value.
var ErrInvalidSettings = errors.New("invalid settings")

// BSSStatus is a snapshot of the access point and its stations.
type BSSStatus struct {
	BSSID            MAC    `json:"bssid"`
	SSID             string `json:"ssid"`
	Standard         string `json:"standard"`
	Channel          uint8  `json:"channel"`
	BeaconGeneration bool   `json:"beacon_generation"`
	BeaconIntervalUs int64  `json:"beacon_interval_us"`
	BSSColor         uint8  `json:"bss_color"`
	NonErpProtection bool   `json:"non_erp_protection"`
	ShortSlotTime    bool   `json:"short_slot_time"`
	QoS              bool   `json:"qos"`
	QueueMode        string `json:"queue_mode"`

	// Station counters
	Associated    int  `json:"associated"`
	Pending       int  `json:"pending"`
	NonErpPresent bool `json:"non_erp_present"`
	NonHTPresent  bool `json:"non_ht_present"`

	Backlog            int  `json:"backlog"`
	Agreements         int  `json:"blockack_agreements"`
	PersistenceEnabled bool `json:"persistence_enabled"`

	LastUpdated time.Time `json:"updated_at"`
}

// BeaconInterval returns the beacon period as a duration.
func (s BSSStatus) BeaconInterval() time.Duration {
	return time.Duration(s.BeaconIntervalUs) * time.Microsecond
}

// MaxBSSColor is the largest configurable BSS colour. The HE operation
// element carries only the low six bits.
const MaxBSSColor = 255

// BSSSettings is a partial update of the runtime-tunable AP parameters.
// Nil fields are left unchanged.
type BSSSettings struct {
	BeaconGeneration   *bool  `json:"beacon_generation,omitempty"`
	BeaconIntervalUs   *int64 `json:"beacon_interval_us,omitempty"`
	BSSColor           *uint8 `json:"bss_color,omitempty"`
	NonErpProtection   *bool  `json:"non_erp_protection,omitempty"`
	PersistenceEnabled *bool  `json:"persistence_enabled,omitempty"`
}

// Empty reports whether the update changes nothing.
func (s BSSSettings) Empty() bool {
	return s.BeaconGeneration == nil && s.BeaconIntervalUs == nil && s.BSSColor == nil &&
		s.NonErpProtection == nil && s.PersistenceEnabled == nil
}

// Validate rejects values the AP cannot apply.
func (s BSSSettings) Validate() error {
	if s.BeaconIntervalUs != nil && *s.BeaconIntervalUs <= 0 {
		return fmt.Errorf("%w: beacon interval %dus", ErrInvalidSettings, *s.BeaconIntervalUs)
	}
	return nil
}
