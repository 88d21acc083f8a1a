package reporting

import (
	"fmt"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// backlogWarning is the queued-frame count above which the report flags
// congestion.
const backlogWarning = 256

// FindingsEngine derives operator-facing observations from a BSS snapshot.
type FindingsEngine struct{}

// NewFindingsEngine creates a new findings engine instance
func NewFindingsEngine() *FindingsEngine {
	return &FindingsEngine{}
}

// Evaluate returns the findings for status and stats, warnings first.
func (fe *FindingsEngine) Evaluate(status domain.BSSStatus, stats domain.ReportStats) []domain.Finding {
	var warnings, infos []domain.Finding
	add := func(f domain.Finding) {
		if f.Level == domain.FindingWarning {
			warnings = append(warnings, f)
		} else {
			infos = append(infos, f)
		}
	}

	if !status.BeaconGeneration {
		add(domain.Finding{
			Level:  domain.FindingWarning,
			Title:  "Beacon generation disabled",
			Detail: "Stations can only find the BSS through active scanning.",
		})
	}
	if status.BeaconIntervalUs%1024 != 0 {
		add(domain.Finding{
			Level:  domain.FindingWarning,
			Title:  "Beacon interval not a whole number of time units",
			Detail: fmt.Sprintf("%dus is not a multiple of 1024us; some stations miscompute their wake-up times.", status.BeaconIntervalUs),
		})
	}

	if status.NonErpPresent {
		if status.NonErpProtection {
			add(domain.Finding{
				Level:  domain.FindingInfo,
				Title:  "ERP protection active",
				Detail: "Non-ERP stations are associated; OFDM frames are protected.",
			})
		} else {
			add(domain.Finding{
				Level:  domain.FindingWarning,
				Title:  "Non-ERP stations without protection",
				Detail: "DSSS-only stations cannot detect OFDM transmissions. Enable non-ERP protection.",
			})
		}
	}
	if status.NonHTPresent {
		add(domain.Finding{
			Level:  domain.FindingWarning,
			Title:  "Legacy stations in an HT BSS",
			Detail: "HT mixed-mode protection is advertised, which lowers throughput for every station.",
		})
	}
	if n := stats.Generations["DSSS"]; n > 0 {
		add(domain.Finding{
			Level:  domain.FindingInfo,
			Title:  "DSSS-only stations",
			Detail: fmt.Sprintf("%d station(s) support only 1-11 Mb/s rates.", n),
		})
	}

	if status.Backlog > backlogWarning {
		add(domain.Finding{
			Level:  domain.FindingWarning,
			Title:  "Transmit backlog",
			Detail: fmt.Sprintf("%d frames are waiting in the transmit queues.", status.Backlog),
		})
	}
	if stats.Pending > 0 {
		add(domain.Finding{
			Level:  domain.FindingInfo,
			Title:  "Associations pending",
			Detail: fmt.Sprintf("%d association response(s) awaiting acknowledgement.", stats.Pending),
		})
	}
	if stats.Associated == 0 {
		add(domain.Finding{
			Level: domain.FindingInfo,
			Title: "No associated stations",
		})
	}
	if !status.PersistenceEnabled {
		add(domain.Finding{
			Level:  domain.FindingInfo,
			Title:  "Persistence disabled",
			Detail: "Station history is not being recorded.",
		})
	}

	return append(warnings, infos...)
}
