package storage

import (
	"encoding/json"
	"fmt"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
)

// toDomain converts a database model to a domain entity.
func toDomain(m StationModel) (*domain.Station, error) {
	mac, err := domain.ParseMAC(m.MAC)
	if err != nil {
		return nil, fmt.Errorf("stored station: %w", err)
	}
	s := &domain.Station{
		MAC:   mac,
		AID:   m.AID,
		State: domain.AssocState(m.State),
		Capabilities: domain.StationCapabilities{
			ShortPreamble: m.ShortPreamble,
			ShortSlotTime: m.ShortSlotTime,
			ERP:           m.ERP,
			DSSS:          m.DSSS,
			OFDM:          m.OFDM,
			HT:            m.HT,
			VHT:           m.VHT,
			HE:            m.HE,
		},
		NonERP:     m.NonERP,
		NonHT:      m.NonHT,
		FirstSeen:  m.FirstSeen,
		LastChange: m.LastChange,
	}
	if m.SupportedModes != "" {
		_ = json.Unmarshal([]byte(m.SupportedModes), &s.SupportedModes)
	}
	return s, nil
}

// toModel converts a domain entity to a database model.
func toModel(s domain.Station) StationModel {
	model := StationModel{
		MAC:           s.MAC.String(),
		AID:           s.AID,
		State:         string(s.State),
		ShortPreamble: s.Capabilities.ShortPreamble,
		ShortSlotTime: s.Capabilities.ShortSlotTime,
		ERP:           s.Capabilities.ERP,
		DSSS:          s.Capabilities.DSSS,
		OFDM:          s.Capabilities.OFDM,
		HT:            s.Capabilities.HT,
		VHT:           s.Capabilities.VHT,
		HE:            s.Capabilities.HE,
		NonERP:        s.NonERP,
		NonHT:         s.NonHT,
		FirstSeen:     s.FirstSeen,
		LastChange:    s.LastChange,
	}
	if s.SupportedModes != nil {
		b, _ := json.Marshal(s.SupportedModes)
		model.SupportedModes = string(b)
	}
	return model
}

func toEventModel(ev domain.StationEvent) EventModel {
	return EventModel{
		MAC:   ev.Station.MAC.String(),
		Type:  string(ev.Type),
		AID:   ev.Station.AID,
		State: string(ev.Station.State),
		TID:   ev.TID,
		Time:  ev.Time,
	}
}

func toEvent(m EventModel) (domain.StationEvent, error) {
	mac, err := domain.ParseMAC(m.MAC)
	if err != nil {
		return domain.StationEvent{}, fmt.Errorf("stored event %s: %w", m.ID, err)
	}
	return domain.StationEvent{
		Type: domain.StationEventType(m.Type),
		Station: domain.Station{
			MAC:   mac,
			AID:   m.AID,
			State: domain.AssocState(m.State),
		},
		TID:       m.TID,
		Time:      m.Time,
		SessionID: m.SessionID,
	}, nil
}
