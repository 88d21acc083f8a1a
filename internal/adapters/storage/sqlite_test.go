package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	staA = domain.MustParseMAC("02:00:00:00:00:0a")
	staB = domain.MustParseMAC("02:00:00:00:00:0b")
)

// setupDB creates a file-backed SQLiteAdapter in a temporary directory
func setupDB(t *testing.T) *SQLiteAdapter {
	t.Helper()
	adapter, err := NewSQLiteAdapter(filepath.Join(t.TempDir(), "apmac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func TestSQLiteAdapter_SaveAndGetStation(t *testing.T) {
	adapter := setupDB(t)
	ctx := context.Background()
	now := time.Now()

	st := domain.Station{
		MAC:            staA,
		AID:            1,
		State:          domain.StateAssociated,
		Capabilities:   domain.StationCapabilities{ERP: true, HT: true, ShortSlotTime: true},
		SupportedModes: []string{"ErpOfdmRate54Mbps", "HtMcs7"},
		FirstSeen:      now,
		LastChange:     now,
	}
	require.NoError(t, adapter.SaveStationsBatch(ctx, []domain.Station{st}))

	stored, err := adapter.GetStation(ctx, staA)
	require.NoError(t, err)
	assert.Equal(t, staA, stored.MAC)
	assert.Equal(t, uint16(1), stored.AID)
	assert.Equal(t, domain.StateAssociated, stored.State)
	assert.Equal(t, st.Capabilities, stored.Capabilities)
	assert.Equal(t, st.SupportedModes, stored.SupportedModes)
	assert.WithinDuration(t, now, stored.LastChange, time.Millisecond)
}

func TestSQLiteAdapter_SaveStationsBatch_Upsert(t *testing.T) {
	adapter := setupDB(t)
	ctx := context.Background()

	require.NoError(t, adapter.SaveStationsBatch(ctx, []domain.Station{
		{MAC: staB, AID: 2, State: domain.StatePendingConfirmation},
		{MAC: staA, AID: 1, State: domain.StatePendingConfirmation},
	}))
	require.NoError(t, adapter.SaveStationsBatch(ctx, []domain.Station{
		{MAC: staA, AID: 1, State: domain.StateAssociated, NonERP: true},
	}))
	require.NoError(t, adapter.SaveStationsBatch(ctx, nil))

	all, err := adapter.ListStations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, staA, all[0].MAC, "ordered by AID")
	assert.Equal(t, domain.StateAssociated, all[0].State)
	assert.True(t, all[0].NonERP)
	assert.Equal(t, domain.StatePendingConfirmation, all[1].State)
}

func TestSQLiteAdapter_GetStation_NotFound(t *testing.T) {
	adapter := setupDB(t)
	_, err := adapter.GetStation(context.Background(), staA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteAdapter_Events_Sessions(t *testing.T) {
	adapter := setupDB(t)
	ctx := context.Background()
	base := time.Now()

	save := func(i int, mac domain.MAC, typ domain.StationEventType) {
		require.NoError(t, adapter.SaveEvent(ctx, domain.StationEvent{
			Type:    typ,
			Station: domain.Station{MAC: mac, AID: 1},
			Time:    base.Add(time.Duration(i) * time.Second),
		}))
	}
	save(0, staA, domain.EventAssocPending)
	save(1, staA, domain.EventAssociated)
	save(2, staA, domain.EventBlockAckCreated)
	save(3, staA, domain.EventDisassociated)
	save(4, staA, domain.EventAssocPending)
	save(5, staB, domain.EventAssocRejected)

	events, err := adapter.ListEvents(ctx, staA, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)

	// Newest first.
	assert.Equal(t, domain.EventAssocPending, events[0].Type)
	first := events[4].SessionID
	require.NotEmpty(t, first)
	for _, ev := range events[1:4] {
		assert.Equal(t, first, ev.SessionID, ev.Type)
	}
	assert.NotEqual(t, first, events[0].SessionID, "a new attempt opens a new session")

	limited, err := adapter.ListEvents(ctx, domain.MAC{}, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, staB, limited[0].Station.MAC)
	assert.NotEmpty(t, limited[0].SessionID)
}

func TestSQLiteAdapter_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apmac.db")
	ctx := context.Background()

	store, err := NewSQLiteAdapter(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveStationsBatch(ctx, []domain.Station{{MAC: staA, AID: 7, State: domain.StateAssociated}}))
	require.NoError(t, store.Close())

	store2, err := NewSQLiteAdapter(path)
	require.NoError(t, err)
	defer store2.Close()
	loaded, err := store2.GetStation(ctx, staA)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), loaded.AID)
}
