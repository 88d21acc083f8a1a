package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// ErrNotFound is returned when a station has no stored record.
var ErrNotFound = domain.ErrStationNotFound

// SQLiteAdapter implements ports.StationStore using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB

	mu       sync.Mutex
	sessions map[string]string // MAC -> open association session
}

// StationModel is the GORM model for stations.
type StationModel struct {
	MAC   string `gorm:"primaryKey"`
	AID   uint16 `gorm:"index"`
	State string

	ShortPreamble bool
	ShortSlotTime bool
	ERP           bool
	DSSS          bool
	OFDM          bool
	HT            bool
	VHT           bool
	HE            bool

	SupportedModes string // JSON encoded []string
	NonERP         bool
	NonHT          bool
	FirstSeen      time.Time
	LastChange     time.Time
}

// EventModel is one row of station history.
type EventModel struct {
	ID        string `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	MAC       string `gorm:"index"`
	Type      string
	AID       uint16
	State     string
	TID       uint8
	Time      time.Time `gorm:"index"`
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("enable tracing: %w", err)
	}
	return newAdapter(db)
}

func newAdapter(db *gorm.DB) (*SQLiteAdapter, error) {
	if err := db.AutoMigrate(&StationModel{}, &EventModel{}); err != nil {
		return nil, err
	}
	db.Exec("CREATE INDEX IF NOT EXISTS idx_station_models_state ON station_models(state)")
	return &SQLiteAdapter{db: db, sessions: make(map[string]string)}, nil
}

// SaveStationsBatch upserts stations in a single transaction.
func (a *SQLiteAdapter) SaveStationsBatch(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}
	models := make([]StationModel, len(stations))
	for i, s := range stations {
		models[i] = toModel(s)
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// SaveEvent appends an event to the station history. Events between an
// association request and the end of that association share a session ID.
func (a *SQLiteAdapter) SaveEvent(ctx context.Context, ev domain.StationEvent) error {
	m := toEventModel(ev)
	m.ID = uuid.New().String()
	m.SessionID = a.session(m.MAC, ev.Type)
	return a.db.WithContext(ctx).Create(&m).Error
}

// session returns the session an event belongs to, opening a new one on
// every association attempt and closing it when the attempt ends.
func (a *SQLiteAdapter) session(mac string, typ domain.StationEventType) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch typ {
	case domain.EventAssocPending, domain.EventAssocRejected:
		id := uuid.New().String()
		if typ == domain.EventAssocPending {
			a.sessions[mac] = id
		}
		return id
	case domain.EventAssocTxFailed, domain.EventDisassociated:
		id := a.sessions[mac]
		delete(a.sessions, mac)
		return id
	default:
		return a.sessions[mac]
	}
}

// GetStation retrieves a station by MAC.
func (a *SQLiteAdapter) GetStation(ctx context.Context, mac domain.MAC) (*domain.Station, error) {
	var model StationModel
	err := a.db.WithContext(ctx).First(&model, "mac = ?", mac.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", mac, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return toDomain(model)
}

// ListStations returns every stored station ordered by AID.
func (a *SQLiteAdapter) ListStations(ctx context.Context) ([]domain.Station, error) {
	var models []StationModel
	if err := a.db.WithContext(ctx).Order("aid").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Station, 0, len(models))
	for _, m := range models {
		s, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// ListEvents returns the most recent events, newest first. A zero MAC
// lists events of every station.
func (a *SQLiteAdapter) ListEvents(ctx context.Context, mac domain.MAC, limit int) ([]domain.StationEvent, error) {
	q := a.db.WithContext(ctx).Order("time desc")
	if !mac.IsZero() {
		q = q.Where("mac = ?", mac.String())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []EventModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StationEvent, 0, len(models))
	for _, m := range models {
		ev, err := toEvent(m)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.StationStore = (*SQLiteAdapter)(nil)
