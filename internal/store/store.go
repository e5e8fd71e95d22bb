package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sensor-endpoint/internal/device"
	"sensor-endpoint/internal/model"
	"sensor-endpoint/internal/threshold"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

const singletonID = 1

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	LoadThresholds(ctx context.Context) (threshold.Config, error)
	SaveThresholds(ctx context.Context, cfg threshold.Config) error

	LoadEvents(ctx context.Context) ([]Entry, error)
	ReplaceEvents(ctx context.Context, entries []Entry) error

	LoadIdentity(ctx context.Context) (device.Identity, error)
	SaveIdentity(ctx context.Context, id device.Identity) error

	UpsertSubscription(ctx context.Context, sub model.AlarmSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (model.AlarmSubscription, error)
	ListSubscriptions(ctx context.Context) ([]model.AlarmSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// LoadThresholds returns the persisted thresholds, or ErrNotFound on a fresh database.
func (s *gormStore) LoadThresholds(ctx context.Context) (threshold.Config, error) {
	var rec model.ThresholdRecord
	if err := s.db.WithContext(ctx).First(&rec, singletonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return threshold.Config{}, ErrNotFound
		}
		return threshold.Config{}, fmt.Errorf("failed to load thresholds: %w", err)
	}
	return threshold.Config{
		HighAlarm: rec.HighAlarm,
		HighWarn:  rec.HighWarn,
		LowAlarm:  rec.LowAlarm,
		LowWarn:   rec.LowWarn,
	}, nil
}

// SaveThresholds upserts the single threshold row.
func (s *gormStore) SaveThresholds(ctx context.Context, cfg threshold.Config) error {
	rec := model.ThresholdRecord{
		ID:        singletonID,
		HighAlarm: cfg.HighAlarm,
		HighWarn:  cfg.HighWarn,
		LowAlarm:  cfg.LowAlarm,
		LowWarn:   cfg.LowWarn,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"high_alarm", "high_warn", "low_alarm", "low_warn", "updated_at"}),
	}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}
	return nil
}

// LoadEvents returns the persisted event log in insertion order.
func (s *gormStore) LoadEvents(ctx context.Context) ([]Entry, error) {
	var records []model.EventRecord
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{Seq: r.Seq, Timestamp: r.Timestamp, Event: r.Event})
	}
	return entries, nil
}

// ReplaceEvents overwrites the persisted event log with entries in one transaction.
func (s *gormStore) ReplaceEvents(ctx context.Context, entries []Entry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.EventRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear events: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		records := make([]model.EventRecord, 0, len(entries))
		for _, e := range entries {
			records = append(records, model.EventRecord{Seq: e.Seq, Timestamp: e.Timestamp, Event: e.Event})
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to write %d events: %w", len(records), err)
		}
		return nil
	})
}

// LoadIdentity returns the persisted vital product data, or ErrNotFound.
func (s *gormStore) LoadIdentity(ctx context.Context) (device.Identity, error) {
	var rec model.DeviceIdentity
	if err := s.db.WithContext(ctx).First(&rec, singletonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return device.Identity{}, ErrNotFound
		}
		return device.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}
	mac, err := device.ParseMAC(rec.MACAddress)
	if err != nil {
		return device.Identity{}, err
	}
	return device.Identity{
		Model:           rec.Model,
		Manufacturer:    rec.Manufacturer,
		SerialNumber:    rec.SerialNumber,
		ManufactureDate: rec.ManufactureDate.UTC(),
		MAC:             mac,
		CountryCode:     rec.CountryCode,
	}, nil
}

// SaveIdentity writes the vital product data row.
func (s *gormStore) SaveIdentity(ctx context.Context, id device.Identity) error {
	rec := model.DeviceIdentity{
		ID:              singletonID,
		Model:           id.Model,
		Manufacturer:    id.Manufacturer,
		SerialNumber:    id.SerialNumber,
		ManufactureDate: id.ManufactureDate,
		MACAddress:      id.MAC.String(),
		CountryCode:     id.CountryCode,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// UpsertSubscription creates or replaces an alarm subscription keyed by endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.AlarmSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.AlarmSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.AlarmSubscription, error) {
	var sub model.AlarmSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sub, ErrNotFound
		}
		return sub, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.AlarmSubscription, error) {
	var subs []model.AlarmSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// EnsureIdentity returns the persisted identity, seeding it from seed on a fresh database.
func EnsureIdentity(ctx context.Context, s Store, seed device.Identity) (device.Identity, error) {
	id, err := s.LoadIdentity(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return device.Identity{}, err
	}
	if err := seed.Validate(); err != nil {
		return device.Identity{}, err
	}
	if err := s.SaveIdentity(ctx, seed); err != nil {
		return device.Identity{}, err
	}
	return seed, nil
}
