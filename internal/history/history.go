package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/model"
)

// Store defines the event-history database operations.
type Store interface {
	Record(ctx context.Context, ev engine.Event) error
	RecentForMachine(ctx context.Context, machine string, limit int) ([]model.AccessEvent, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed event history store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for handlers that need it.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Record persists one audit event.
func (s *gormStore) Record(ctx context.Context, ev engine.Event) error {
	row := model.AccessEvent{
		MachineName:     ev.Machine,
		Kind:            string(ev.Kind),
		OccurredAt:      ev.Time,
		FobCode:         ev.FobCode,
		UserName:        ev.UserName,
		AccountID:       ev.AccountID,
		KnownUser:       ev.KnownUser,
		Authorized:      ev.Authorized,
		DurationSeconds: int64(ev.Duration / time.Second),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record access event for %s: %w", ev.Machine, err)
	}
	return nil
}

// RecentForMachine returns the newest events for one machine, newest first.
func (s *gormStore) RecentForMachine(ctx context.Context, machine string, limit int) ([]model.AccessEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []model.AccessEvent
	err := s.db.WithContext(ctx).
		Where("machine_name = ?", machine).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch events for %s: %w", machine, err)
	}
	return rows, nil
}
