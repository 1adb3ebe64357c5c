// Package indexer keeps a queryable history of committed market events in a
// SQL database. It is a downstream subscriber and never part of the atomic
// state transition.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"justfriends/core/events"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Record is one stored event.
type Record struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Type       string    `gorm:"size:64;index" json:"type"`
	Hash       string    `gorm:"size:66;index" json:"hash,omitempty"`
	Creator    string    `gorm:"size:42;index" json:"creator,omitempty"`
	Attributes string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName pins the table name.
func (Record) TableName() string { return "market_events" }

// Decode returns the stored event attributes.
func (r Record) Decode() (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(r.Attributes) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &out); err != nil {
		return nil, fmt.Errorf("indexer: decode record %d: %w", r.ID, err)
	}
	return out, nil
}

// Filter narrows a query. Zero fields match everything.
type Filter struct {
	Type    string
	Hash    string
	Creator string
	// AfterID resumes a previous page.
	AfterID uint64
	Limit   int
}

// Store persists events through gorm.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to dsn. postgres:// and postgresql:// URLs use the Postgres
// driver; anything else is treated as a SQLite path or DSN.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("indexer: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("indexer: db required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Store{db: db, logger: slog.Default(), now: time.Now}, nil
}

// SetLogger overrides the logger.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// Emit implements events.Emitter. Write failures are logged and dropped.
func (s *Store) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	if err := s.Append(context.Background(), evt); err != nil {
		s.logger.Warn("event index write failed", "type", evt.EventType(), "error", err)
	}
}

// Append stores evt.
func (s *Store) Append(ctx context.Context, evt events.Event) error {
	payload := events.Payload(evt)
	if payload == nil {
		return nil
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return err
	}
	record := Record{
		Type:       payload.Type,
		Hash:       payload.Attributes["hash"],
		Creator:    payload.Attributes["creator"],
		Attributes: string(attrs),
		CreatedAt:  s.now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// Query returns matching records in insertion order.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	q := s.db.WithContext(ctx).Model(&Record{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Hash != "" {
		q = q.Where("hash = ?", strings.ToLower(filter.Hash))
	}
	if filter.Creator != "" {
		q = q.Where("creator = ?", strings.ToLower(filter.Creator))
	}
	if filter.AfterID > 0 {
		q = q.Where("id > ?", filter.AfterID)
	}
	var out []Record
	if err := q.Order("id asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
