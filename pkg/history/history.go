// Package history records one audit entry per conversion.
//
// Recording is best effort: the pipeline logs a failed write and carries
// on. NullStore is the default; MongoStore persists entries to MongoDB.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicholaspatten/svgit/pkg/settings"
)

// Status values for Record.Status.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record describes one finished conversion.
type Record struct {
	ID          string            `bson:"_id" json:"id"`
	CreatedAt   time.Time         `bson:"created_at" json:"createdAt"`
	Filename    string            `bson:"filename,omitempty" json:"filename,omitempty"`
	MIMEType    string            `bson:"mime_type" json:"mimeType"`
	InputBytes  int64             `bson:"input_bytes" json:"inputBytes"`
	OutputBytes int               `bson:"output_bytes" json:"outputBytes"`
	Width       int               `bson:"width,omitempty" json:"width,omitempty"`
	Height      int               `bson:"height,omitempty" json:"height,omitempty"`
	Engine      string            `bson:"engine" json:"engine"`
	Settings    settings.Settings `bson:"settings" json:"settings"`
	CacheHit    bool              `bson:"cache_hit" json:"cacheHit"`
	Status      string            `bson:"status" json:"status"`
	ErrorCode   string            `bson:"error_code,omitempty" json:"errorCode,omitempty"`
	DurationMS  int64             `bson:"duration_ms" json:"durationMs"`
}

// NewRecord returns a Record with a fresh id and timestamp.
func NewRecord() Record {
	return Record{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// Store persists conversion records.
type Store interface {
	Record(ctx context.Context, r Record) error
	Close() error
}

// NullStore discards every record.
type NullStore struct{}

// Record implements Store.
func (NullStore) Record(context.Context, Record) error { return nil }

// Close implements Store.
func (NullStore) Close() error { return nil }

// MemoryStore keeps records in memory. The CLI and tests use it.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// Record implements Store.
func (m *MemoryStore) Record(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of everything recorded.
func (m *MemoryStore) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
