// Package recon persists reconciliation records for access-control operations
// that left the policy engine and the room ACL disagreeing. The two stores are
// never jointly transactional; when the ACL mutation fails after a successful
// policy-engine sync, the record written here is what an operator (or a retry
// job) uses to repair the drift.
package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "livedocs:recon:pending"

// Stages at which an operation can leave the two systems inconsistent.
const (
	StageACLGrant  = "acl_grant"
	StageACLRevoke = "acl_revoke"
)

// Record captures everything needed to replay or undo a half-applied change.
type Record struct {
	Principal  string    `json:"principal"`
	RoomID     string    `json:"room_id"`
	Role       string    `json:"role"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store appends records to a Redis list.
type Store struct {
	rdb *redis.Client
	key string
}

// NewStore builds a Store on the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, key: defaultKey}
}

// Record appends the reconciliation record.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recon: marshal record: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("recon: push record: %w", err)
	}
	return nil
}

// Pending returns up to limit oldest unprocessed records.
func (s *Store) Pending(ctx context.Context, limit int64) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := s.rdb.LRange(ctx, s.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("recon: read records: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("recon: decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
