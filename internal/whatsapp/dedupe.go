package whatsapp

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupeTTL    = 24 * time.Hour
	dedupePrefix = "wchic:wa:msg:"
)

// Deduper remembers delivered message ids so Meta's retries are processed once.
type Deduper struct {
	rdb *redis.Client
}

// NewDeduper accepts a nil client; every message is then treated as new.
func NewDeduper(rdb *redis.Client) *Deduper {
	return &Deduper{rdb: rdb}
}

// FirstSeen reports whether messageID has not been seen in the last 24h.
func (d *Deduper) FirstSeen(ctx context.Context, messageID string) (bool, error) {
	if d == nil || d.rdb == nil || messageID == "" {
		return true, nil
	}
	return d.rdb.SetNX(ctx, dedupePrefix+messageID, 1, dedupeTTL).Result()
}
