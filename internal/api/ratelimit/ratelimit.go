package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// Record is the per-user quota bookkeeping mirrored from upstream rate-limit
// headers. A missing record means "not yet tracked", never "limit exhausted".
type Record struct {
	UserID      string
	Limit       int
	Remaining   int
	ResetAt     time.Time
	LastUpdated time.Time
}

type Store interface {
	Get(userID string) (*Record, bool)
	Upsert(userID string, limit, remaining int, resetAt time.Time)
}

var _ Store = (*CacheStore)(nil)

// CacheStore keeps one record per user with a passive idle TTL: every Upsert
// rearms the expiry, and a record idle longer than the TTL is reported absent
// regardless of its Remaining/ResetAt values.
type CacheStore struct {
	records *cache.Cache
}

func NewCacheStore(idleTTL, sweepInterval time.Duration) *CacheStore {
	return &CacheStore{records: cache.New(idleTTL, sweepInterval)}
}

func (s *CacheStore) Get(userID string) (*Record, bool) {
	v, found := s.records.Get(userID)
	if !found {
		return nil, false
	}
	rec := v.(Record)
	return &rec, true
}

func (s *CacheStore) Upsert(userID string, limit, remaining int, resetAt time.Time) {
	s.records.SetDefault(userID, Record{
		UserID:      userID,
		Limit:       limit,
		Remaining:   remaining,
		ResetAt:     resetAt,
		LastUpdated: time.Now(),
	})
}

// ReportHeaders records the standard X-RateLimit-* trio from an upstream
// response. Calls with incomplete headers are ignored.
func ReportHeaders(store Store, userID string, h http.Header) {
	if userID == "" {
		return
	}
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return
	}
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetAt := time.Now()
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		resetAt = time.Unix(reset, 0)
	}
	store.Upsert(userID, limit, remaining, resetAt)
}

type contextKey struct{}

// WithUserID attaches the caller identity used to key rate-limit records.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
