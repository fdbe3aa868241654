package cache

import (
	"encoding/json"
	"time"
)

// staleFactor 物理 TTL 是逻辑 TTL 的倍数，过期数据在这段时间内仍可返回
const staleFactor = 3

// Entry wraps a cached value with a logical deadline. Readers keep serving
// an entry past StaleAt while one of them rebuilds it.
type Entry[T any] struct {
	Value    T         `json:"value"`
	StaleAt  time.Time `json:"stale_at"`
	StoredAt time.Time `json:"stored_at"`
}

// Stale reports whether the entry passed its logical deadline at now
func (e *Entry[T]) Stale(now time.Time) bool {
	return now.After(e.StaleAt)
}

// Encode wraps v with a logical ttl and returns the payload together with
// the physical ttl the key should be stored with.
func Encode[T any](v T, ttl time.Duration) ([]byte, time.Duration, error) {
	now := time.Now()
	data, err := json.Marshal(Entry[T]{Value: v, StaleAt: now.Add(ttl), StoredAt: now})
	if err != nil {
		return nil, 0, err
	}
	return data, PhysicalTTL(ttl), nil
}

// Decode parses a payload written by Encode
func Decode[T any](data []byte) (T, bool, error) {
	var e Entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		var zero T
		return zero, false, err
	}
	return e.Value, e.Stale(time.Now()), nil
}

func PhysicalTTL(logical time.Duration) time.Duration {
	if logical <= 0 {
		return 0
	}
	return logical * staleFactor
}
