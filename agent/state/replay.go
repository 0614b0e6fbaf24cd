package state

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidKey = errors.New("idempotency key is empty")
	ErrNilReply   = errors.New("reply is nil")
)

const (
	defaultKeyPrefix = "support:replay:"
	defaultTTL       = 24 * time.Hour
)

// Reply is a response remembered for an idempotency key.
type Reply struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// ReplayStore remembers the first response sent for an idempotency key so a
// retried request gets the same answer without repeating its side effects.
type ReplayStore interface {
	Get(ctx context.Context, key string) (*Reply, bool, error)
	Put(ctx context.Context, key string, r *Reply) error
}

func storeKey(prefix, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	return strings.TrimSpace(prefix) + key, nil
}
