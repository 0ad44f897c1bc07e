package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/types"
)

const keyPrefix = "storybook:session:"

// maxUpdateRetries bounds the optimistic-transaction retry loop when the key
// is modified between the watched read and the write.
const maxUpdateRetries = 5

// SessionStore persists StorybookSession snapshots in Redis, one key per
// session with a TTL. Updates are optimistic per-key transactions; the
// editing model assumes a single active client per session, so last write
// wins is enough.
type SessionStore interface {
	Create(ctx context.Context, session *types.StorybookSession) (string, error)
	Get(ctx context.Context, sessionID string) (*types.StorybookSession, error)
	Update(ctx context.Context, sessionID string, mutate func(*types.StorybookSession) error) (*types.StorybookSession, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

type sessionStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewSessionStore(log *logger.Logger, ttl time.Duration) (SessionStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &sessionStore{
		log: log.With("service", "RedisSessionStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *sessionStore) Create(ctx context.Context, session *types.StorybookSession) (string, error) {
	if session == nil {
		return "", fmt.Errorf("session required")
	}

	id := uuid.NewString()
	session.SessionID = id
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	raw, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+id, raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	s.log.Info("Session created", "session_id", id, "scenes", len(session.Scenes), "ttl", s.ttl)
	return id, nil
}

func (s *sessionStore) Get(ctx context.Context, sessionID string) (*types.StorybookSession, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return decodeSession(raw)
}

// Update applies mutate inside a WATCH/MULTI/EXEC transaction so concurrent
// writers to the same key serialize instead of clobbering the whole record.
// The existing TTL is preserved.
func (s *sessionStore) Update(ctx context.Context, sessionID string, mutate func(*types.StorybookSession) error) (*types.StorybookSession, error) {
	key := keyPrefix + sessionID

	var out *types.StorybookSession
	txn := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return fmt.Errorf("%w: %s", types.ErrNotFound, sessionID)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
		}

		session, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if err := mutate(session); err != nil {
			return err
		}
		session.UpdatedAt = time.Now().UTC()

		next, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.SetArgs(ctx, key, next, goredis.SetArgs{KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}
		out = session
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txn, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrStorageUnavailable) {
			return nil, err
		}
		if isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return nil, fmt.Errorf("%w: update contention on %s", types.ErrStorageUnavailable, sessionID)
}

func (s *sessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	s.log.Info("Session deleted", "session_id", sessionID)
	return nil
}

func (s *sessionStore) Close() error {
	return s.rdb.Close()
}

func decodeSession(raw []byte) (*types.StorybookSession, error) {
	var session types.StorybookSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("decode session payload: missing session_id")
	}
	return &session, nil
}

// isDomainErr reports whether err came from the mutate callback rather than
// Redis itself, so it can pass through unwrapped.
func isDomainErr(err error) bool {
	return errors.Is(err, types.ErrOutOfRange) ||
		errors.Is(err, types.ErrInvalidStyle) ||
		errors.Is(err, types.ErrInvalidInput) ||
		errors.Is(err, types.ErrGenerationFailed) ||
		errors.Is(err, types.ErrRenderFailed)
}
