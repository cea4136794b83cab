package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	backend "github.com/redis/go-redis/v9"

	"github.com/chatplay/tictacbot/game/service"
)

// RedisStore implements service.SessionStore on Redis. Sessions are stored
// as JSON values, with a set of all ids for listing and one set per
// participant for the session-containing-player lookup.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to Redis and returns a session store.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "tictacbot:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) sessionKey(id int64) string {
	return s.prefix + "session:" + strconv.FormatInt(id, 10)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "session:index"
}

func (s *RedisStore) playerKey(playerID string) string {
	return s.prefix + "player:" + playerID
}

func (s *RedisStore) seqKey() string {
	return s.prefix + "session:seq"
}

// NextID increments the id sequence.
func (s *RedisStore) NextID(ctx context.Context) (int64, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	return id, nil
}

// FindActiveSessionFor resolves the player's session via the participant
// index. Stale index entries are pruned lazily.
func (s *RedisStore) FindActiveSessionFor(ctx context.Context, playerID string) (*service.GameSession, error) {
	ids, err := s.client.SMembers(ctx, s.playerKey(playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read participant index: %w", err)
	}
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		sess, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			// Session was deleted without its index entry; clean up.
			s.client.SRem(ctx, s.playerKey(playerID), raw)
			continue
		}
		if sess.State != service.StateFinished && sess.HasParticipant(playerID) {
			return sess, nil
		}
	}
	return nil, nil
}

// FindByID returns the session with the given id, or nil.
func (s *RedisStore) FindByID(ctx context.Context, id int64) (*service.GameSession, error) {
	val, err := s.client.Get(ctx, s.sessionKey(id)).Result()
	if err == backend.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess service.GameSession
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Insert persists a new session and indexes its participants.
func (s *RedisStore) Insert(ctx context.Context, sess *service.GameSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	id := strconv.FormatInt(sess.ID, 10)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(sess.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), id)
	pipe.SAdd(ctx, s.playerKey(sess.Creator), id)
	if sess.Opponent != "" {
		pipe.SAdd(ctx, s.playerKey(sess.Opponent), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update replaces the stored value, failing when the key no longer exists.
func (s *RedisStore) Update(ctx context.Context, sess *service.GameSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	// SET XX only succeeds when the key is still present.
	ok, err := s.client.SetXX(ctx, s.sessionKey(sess.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if !ok {
		return service.ErrNotFound
	}

	// The opponent joins after insert, so index them on update.
	if sess.Opponent != "" {
		id := strconv.FormatInt(sess.ID, 10)
		if err := s.client.SAdd(ctx, s.playerKey(sess.Opponent), id).Err(); err != nil {
			return fmt.Errorf("index opponent: %w", err)
		}
	}
	return nil
}

// Delete removes the session and its index entries.
func (s *RedisStore) Delete(ctx context.Context, id int64) error {
	sess, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	raw := strconv.FormatInt(id, 10)
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.indexKey(), raw)
	if sess != nil {
		pipe.SRem(ctx, s.playerKey(sess.Creator), raw)
		if sess.Opponent != "" {
			pipe.SRem(ctx, s.playerKey(sess.Opponent), raw)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns every indexed session.
func (s *RedisStore) List(ctx context.Context) ([]*service.GameSession, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	result := make([]*service.GameSession, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		sess, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			result = append(result, sess)
		}
	}
	return result, nil
}
