package session

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"net/http"      // Cookies

	"github.com/google/uuid"       // Session ids
	"github.com/pkg/errors"        // Error wrapping
	"github.com/redis/go-redis/v9" // Redis client
)

const keyPrefix = "session:" // Redis key prefix

// RedisStore keeps session data in Redis; the cookie only carries a random id
type RedisStore struct {
	rdb  *redis.Client
	opts CookieOptions
}

// NewRedisStore creates a RedisStore
func NewRedisStore(rdb *redis.Client, opts CookieOptions) *RedisStore {
	if opts.Name == "" {
		opts.Name = "session_id"
	}
	return &RedisStore{rdb: rdb, opts: opts}
}

// Load fetches the session named by the cookie; unknown ids get a fresh session
func (rs *RedisStore) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(rs.opts.Name)
	if err != nil || cookie.Value == "" {
		return &Session{ID: uuid.NewString()}, nil
	}
	var data Data
	found, err := rs.get(ctx, cookie.Value, &data)
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if !found {
		// Never adopt an id the server did not issue
		return &Session{ID: uuid.NewString()}, nil
	}
	return &Session{ID: cookie.Value, data: data}, nil
}

// Save stores the session and refreshes its expiry; empty sessions are deleted
func (rs *RedisStore) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.previous != "" {
		if err := rs.del(ctx, s.previous); err != nil {
			return errors.Wrap(err, "discard previous session")
		}
		s.ID = uuid.NewString() // Issue a new id after privilege change
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.empty() {
		if err := rs.del(ctx, s.ID); err != nil {
			return errors.Wrap(err, "delete session")
		}
		clearCookie(w, rs.opts)
		return nil
	}
	if err := rs.set(ctx, s.ID, s.data); err != nil {
		return errors.Wrap(err, "save session")
	}
	setCookie(w, rs.opts, s.ID)
	return nil
}

// get retrieves a value from Redis and unmarshals it into dest
func (rs *RedisStore) get(ctx context.Context, id string, dest any) (bool, error) {
	val, err := rs.rdb.Get(ctx, keyPrefix+id).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// set stores a value in Redis with the session TTL
func (rs *RedisStore) set(ctx context.Context, id string, value any) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rs.rdb.Set(ctx, keyPrefix+id, b, rs.opts.TTL).Err() // Set value in Redis with TTL
}

// del deletes a session key from Redis
func (rs *RedisStore) del(ctx context.Context, id string) error {
	return rs.rdb.Del(ctx, keyPrefix+id).Err() // Delete key from Redis
}
