// Package session provides cookie-identified server-side sessions backed by
// Redis or process memory.
//
// Usage (middleware):
//
//	r.Use(session.Middleware(store, session.DefaultOptions()))
//
// Usage (handler):
//
//	sess := session.FromCtx(r)
//	sess.Set("admin_logged_in", true)
//	ok := sess.GetBool("admin_logged_in")
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/bookstore/pkg/logger"
)

// ------------------- Options -------------------

// Options configures session behaviour.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		CookieName: "bookstore_session",
		TTL:        2 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

// ------------------- Stores -------------------

// Store persists session data by id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]interface{}, error)
	Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
}

// RedisStore keeps each session as a JSON string under "<prefix><id>".
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "bookstore:session:"}
}

func (s *RedisStore) Load(ctx context.Context, id string) (map[string]interface{}, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if err == redis.Nil {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis load: %w", err)
	}
	data := map[string]interface{}{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, s.prefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.prefix+id).Err()
}

type memoryEntry struct {
	data      map[string]interface{}
	expiresAt time.Time
}

// MemoryStore is the single-process fallback when Redis is unavailable.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, id string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return map[string]interface{}{}, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return map[string]interface{}{}, nil
	}
	return copyData(e.data), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, data map[string]interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[id] = memoryEntry{data: copyData(data), expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func copyData(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ------------------- Session -------------------

type ctxKey struct{}

// Session is an in-request session handle. It is not safe for concurrent use
// by multiple goroutines of the same request.
type Session struct {
	id      string
	data    map[string]interface{}
	isNew   bool
	changed bool

	// retired is the id this request loaded, once Regenerate replaced it.
	retired string
	reissue func(id string)
}

func newID() string { return uuid.NewString() }

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool { return s.isNew }

// Set stores a value under key in the session.
func (s *Session) Set(key string, value interface{}) {
	s.data[key] = value
	s.changed = true
}

// Get retrieves a value from the session.
func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetString is a typed convenience getter.
func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.data[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetInt is a typed convenience getter.
func (s *Session) GetInt(key string) (int, bool) {
	v, ok := s.data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64: // JSON numbers unmarshal as float64
		return int(n), true
	case int:
		return n, true
	case uint:
		return int(n), true
	}
	return 0, false
}

// GetBool is true only when key holds the boolean true.
func (s *Session) GetBool(key string) bool {
	b, ok := s.data[key].(bool)
	return ok && b
}

// Delete removes a key from the session.
func (s *Session) Delete(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.changed = true
	}
}

// Invalidate drops all session data.
func (s *Session) Invalidate() {
	s.data = map[string]interface{}{}
	s.changed = true
}

// Regenerate moves the session's data to a fresh id and reissues the
// cookie. The previous id is destroyed when the request completes. Call it
// before the response is written.
func (s *Session) Regenerate() {
	if s.retired == "" && !s.isNew {
		s.retired = s.id
	}
	s.id = newID()
	s.changed = true
	if s.reissue != nil {
		s.reissue(s.id)
	}
}

// New builds a detached session; used by tests and non-HTTP callers.
func New(id string) *Session {
	if id == "" {
		id = newID()
	}
	return &Session{id: id, data: map[string]interface{}{}, isNew: true}
}

// ------------------- Middleware -------------------

// issuedAtKey is written into every new session so that it is persisted
// and its id recognised on the next request.
const issuedAtKey = "_issued_at"

// Middleware loads (or creates) the session for every request and injects it
// into the request context. A cookie naming no stored session is answered
// with a fresh id, so clients cannot choose their own. The cookie is issued
// before the handler runs; changed data is persisted after it returns.
func Middleware(store Store, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess := &Session{}
			sess.reissue = func(id string) { setCookie(w, opts, id) }

			if cookie, err := r.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				data, err := store.Load(ctx, cookie.Value)
				if err != nil {
					logger.WithCtx(ctx).Warn("session load failed", "error", err)
					data = map[string]interface{}{}
				}
				if err == nil && len(data) == 0 {
					sess.fresh()
				} else {
					sess.id, sess.data = cookie.Value, data
				}
			} else {
				sess.fresh()
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, sess)))

			if sess.retired != "" {
				if err := store.Destroy(ctx, sess.retired); err != nil {
					logger.WithCtx(ctx).Error("session destroy failed", "error", err)
				}
			}
			if !sess.changed {
				return
			}
			var err error
			if len(sess.data) == 0 {
				err = store.Destroy(ctx, sess.id)
			} else {
				err = store.Save(ctx, sess.id, sess.data, opts.TTL)
			}
			if err != nil {
				logger.WithCtx(ctx).Error("session save failed", "error", err)
			}
		})
	}
}

// fresh gives s a new id and issues its cookie.
func (s *Session) fresh() {
	s.id, s.isNew, s.changed = newID(), true, true
	s.data = map[string]interface{}{issuedAtKey: time.Now().Unix()}
	s.reissue(s.id)
}

// setCookie issues the session cookie for id, replacing one already queued
// on this response.
func setCookie(w http.ResponseWriter, opts Options, id string) {
	h := w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, opts.CookieName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     opts.CookieName,
		Value:    id,
		Path:     opts.Path,
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromCtx retrieves the session from the request context.
// Returns an empty, unsaved session if none is present.
func FromCtx(r *http.Request) *Session {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s
	}
	return New("")
}

// FromContext retrieves the session attached to ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

type clientIDKey struct{}

// ClientIDMiddleware records the value of header, when a request carries
// one, as the id that request's cart is keyed by.
func ClientIDMiddleware(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if header == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
				r = r.WithContext(context.WithValue(r.Context(), clientIDKey{}, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID is the header id recorded by ClientIDMiddleware, else the id of
// the session attached to ctx. Empty when neither is present.
func ClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok {
		return id
	}
	if s, ok := FromContext(ctx); ok {
		return s.ID()
	}
	return ""
}
