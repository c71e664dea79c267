package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Credential store
// ---------------------------------------------------------------------------

type stubAuthRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// add stores a user with a bcrypt hash of password. MinCost keeps tests fast.
func (r *stubAuthRepo) add(id int64, username, password, status string, role *domain.Role) *domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Status:       status,
		Role:         role,
	}
	r.mu.Lock()
	r.users[id] = u
	r.mu.Unlock()
	return cloneUser(u)
}

func (r *stubAuthRepo) setStatus(id int64, status string) {
	r.mu.Lock()
	r.users[id].Status = status
	r.mu.Unlock()
}

func (r *stubAuthRepo) FindActiveByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username && u.Status == domain.StatusActive {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// ---------------------------------------------------------------------------
// Token store: one row per user, mirroring the unique index on user_id.
// ---------------------------------------------------------------------------

type stubTokenRepo struct {
	mu     sync.Mutex
	byUser map[int64]*domain.AccessToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{byUser: make(map[int64]*domain.AccessToken)}
}

func (r *stubTokenRepo) find(digest string) *domain.AccessToken {
	for _, t := range r.byUser {
		if t.Digest == digest {
			return t
		}
	}
	return nil
}

func (r *stubTokenRepo) Replace(_ context.Context, token *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *token
	r.byUser[token.UserID] = &clone
	return nil
}

func (r *stubTokenRepo) Rotate(_ context.Context, oldDigest string, next *domain.AccessToken, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.find(oldDigest)
	if cur == nil || !now.Before(cur.ExpiresAt) {
		return 0, domain.ErrTokenNotFound
	}
	next.UserID = cur.UserID
	clone := *next
	r.byUser[cur.UserID] = &clone
	return cur.UserID, nil
}

func (r *stubTokenRepo) Touch(_ context.Context, digest string, now time.Time) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.find(digest)
	if cur == nil || !now.Before(cur.ExpiresAt) {
		return nil, domain.ErrTokenNotFound
	}
	used := now
	cur.LastUsedAt = &used
	clone := *cur
	return &clone, nil
}

func (r *stubTokenRepo) Delete(_ context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.find(digest)
	if cur == nil {
		return domain.ErrTokenNotFound
	}
	delete(r.byUser, cur.UserID)
	return nil
}

func (r *stubTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for uid, t := range r.byUser {
		if t.ExpiresAt.Before(now) {
			delete(r.byUser, uid)
			n++
		}
	}
	return n, nil
}

func (r *stubTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// ---------------------------------------------------------------------------
// One-time code store
// ---------------------------------------------------------------------------

type stubCodeRepo struct {
	mu        sync.Mutex
	codes     map[string]*domain.SSOCode
	collide   int // number of upcoming inserts to reject as duplicates
	inserted  int
	sweptAt   []time.Time
	insertErr error
}

func newStubCodeRepo() *stubCodeRepo {
	return &stubCodeRepo{codes: make(map[string]*domain.SSOCode)}
}

func (r *stubCodeRepo) Insert(_ context.Context, code *domain.SSOCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.collide > 0 {
		r.collide--
		return domain.ErrDuplicateCode
	}
	if _, exists := r.codes[code.Code]; exists {
		return domain.ErrDuplicateCode
	}
	clone := *code
	r.codes[code.Code] = &clone
	r.inserted++
	return nil
}

func (r *stubCodeRepo) Consume(_ context.Context, code string, now time.Time) (*domain.SSOCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok || !c.Valid(now) {
		return nil, domain.ErrCodeNotFound
	}
	c.Used = true
	clone := *c
	return &clone, nil
}

func (r *stubCodeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweptAt = append(r.sweptAt, now)
	var n int64
	for k, c := range r.codes {
		if c.ExpiresAt.Before(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n, nil
}

func (r *stubCodeRepo) get(code string) *domain.SSOCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil
	}
	clone := *c
	return &clone
}
