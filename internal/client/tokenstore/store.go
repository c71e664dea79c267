// Package tokenstore persists the desktop session in a local SQLite table.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const (
	keyToken          = "auth_token"
	keyTokenEncrypted = "auth_token_encrypted"
	keyTokenStoredAt  = "auth_token_stored_at"
	keyUserData       = "user_data"
	keyLoginTime      = "login_time"

	// session_lifetime is a client setting, not part of a login, so Clear
	// leaves it in place.
	keySessionLifetime = "session_lifetime"
)

var sessionKeys = []string{keyToken, keyTokenEncrypted, keyTokenStoredAt, keyUserData, keyLoginTime}

var loadKeys = append(append([]string(nil), sessionKeys...), keySessionLifetime)

// ErrNoSession is returned by Load when nothing usable is stored.
var ErrNoSession = errors.New("no stored session")

type setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (setting) TableName() string { return "settings" }

// Session is the persisted desktop login.
type Session struct {
	Token     string
	User      domain.Profile
	LoginTime time.Time
	StoredAt  time.Time
	Encrypted bool
	// Lifetime is the last session lifetime the server announced, zero when
	// none was ever received.
	Lifetime time.Duration
}

type Store struct {
	db     *gorm.DB
	cipher *Cipher
	now    func() time.Time
}

// Open opens (or creates) the SQLite database at path. A nil cipher stores
// the token in plaintext.
func Open(path string, cipher *Cipher) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("tokenstore: data dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("tokenstore: open %s: %w", path, err)
	}
	return New(db, cipher)
}

// New wraps an existing gorm handle and migrates the settings table.
func New(db *gorm.DB, cipher *Cipher) (*Store, error) {
	if err := db.AutoMigrate(&setting{}); err != nil {
		return nil, fmt.Errorf("tokenstore: migrate: %w", err)
	}
	return &Store{db: db, cipher: cipher, now: time.Now}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveLogin stores a fresh login and starts its lifetime clock.
func (s *Store) SaveLogin(ctx context.Context, token string, user domain.Profile) error {
	now := s.now()
	values, err := s.sessionValues(token, user, now)
	if err != nil {
		return err
	}
	values[keyLoginTime] = now.UTC().Format(time.RFC3339)
	return s.put(ctx, values)
}

// UpdateToken replaces the token and profile without touching login_time.
func (s *Store) UpdateToken(ctx context.Context, token string, user domain.Profile) error {
	values, err := s.sessionValues(token, user, s.now())
	if err != nil {
		return err
	}
	return s.put(ctx, values)
}

// UpdateUser refreshes the cached profile only.
func (s *Store) UpdateUser(ctx context.Context, user domain.Profile) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("tokenstore: encode user: %w", err)
	}
	return s.put(ctx, map[string]string{keyUserData: string(data)})
}

// SaveLifetime caches the server's session lifetime for later runs.
func (s *Store) SaveLifetime(ctx context.Context, lifetime time.Duration) error {
	return s.put(ctx, map[string]string{keySessionLifetime: lifetime.String()})
}

func (s *Store) Load(ctx context.Context) (*Session, error) {
	var rows []setting
	if err := s.db.WithContext(ctx).Where(`"key" IN ?`, loadKeys).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("tokenstore: load: %w", err)
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}

	raw := values[keyToken]
	if raw == "" {
		return nil, ErrNoSession
	}

	sess := &Session{Encrypted: values[keyTokenEncrypted] == "1"}
	if sess.Encrypted {
		if s.cipher == nil {
			return nil, fmt.Errorf("%w: token is encrypted and no key is available", ErrNoSession)
		}
		token, err := s.cipher.Open(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
		}
		sess.Token = token
	} else {
		sess.Token = raw
	}

	if data := values[keyUserData]; data != "" {
		if err := json.Unmarshal([]byte(data), &sess.User); err != nil {
			return nil, fmt.Errorf("tokenstore: decode user: %w", err)
		}
	}
	sess.LoginTime = parseTime(values[keyLoginTime])
	sess.StoredAt = parseTime(values[keyTokenStoredAt])
	if v := values[keySessionLifetime]; v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			sess.Lifetime = d
		}
	}
	return sess, nil
}

// Clear removes every session key.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where(`"key" IN ?`, sessionKeys).Delete(&setting{}).Error; err != nil {
		return fmt.Errorf("tokenstore: clear: %w", err)
	}
	return nil
}

func (s *Store) sessionValues(token string, user domain.Profile, now time.Time) (map[string]string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: encode user: %w", err)
	}

	stored, encrypted := token, "0"
	if s.cipher != nil {
		if stored, err = s.cipher.Seal(token); err != nil {
			return nil, fmt.Errorf("tokenstore: seal token: %w", err)
		}
		encrypted = "1"
	}

	return map[string]string{
		keyToken:          stored,
		keyTokenEncrypted: encrypted,
		keyTokenStoredAt:  now.UTC().Format(time.RFC3339),
		keyUserData:       string(data),
	}, nil
}

func (s *Store) put(ctx context.Context, values map[string]string) error {
	now := s.now()
	rows := make([]setting, 0, len(values))
	for k, v := range values {
		rows = append(rows, setting{Key: k, Value: v, UpdatedAt: now})
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("tokenstore: save: %w", err)
	}
	return nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
