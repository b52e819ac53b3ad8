package captcha

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmaher/pcaptcha/storage"
)

const (
	challengeBucket = "challenges"
	sessionBucket   = "sessions"
	assetBucket     = "assets"
)

// Store persists challenges, session ledgers, and rendered assets in a
// storage.Repository. Session mutations are applied as a single atomic
// read-modify-write so concurrent requests for the same session cannot
// lose counter increments or ledger appends.
type Store struct {
	repo storage.Repository
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store over the given repository.
func NewStore(repo storage.Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Reap deletes every challenge older than ChallengeTTL along with its
// rendered asset. It runs before every mutating store operation rather
// than on a timer, and silently absorbs records that are already gone,
// so a second sweep with no new challenges removes nothing.
func (s *Store) Reap() error {
	cutoff := s.now().Add(-ChallengeTTL)
	var expired []string
	err := s.repo.ForEach(challengeBucket, func(key string, data []byte) error {
		var ch Challenge
		if err := json.Unmarshal(data, &ch); err != nil {
			// Unreadable record: treat as expired so it cannot pile up.
			expired = append(expired, key)
			return nil
		}
		if ch.CreatedAt.Before(cutoff) {
			expired = append(expired, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning challenges: %w", err)
	}
	for _, id := range expired {
		if err := s.deleteChallenge(id); err != nil {
			return err
		}
	}
	return nil
}

// PutChallenge persists a pending challenge, sweeping expired ones first.
func (s *Store) PutChallenge(ch *Challenge) error {
	if err := s.Reap(); err != nil {
		return err
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return s.repo.Put(challengeBucket, ch.ID, data)
}

// GetChallenge retrieves a pending challenge by id.
func (s *Store) GetChallenge(id string) (*Challenge, error) {
	data, err := s.repo.Get(challengeBucket, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrChallengeNotFound)
	}
	if err != nil {
		return nil, err
	}
	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// DeleteChallenge removes a challenge and its asset. Missing records
// are not an error; challenges are single-use and may already be reaped.
func (s *Store) DeleteChallenge(id string) error {
	return s.deleteChallenge(id)
}

func (s *Store) deleteChallenge(id string) error {
	if err := s.repo.Delete(challengeBucket, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := s.repo.Delete(assetBucket, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// PutAsset stores the rendered PNG for a challenge.
func (s *Store) PutAsset(challengeID string, png []byte) error {
	return s.repo.Put(assetBucket, challengeID, png)
}

// Asset retrieves the rendered PNG for a challenge.
func (s *Store) Asset(challengeID string) ([]byte, error) {
	data, err := s.repo.Get(assetBucket, challengeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("asset %s: %w", challengeID, ErrChallengeNotFound)
	}
	return data, err
}

// EnsureSession creates the session record if it does not exist yet and
// returns it.
func (s *Store) EnsureSession(id string) (*Session, error) {
	var sess Session
	err := s.repo.Update(sessionBucket, id, func(data []byte) ([]byte, error) {
		if data != nil {
			if err := json.Unmarshal(data, &sess); err != nil {
				return nil, err
			}
			return data, nil
		}
		sess = Session{ID: id, CreatedAt: s.now().UTC()}
		return json.Marshal(&sess)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession retrieves a session ledger by id.
func (s *Store) GetSession(id string) (*Session, error) {
	data, err := s.repo.Get(sessionBucket, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSession applies fn to the session record under the repository's
// read-modify-write lock. fn sees the current ledger and mutates it in
// place; the result is written back atomically. Returns
// ErrSessionNotFound if the session does not exist.
func (s *Store) UpdateSession(id string, fn func(*Session) error) error {
	return s.repo.Update(sessionBucket, id, func(data []byte) ([]byte, error) {
		if data == nil {
			return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, err
		}
		if err := fn(&sess); err != nil {
			return nil, err
		}
		return json.Marshal(&sess)
	})
}

// ForEachSession iterates all session ledgers in stable key order.
func (s *Store) ForEachSession(fn func(*Session) error) error {
	return s.repo.ForEach(sessionBucket, func(key string, data []byte) error {
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return err
		}
		return fn(&sess)
	})
}
