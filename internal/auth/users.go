package auth

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/bcrypt"
)

const userKeyPrefix = "user:"

// UserStore persists username -> password hash records.
type UserStore struct {
	db   *badger.DB
	cost int
}

// NewUserStore uses db for storage. A cost of 0 selects bcrypt.DefaultCost.
func NewUserStore(db *badger.DB, cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, cost: cost}
}

// OpenUserStore opens (or creates) a Badger database at path.
func OpenUserStore(path string) (*UserStore, func() error, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, nil, fmt.Errorf("open users database: %w", err)
	}
	return NewUserStore(db, 0), db.Close, nil
}

// bcryptInput cuts password to the 72 bytes bcrypt reads. Longer inputs are
// rejected by GenerateFromPassword otherwise.
func bcryptInput(password string) []byte {
	const maxBcryptBytes = 72
	b := []byte(password)
	if len(b) > maxBcryptBytes {
		b = b[:maxBcryptBytes]
	}
	return b
}

func userKey(username string) []byte {
	return []byte(userKeyPrefix + username)
}

// Register stores a new user. It fails with ErrUserExists when the username
// is taken and ErrInvalidCredentials when either field is blank.
func (s *UserStore) Register(username, password string) error {
	if err := (Credentials{Username: username, Password: password}).Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err := txn.Get(key); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}
		return txn.Set(key, hash)
	})
}

// Verify reports whether password matches the stored hash for username.
// An unknown user is not an error.
func (s *UserStore) Verify(username, password string) (bool, error) {
	var hash []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		hash, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, bcryptInput(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}
