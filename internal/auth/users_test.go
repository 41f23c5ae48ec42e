package auth

import (
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserStore(t *testing.T) *UserStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserStore(db, bcrypt.MinCost)
}

func TestUserStore_RegisterAndVerify(t *testing.T) {
	req := require.New(t)
	store := newTestUserStore(t)

	req.NoError(store.Register("alice", "wonderland"))

	ok, err := store.Verify("alice", "wonderland")
	req.NoError(err)
	req.True(ok)

	ok, err = store.Verify("alice", "looking-glass")
	req.NoError(err)
	req.False(ok)
}

func TestUserStore_VerifyUnknownUser(t *testing.T) {
	req := require.New(t)
	store := newTestUserStore(t)

	ok, err := store.Verify("nobody", "secret")
	req.NoError(err)
	req.False(ok)
}

func TestUserStore_DuplicateUsername(t *testing.T) {
	req := require.New(t)
	store := newTestUserStore(t)

	req.NoError(store.Register("bob", "first"))
	req.ErrorIs(store.Register("bob", "second"), ErrUserExists)

	ok, err := store.Verify("bob", "first")
	req.NoError(err)
	req.True(ok)
}

func TestUserStore_RejectsBlankCredentials(t *testing.T) {
	store := newTestUserStore(t)

	for _, c := range []Credentials{
		{Username: "", Password: "pw"},
		{Username: "   ", Password: "pw"},
		{Username: "carol", Password: ""},
		{Username: "carol", Password: "\t \n"},
	} {
		require.ErrorIs(t, store.Register(c.Username, c.Password), ErrInvalidCredentials)
	}
}

func TestUserStore_PasswordIsHashed(t *testing.T) {
	req := require.New(t)
	store := newTestUserStore(t)
	req.NoError(store.Register("dave", "plaintext-password"))

	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey("dave"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			req.NotContains(string(val), "plaintext-password")
			req.True(strings.HasPrefix(string(val), "$2"))
			return nil
		})
	})
	req.NoError(err)
}

func TestCredentials_Validate(t *testing.T) {
	req := require.New(t)

	req.NoError(Credentials{Username: "erin", Password: "pw"}.Validate())
	req.ErrorIs(Credentials{Username: strings.Repeat("x", 65), Password: "pw"}.Validate(), ErrInvalidCredentials)
	req.ErrorIs(Credentials{Username: strings.Repeat("x", 65), Password: "pw"}.Validate(), ErrUsernameTooLong)
	req.NoError(Credentials{Username: strings.Repeat("ü", 64), Password: "pw"}.Validate())
	req.NoError(Credentials{Username: "erin", Password: strings.Repeat("p", 200)}.Validate())

	err := Credentials{Username: "", Password: "pw"}.Validate()
	req.ErrorIs(err, ErrInvalidCredentials)
	req.NotErrorIs(err, ErrUsernameTooLong)
}

func TestUserStore_LongPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "multibyte over 72 bytes", password: strings.Repeat("ü", 40)},
		{name: "leading spaces push past 72 bytes", password: "   " + strings.Repeat("p", 72)},
		{name: "far over the limit", password: strings.Repeat("long", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			store := newTestUserStore(t)

			req.NoError(store.Register("frank", tt.password))

			ok, err := store.Verify("frank", tt.password)
			req.NoError(err)
			req.True(ok)

			ok, err = store.Verify("frank", "short")
			req.NoError(err)
			req.False(ok)
		})
	}
}
