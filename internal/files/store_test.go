package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveThenLookup(t *testing.T) {
	req := require.New(t)
	dir := filepath.Join(t.TempDir(), "uploads")
	store := NewStore(dir)
	content := []byte("quarterly numbers\n")

	saved, err := store.Save("report.txt", content)
	req.NoError(err)
	req.NoError(uuid.Validate(saved.ID))
	req.Equal(filepath.Join(dir, saved.ID+"_report.txt"), saved.Path)

	found, err := store.Lookup(saved.ID)
	req.NoError(err)
	req.Equal(content, found.Data)
	req.Equal("report.txt", found.Filename)
	req.Equal("text/plain; charset=utf-8", found.ContentType())
}

func TestStore_FilenameWithUnderscoresSurvives(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())

	saved, err := store.Save("my_holiday_photo.png", []byte{0x89, 'P', 'N', 'G'})
	req.NoError(err)

	found, err := store.Lookup(saved.ID)
	req.NoError(err)
	req.Equal("my_holiday_photo.png", found.Filename)
	req.Equal("image/png", found.ContentType())
}

func TestStore_IDsAreUnique(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())

	first, err := store.Save("same.txt", []byte("one"))
	req.NoError(err)
	second, err := store.Save("same.txt", []byte("two"))
	req.NoError(err)
	req.NotEqual(first.ID, second.ID)

	found, err := store.Lookup(first.ID)
	req.NoError(err)
	req.Equal([]byte("one"), found.Data)
}

func TestStore_LookupNotFound(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())
	_, err := store.Save("a.txt", []byte("a"))
	req.NoError(err)

	_, err = store.Lookup(uuid.NewString())
	req.ErrorIs(err, ErrNotFound)
}

func TestStore_LookupRequiresSeparator(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, "abcdef_notes.txt"), []byte("x"), 0o644))
	store := NewStore(dir)

	_, err := store.Lookup("abc")
	req.ErrorIs(err, ErrNotFound)

	found, err := store.Lookup("abcdef")
	req.NoError(err)
	req.Equal("notes.txt", found.Filename)
}

func TestStore_LookupSkipsDirectories(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.Mkdir(filepath.Join(dir, "abc_folder"), 0o755))
	store := NewStore(dir)

	_, err := store.Lookup("abc")
	req.ErrorIs(err, ErrNotFound)
}

func TestStore_LookupWithoutDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"))

	_, err := store.Lookup(uuid.NewString())
	require.ErrorIs(t, err, ErrNoDirectory)
}

func TestStore_UnknownExtensionIsSniffed(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())

	saved, err := store.Save("blob.unknownext", []byte{0x00, 0x01, 0x02, 0xff})
	req.NoError(err)
	req.Equal("application/octet-stream", saved.ContentType())
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"", ".", "..", "../escape.txt", "dir/file.txt", `dir\file.txt`} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, ValidateFilename(name), ErrInvalidFilename)
		})
	}
	require.NoError(t, ValidateFilename("fine name (1).tar.gz"))
}
