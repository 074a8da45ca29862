package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seafile-token.json")
	obtained := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := Save(path, &File{
		Token:      &oauth2.Token{AccessToken: "abc"},
		APIURL:     "https://files.example.com",
		Username:   "bot@example.com",
		ObtainedAt: obtained,
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	tf, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, tf)
	assert.Equal(t, "abc", tf.Token.AccessToken)
	assert.True(t, tf.ObtainedAt.Equal(obtained))
	assert.True(t, tf.Matches("https://files.example.com", "bot@example.com"))
	assert.False(t, tf.Matches("https://files.example.com", "someone@example.com"))
	assert.False(t, tf.Matches("https://other.example.com", "bot@example.com"))
}

func TestLoad_Missing(t *testing.T) {
	tf, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, tf)
	assert.False(t, tf.Matches("a", "b"))
}

func TestLoad_NoToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_url":"x"}`), FilePerms))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), FilePerms))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, Save(path, &File{Token: &oauth2.Token{AccessToken: "x"}}))
	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
