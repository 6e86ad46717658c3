package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goose/internal/config"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, ok := s.Get(TokenKey)
	assert.False(t, ok, "fresh store should not hold a token")

	s.Set(TokenKey, "t1")
	v, ok := s.Get(TokenKey)
	require.True(t, ok)
	assert.Equal(t, "t1", v)

	// Last writer wins.
	s.Set(TokenKey, "t2")
	v, _ = s.Get(TokenKey)
	assert.Equal(t, "t2", v)

	// Keys are independent.
	s.Set(UserKey, `{"id":"1"}`)
	s.Remove(TokenKey)
	_, ok = s.Get(TokenKey)
	assert.False(t, ok)
	v, ok = s.Get(UserKey)
	require.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, v)

	// Removing an absent key is a no-op.
	s.Remove(TokenKey)
	s.Remove(UserKey)
	_, ok = s.Get(UserKey)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFile(dir)
	require.NoError(t, err)
	first.Set(TokenKey, "persisted")

	second, err := NewFile(dir)
	require.NoError(t, err)
	v, ok := second.Get(TokenKey)
	require.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestFile_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	s, err := NewFile(dir)
	require.NoError(t, err)
	s.Set(TokenKey, "secret")

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())
}

func TestFile_RemoveLastKeyDeletesFile(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)

	s.Set(TokenKey, "t")
	s.Remove(TokenKey)

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "session file should be gone once empty")
}

func TestFile_CorruptFileTreatedAsEmpty(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))

	_, ok := s.Get(TokenKey)
	assert.False(t, ok)

	// A write recovers the file.
	s.Set(TokenKey, "fresh")
	v, ok := s.Get(TokenKey)
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func newMiniredisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, RedisOptions{Prefix: "test"})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedis(t *testing.T) {
	s, _ := newMiniredisStore(t)
	exerciseStore(t, s)
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	s, mr := newMiniredisStore(t)

	s.Set(TokenKey, "t1")

	v, err := mr.Get("test:" + TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "t1", v)
	assert.Zero(t, mr.TTL("test:"+TokenKey), "session keys must not expire on their own")
}

func TestRedis_UnavailableIsAbsent(t *testing.T) {
	s, mr := newMiniredisStore(t)
	s.Set(TokenKey, "t1")
	mr.Close()

	_, ok := s.Get(TokenKey)
	assert.False(t, ok)

	// Writes against a dead server must not panic or block forever.
	s.Set(TokenKey, "t2")
	s.Remove(TokenKey)
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := Open(config.StoreConfig{Backend: config.StoreBackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, s)
	})

	t.Run("file", func(t *testing.T) {
		s, err := Open(config.StoreConfig{Backend: config.StoreBackendFile, Dir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &File{}, s)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := Open(config.StoreConfig{
			Backend: config.StoreBackendRedis,
			Redis:   config.RedisConfig{Addr: mr.Addr(), Prefix: "p"},
		})
		require.NoError(t, err)
		r, ok := s.(*Redis)
		require.True(t, ok)
		defer r.Close()

		r.Set(TokenKey, "x")
		assert.True(t, mr.Exists("p:"+TokenKey))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(config.StoreConfig{Backend: "etcd"})
		assert.Error(t, err)
	})
}
