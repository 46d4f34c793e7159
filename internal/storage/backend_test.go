package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendContract exercises the behaviour every Backend must share
func runBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, err := b.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, KeyProgress, `{"completedChallenges":[]}`))
		value, err := b.Get(ctx, KeyProgress)
		require.NoError(t, err)
		assert.Equal(t, `{"completedChallenges":[]}`, value)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, KeyUserID, "first"))
		require.NoError(t, b.Set(ctx, KeyUserID, "second"))
		value, err := b.Get(ctx, KeyUserID)
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "to_remove", "x"))
		require.NoError(t, b.Remove(ctx, "to_remove"))
		_, err := b.Get(ctx, "to_remove")
		assert.ErrorIs(t, err, ErrNotFound)

		// removing again is fine
		assert.NoError(t, b.Remove(ctx, "to_remove"))
	})

	t.Run("keys by prefix", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, ChallengeBlobKey("ocr"), "{}"))
		require.NoError(t, b.Set(ctx, ChallengeBlobKey("challenge-1"), "{}"))
		require.NoError(t, b.Set(ctx, "challengeX", "{}"))

		keys, err := b.Keys(ctx, ChallengeBlobPrefix)
		require.NoError(t, err)
		assert.Equal(t, []string{"challenge_challenge-1", "challenge_ocr"}, keys)
	})

	t.Run("keys prefix is case sensitive", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "alice:challenge_x", "{}"))
		require.NoError(t, b.Set(ctx, "ALICE:challenge_y", "{}"))
		require.NoError(t, b.Set(ctx, "alice:Challenge_Z", "{}"))

		keys, err := b.Keys(ctx, "alice:challenge_")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice:challenge_x"}, keys)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, b.Ping(ctx))
	})
}

func TestMemoryBackend(t *testing.T) {
	runBackendContract(t, NewMemoryBackend())
}

func TestPrefixedBackend(t *testing.T) {
	inner := NewMemoryBackend()
	runBackendContract(t, WithPrefix(inner, "profile:a:"))

	// keys really live under the prefix
	value, err := inner.Get(context.Background(), "profile:a:"+KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	// a second profile is isolated
	other := WithPrefix(inner, "profile:b:")
	_, err = other.Get(context.Background(), KeyUserID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithPrefix_EmptyPrefixReturnsInner(t *testing.T) {
	inner := NewMemoryBackend()
	assert.Same(t, inner, WithPrefix(inner, "").(*MemoryBackend))
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "progress.db")
	b, err := NewSQLiteBackend(context.Background(), path, "kv_entries")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	runBackendContract(t, b)
}

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	b, err := NewSQLiteBackend(ctx, path, "kv_entries")
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, KeyUserID, "user-1"))
	require.NoError(t, b.Close())

	reopened, err := NewSQLiteBackend(ctx, path, "kv_entries")
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", value)
}

func TestSQLiteBackend_LikeWildcardsAreLiteral(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(ctx, filepath.Join(t.TempDir(), "p.db"), "kv_entries")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Set(ctx, "a_b", "1"))
	require.NoError(t, b.Set(ctx, "axb", "2"))

	keys, err := b.Keys(ctx, "a_")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b"}, keys)
}

func TestSQLiteBackend_PrefixedProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(ctx, filepath.Join(t.TempDir(), "p.db"), "kv_entries")
	require.NoError(t, err)
	defer b.Close()

	lower := WithPrefix(b, "alice:")
	upper := WithPrefix(b, "ALICE:")
	require.NoError(t, lower.Set(ctx, ChallengeBlobKey("x"), "{}"))
	require.NoError(t, upper.Set(ctx, ChallengeBlobKey("y"), "{}"))

	keys, err := lower.Keys(ctx, ChallengeBlobPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"challenge_x"}, keys)

	keys, err = upper.Keys(ctx, ChallengeBlobPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"challenge_y"}, keys)
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping")
	}

	ctx := context.Background()
	b, err := NewRedisBackend(ctx, RedisConfig{Address: addr})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	prefix := "progress-hub-test:" + t.Name() + ":"
	scoped := WithPrefix(b, prefix)
	t.Cleanup(func() {
		keys, _ := scoped.Keys(ctx, "")
		for _, k := range keys {
			scoped.Remove(ctx, k)
		}
	})

	runBackendContract(t, scoped)
}

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping")
	}

	ctx := context.Background()
	b, err := NewPostgresBackend(ctx, PostgresConfig{DSN: dsn, Table: "kv_entries_test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := b.Keys(ctx, "")
		for _, k := range keys {
			b.Remove(ctx, k)
		}
		b.Close()
	})

	runBackendContract(t, b)
}

func TestEscapeHelpers(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\d`, escapeLike(`a_b%c\d`))
	assert.Equal(t, `user\*\?\[x\]`, escapeGlob(`user*?[x]`))
}

func TestRenderMigration(t *testing.T) {
	out := renderMigration("CREATE TABLE {{table}}; CREATE INDEX {{updated_at_index}} ON {{table}}", "kv")
	assert.Equal(t, `CREATE TABLE "kv"; CREATE INDEX "kv_updated_at_idx" ON "kv"`, out)
}

func TestListMigrations_Sorted(t *testing.T) {
	names, err := listMigrations(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_create_kv_entries.sql", names[0])
}
