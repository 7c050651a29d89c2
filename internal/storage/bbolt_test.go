package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestBolt(t *testing.T) (*BoltStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.keepvault")

	db, err := OpenBolt(dbPath)
	require.NoError(t, err)
	return db, dbPath
}

func TestOpenCreatesBuckets(t *testing.T) {
	db, _ := openTestBolt(t)
	defer db.Close()

	created, err := db.Created()
	require.NoError(t, err)
	require.False(t, created.IsZero(), "creation time should be set")
}

func TestGetMissingOwner(t *testing.T) {
	db, _ := openTestBolt(t)
	defer db.Close()

	blob, err := db.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, blob)

	info, err := db.Info("nobody")
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestSetGetReplaces(t *testing.T) {
	db, _ := openTestBolt(t)
	defer db.Close()
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := start
	db.now = func() time.Time { return clock }

	require.NoError(t, db.Set(ctx, "u1", []byte(`{"v":1}`)))

	clock = clock.Add(time.Hour)
	require.NoError(t, db.Set(ctx, "u1", []byte(`{"v":22}`)))

	blob, err := db.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, `{"v":22}`, string(blob))

	info, err := db.Info("u1")
	require.NoError(t, err)
	require.True(t, info.Created.Equal(start), "created should not move on replace: %v", info.Created)
	require.True(t, info.Modified.Equal(clock), "modified %v, want %v", info.Modified, clock)
	require.Equal(t, len(`{"v":22}`), info.Size)
}

func TestOwnersSorted(t *testing.T) {
	db, _ := openTestBolt(t)
	defer db.Close()
	ctx := context.Background()

	for _, owner := range []string{"carol", "alice", "bob"} {
		require.NoError(t, db.Set(ctx, owner, []byte("blob")))
	}

	owners, err := db.Owners()
	require.NoError(t, err)
	require.Len(t, owners, 3)
	require.Equal(t, "alice", owners[0].OwnerID)
	require.Equal(t, "carol", owners[2].OwnerID)
}

func TestRejectsBadInput(t *testing.T) {
	db, _ := openTestBolt(t)
	defer db.Close()
	ctx := context.Background()

	require.ErrorIs(t, db.Set(ctx, "", []byte("x")), ErrInvalidOwner)
	require.Error(t, db.Set(ctx, "u1", nil), "empty blob must be rejected")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := db.Get(cancelled, "u1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSetOnClosedStoreKeepsLastBlob(t *testing.T) {
	db, dbPath := openTestBolt(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "u1", []byte("committed")))
	require.NoError(t, db.Close())
	require.Error(t, db.Set(ctx, "u1", []byte("lost")))

	db2, err := OpenBolt(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	blob, err := db2.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "committed", string(blob))
}

func TestPersistenceAndCompact(t *testing.T) {
	db, dbPath := openTestBolt(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "u1", []byte("first")))
	require.NoError(t, db.Compact())
	require.NoError(t, db.Set(ctx, "u2", []byte("second")), "set after compact")
	require.NoError(t, db.Close())

	// Reopen and verify
	db2, err := OpenBolt(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	for owner, want := range map[string]string{"u1": "first", "u2": "second"} {
		blob, err := db2.Get(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, want, string(blob), "owner %s", owner)
	}
}
