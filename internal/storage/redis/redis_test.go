package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

// setupRedis starts a redis container and returns a connected client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb, err := NewClient(ctx, Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestSnapshotStore(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	store := NewSnapshotStore(rdb, "test:paper")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	snap := &domain.Snapshot{
		CurrentCapital: 1.9,
		InitialCapital: 2,
		TradeCount:     2,
		Metrics:        domain.SnapshotMetrics{LosingTrades: 2, TotalPnLSOL: -0.1},
		UpdatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, snap))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	require.NoError(t, store.Reset(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotStore_Corrupt(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, snapshotKey("test:bad"), "not-json", 0).Err())

	_, err := NewSnapshotStore(rdb, "test:bad").Load(ctx)
	assert.ErrorIs(t, err, storage.ErrCorruptSnapshot)
}

func TestSeenMintStore(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	store := NewSeenMintStore(rdb, "test:paper")

	seen, err := store.IsMintSeen(ctx, "MintA")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkMintSeen(ctx, "MintB"))
	require.NoError(t, store.MarkMintSeen(ctx, "MintA"))
	require.NoError(t, store.MarkMintSeen(ctx, "MintA"))

	seen, err = store.IsMintSeen(ctx, "MintA")
	require.NoError(t, err)
	assert.True(t, seen)

	mints, err := store.LoadSeenMints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"MintA", "MintB"}, mints)

	assert.ErrorIs(t, store.MarkMintSeen(ctx, ""), storage.ErrInvalidInput)
}
