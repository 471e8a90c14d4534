package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T) (Gateway, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{StorageRoot: t.TempDir()}
	g, err := NewGateway(cfg, clk, zap.NewNop())
	require.NoError(t, err)
	return g, clk
}

func TestGateway_SaveAndGet(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	artifact, err := g.Save(ctx, "acme-store.example.com", "INV-1004.pdf", []byte("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), artifact.Size)
	assert.Contains(t, artifact.Key, "acme-store-example-com/")
	assert.Contains(t, artifact.Key, "inv-1004.pdf")

	data, err := g.Get(ctx, "acme-store.example.com", artifact.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)
}

func TestGateway_TraversalKeysAreNotFound(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	// Seed a victim artifact in another shop's namespace.
	victim, err := g.Save(ctx, "victim-shop", "secret.pdf", []byte("secret"))
	require.NoError(t, err)

	hostile := []string{
		"../victim-shop/" + victim.Key,
		victim.Key,
		"attacker-shop/../victim-shop/secret.pdf",
		"../../etc/passwd",
		"attacker-shop/../../attacker-shop/x.pdf",
		"",
	}
	for _, key := range hostile {
		_, err := g.Get(ctx, "attacker-shop", key)
		require.Error(t, err, "key %q", key)
		assert.True(t, apperr.IsNotFound(err), "key %q must map to not found", key)
	}
}

func TestGateway_DeleteScopedToShop(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	artifact, err := g.Save(ctx, "victim-shop", "a.pdf", []byte("x"))
	require.NoError(t, err)

	err = g.Delete(ctx, "attacker-shop", artifact.Key)
	assert.True(t, apperr.IsNotFound(err))

	// Still retrievable by the owner.
	_, err = g.Get(ctx, "victim-shop", artifact.Key)
	assert.NoError(t, err)
}

func TestGateway_ListOnlyOwnShop(t *testing.T) {
	g, clk := newTestGateway(t)
	ctx := context.Background()

	_, err := g.Save(ctx, "shop-a", "one.pdf", []byte("1"))
	require.NoError(t, err)
	clk.Advance(time.Second)
	_, err = g.Save(ctx, "shop-a", "two.pdf", []byte("2"))
	require.NoError(t, err)
	_, err = g.Save(ctx, "shop-b", "other.pdf", []byte("3"))
	require.NoError(t, err)

	artifacts, err := g.List(ctx, "shop-a")
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)

	empty, err := g.List(ctx, "shop-without-artifacts")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGateway_PruneOlderThan(t *testing.T) {
	g, clk := newTestGateway(t)
	ctx := context.Background()

	_, err := g.Save(ctx, "shop-a", "old.pdf", []byte("old"))
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	_, err = g.Save(ctx, "shop-a", "new.pdf", []byte("new"))
	require.NoError(t, err)

	pruned, err := g.PruneOlderThan(ctx, "shop-a", 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, pruned)

	clk.Advance(365 * 24 * time.Hour)
	pruned, err = g.PruneOlderThan(ctx, "shop-a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	remaining, err := g.List(ctx, "shop-a")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestJanitor_SweepsEveryShop(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{StorageRoot: t.TempDir()}
	cfg.Worker.PruneOlderThan = 24 * time.Hour

	g, err := NewGateway(cfg, clk, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.Save(ctx, "shop-a", "a.pdf", []byte("a"))
	require.NoError(t, err)
	_, err = g.Save(ctx, "shop-b", "b.pdf", []byte("b"))
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	j := NewJanitor(cfg, g, zap.NewNop())
	j.sweep(ctx)

	for _, shop := range []string{"shop-a", "shop-b"} {
		remaining, err := g.List(ctx, shop)
		require.NoError(t, err)
		assert.Empty(t, remaining, "shop %s", shop)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "inv-1004.pdf", sanitizeFilename("INV-1004.pdf"))
	assert.Equal(t, "etc-passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "artifact", sanitizeFilename(""))
}
