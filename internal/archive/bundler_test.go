package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	"github.com/shopforge/invoicepress/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBundler(t *testing.T) (*Bundler, storage.Gateway) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	gateway, err := storage.NewGateway(config.Config{StorageRoot: t.TempDir()}, clk, zap.NewNop())
	require.NoError(t, err)
	return NewBundler(gateway, zap.NewNop()), gateway
}

func TestBundle_PreservesOrderAndContents(t *testing.T) {
	bundler, gateway := newTestBundler(t)
	ctx := context.Background()

	var sources []Source
	for _, name := range []string{"INV-1001.pdf", "INV-1002.pdf", "INV-1003.pdf"} {
		artifact, err := gateway.Save(ctx, "shop-a", name, []byte("content-"+name))
		require.NoError(t, err)
		sources = append(sources, Source{Name: name, Key: artifact.Key})
	}

	var buf bytes.Buffer
	skipped, err := bundler.Bundle(ctx, &buf, "shop-a", sources)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, reader.File, 3)
	assert.Equal(t, "INV-1001.pdf", reader.File[0].Name)
	assert.Equal(t, "INV-1002.pdf", reader.File[1].Name)
	assert.Equal(t, "INV-1003.pdf", reader.File[2].Name)

	rc, err := reader.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	var content bytes.Buffer
	_, err = content.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, "content-INV-1002.pdf", content.String())
}

func TestBundle_SkipsMissingSources(t *testing.T) {
	bundler, gateway := newTestBundler(t)
	ctx := context.Background()

	artifact, err := gateway.Save(ctx, "shop-a", "INV-1001.pdf", []byte("ok"))
	require.NoError(t, err)

	sources := []Source{
		{Name: "INV-1001.pdf", Key: artifact.Key},
		{Name: "INV-1002.pdf", Key: "shop-a/999-missing.pdf"},
	}

	var buf bytes.Buffer
	skipped, err := bundler.Bundle(ctx, &buf, "shop-a", sources)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-1002.pdf"}, skipped)

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, reader.File, 1)
	assert.Equal(t, "INV-1001.pdf", reader.File[0].Name)
}

func TestBundle_EmptySourcesProducesValidArchive(t *testing.T) {
	bundler, _ := newTestBundler(t)

	var buf bytes.Buffer
	skipped, err := bundler.Bundle(context.Background(), &buf, "shop-a", nil)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	_, err = zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.NoError(t, err)
}
