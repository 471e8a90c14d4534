// Package storage persists generated artifacts on the local
// filesystem under shop-scoped namespaces.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Artifact describes one stored output.
type Artifact struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Gateway persists and retrieves artifacts. Every operation is scoped
// to the caller's shop; keys that resolve outside the shop's root are
// reported as not found.
type Gateway interface {
	Save(ctx context.Context, shop, name string, data []byte) (*Artifact, error)
	Get(ctx context.Context, shop, key string) ([]byte, error)
	Delete(ctx context.Context, shop, key string) error
	List(ctx context.Context, shop string) ([]Artifact, error)
	PruneOlderThan(ctx context.Context, shop string, age time.Duration) (int, error)
}

type fsGateway struct {
	root  string
	clock clock.Clock
	log   *zap.Logger
}

func NewGateway(cfg config.Config, clk clock.Clock, log *zap.Logger) (Gateway, error) {
	root, err := filepath.Abs(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.NewResource("create storage root", err)
	}
	return &fsGateway{
		root:  root,
		clock: clk,
		log:   log.Named("storage"),
	}, nil
}

func (g *fsGateway) Save(ctx context.Context, shop, name string, data []byte) (*Artifact, error) {
	_ = ctx
	shopDir := sanitize(shop)
	if shopDir == "" {
		return nil, fmt.Errorf("shop name is required")
	}

	now := g.clock.Now()
	key := filepath.ToSlash(filepath.Join(shopDir, fmt.Sprintf("%d-%s", now.UnixMilli(), sanitizeFilename(name))))

	full, err := g.resolve(shopDir, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, apperr.NewResource("create shop dir", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, apperr.NewResource("write artifact", err)
	}
	// Stamp mtime from the injected clock so age-based pruning is
	// deterministic.
	_ = os.Chtimes(full, now, now)

	g.log.Debug("artifact stored",
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return &Artifact{Key: key, Size: int64(len(data)), CreatedAt: now}, nil
}

func (g *fsGateway) Get(ctx context.Context, shop, key string) ([]byte, error) {
	_ = ctx
	full, err := g.resolve(sanitize(shop), key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("artifact %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, apperr.NewResource("read artifact", err)
	}
	return data, nil
}

func (g *fsGateway) Delete(ctx context.Context, shop, key string) error {
	_ = ctx
	full, err := g.resolve(sanitize(shop), key)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return fmt.Errorf("artifact %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return apperr.NewResource("delete artifact", err)
	}
	return nil
}

func (g *fsGateway) List(ctx context.Context, shop string) ([]Artifact, error) {
	_ = ctx
	shopDir := sanitize(shop)
	entries, err := os.ReadDir(filepath.Join(g.root, shopDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewResource("list artifacts", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Key:       filepath.ToSlash(filepath.Join(shopDir, entry.Name())),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	return artifacts, nil
}

func (g *fsGateway) PruneOlderThan(ctx context.Context, shop string, age time.Duration) (int, error) {
	artifacts, err := g.List(ctx, shop)
	if err != nil {
		return 0, err
	}

	cutoff := g.clock.Now().Add(-age)
	pruned := 0
	for _, artifact := range artifacts {
		if artifact.CreatedAt.After(cutoff) {
			continue
		}
		if err := g.Delete(ctx, shop, artifact.Key); err != nil {
			g.log.Warn("prune failed", zap.String("key", artifact.Key), zap.Error(err))
			continue
		}
		pruned++
	}
	return pruned, nil
}

// resolve joins root+key and verifies the result stays inside the
// shop's namespace. Any escape, however the key is constructed, maps
// to not found so callers cannot probe other shops' artifacts.
func (g *fsGateway) resolve(shopDir, key string) (string, error) {
	if shopDir == "" || key == "" {
		return "", fmt.Errorf("artifact %s: %w", key, apperr.ErrNotFound)
	}

	full, err := filepath.Abs(filepath.Join(g.root, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("artifact %s: %w", key, apperr.ErrNotFound)
	}

	shopRoot := filepath.Join(g.root, shopDir)
	if full != shopRoot && !strings.HasPrefix(full, shopRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact %s: %w", key, apperr.ErrNotFound)
	}
	return full, nil
}

// sanitize restricts shop identifiers to a safe path segment.
func sanitize(name string) string {
	return slug.Make(name)
}

// sanitizeFilename keeps the extension readable while slugging the
// base name.
func sanitizeFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	safeBase := slug.Make(base)
	if safeBase == "" {
		safeBase = "artifact"
	}
	safeExt := strings.ToLower(strings.TrimLeft(slug.Make(ext), "-"))
	if safeExt == "" {
		return safeBase
	}
	return safeBase + "." + safeExt
}

var Module = fx.Module("storage",
	fx.Provide(NewGateway),
	fx.Provide(NewJanitor),
	fx.Invoke(runJanitor),
)
