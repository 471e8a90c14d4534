// Package archive bundles generated artifacts into a single zip.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/shopforge/invoicepress/internal/storage"
	"go.uber.org/zap"
)

// Source names one artifact to include in a bundle.
type Source struct {
	Name string
	Key  string
}

// Bundler streams shop artifacts into a zip archive.
type Bundler struct {
	gateway storage.Gateway
	log     *zap.Logger
}

func NewBundler(gateway storage.Gateway, log *zap.Logger) *Bundler {
	return &Bundler{
		gateway: gateway,
		log:     log.Named("archive"),
	}
}

// Bundle writes the named sources into w in input order. A source that
// cannot be read is skipped and reported in the returned slice rather
// than aborting the archive, matching the orchestrator's
// partial-failure policy.
func (b *Bundler) Bundle(ctx context.Context, w io.Writer, shop string, sources []Source) (skipped []string, err error) {
	zw := zip.NewWriter(w)

	for _, source := range sources {
		data, getErr := b.gateway.Get(ctx, shop, source.Key)
		if getErr != nil {
			b.log.Warn("skipping missing artifact",
				zap.String("shop", shop),
				zap.String("key", source.Key),
				zap.Error(getErr),
			)
			skipped = append(skipped, source.Name)
			continue
		}

		entry, createErr := zw.Create(source.Name)
		if createErr != nil {
			zw.Close()
			return skipped, fmt.Errorf("create archive entry %s: %w", source.Name, createErr)
		}
		if _, writeErr := entry.Write(data); writeErr != nil {
			zw.Close()
			return skipped, fmt.Errorf("write archive entry %s: %w", source.Name, writeErr)
		}
	}

	if closeErr := zw.Close(); closeErr != nil {
		return skipped, fmt.Errorf("finalize archive: %w", closeErr)
	}
	return skipped, nil
}
