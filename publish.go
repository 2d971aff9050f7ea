package shelfann

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/shelfann/shelfann/blobstore"
)

// Publish uploads files to a blob store under prefix, keyed by base
// name. Artifacts are immutable, so re-publishing a name replaces it
// wholesale.
func (p *Pipeline) Publish(ctx context.Context, store blobstore.BlobStore, prefix string, files ...string) error {
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("publish %s: %w", file, err)
		}

		name := path.Join(prefix, filepath.Base(file))
		if err := store.Put(ctx, name, data); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
		p.opts.logger.Info("published", "name", name, "size", len(data))
	}
	return nil
}

// PublishReport uploads the three outputs of an indexed package.
func (p *Pipeline) PublishReport(ctx context.Context, store blobstore.BlobStore, prefix string, report *IndexReport) error {
	return p.Publish(ctx, store, prefix, report.ArtifactPath, report.IDMapPath, report.ReadyPath)
}
