package dataset

import (
	"context"
	"fmt"

	"github.com/salesql/salesql/internal/query"
	"github.com/salesql/salesql/internal/storage"
)

// Source resolves the current partitions of a published dataset for the
// query engines.
type Source struct {
	store   storage.ObjectStore
	dataset string
}

func NewSource(store storage.ObjectStore, dataset string) *Source {
	return &Source{store: store, dataset: dataset}
}

func (s *Source) Dataset() string {
	return s.dataset
}

func (s *Source) Manifest(ctx context.Context) (Manifest, error) {
	return LoadManifest(ctx, s.store, s.dataset)
}

func (s *Source) Files(ctx context.Context) ([]query.TableFile, error) {
	manifest, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	if len(manifest.Partitions) == 0 {
		return nil, fmt.Errorf("%w: %s has no partitions", ErrNoManifest, s.dataset)
	}
	files := make([]query.TableFile, 0, len(manifest.Partitions))
	for _, partition := range manifest.Partitions {
		files = append(files, query.TableFile{
			TableName:     manifest.Table,
			ObjectPath:    partition.Key,
			FileSizeBytes: partition.SizeBytes,
		})
	}
	return files, nil
}
