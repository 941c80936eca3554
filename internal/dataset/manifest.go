package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/salesql/salesql/internal/storage"
)

var ErrNoManifest = errors.New("dataset manifest not found")

// Manifest describes one published dataset: where its partitions live and
// how they were generated.
type Manifest struct {
	Dataset     string      `json:"dataset"`
	Table       string      `json:"table"`
	Seed        int64       `json:"seed"`
	Year        int         `json:"year"`
	Rows        int         `json:"rows"`
	PublishedAt time.Time   `json:"published_at"`
	Partitions  []Partition `json:"partitions"`
}

type Partition struct {
	Month     string `json:"month"`
	Key       string `json:"key"`
	Rows      int    `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
	ETag      string `json:"etag,omitempty"`
}

func (m Manifest) SizeBytes() int64 {
	var total int64
	for _, partition := range m.Partitions {
		total += partition.SizeBytes
	}
	return total
}

func LoadManifest(ctx context.Context, store storage.ObjectStore, dataset string) (Manifest, error) {
	key, err := storage.BuildManifestPath(dataset)
	if err != nil {
		return Manifest{}, err
	}
	data, err := storage.ReadAll(ctx, store, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrNoManifest, dataset)
		}
		return Manifest{}, fmt.Errorf("load manifest %q: %w", key, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %q: %w", key, err)
	}
	return manifest, nil
}

func writeManifest(ctx context.Context, store storage.ObjectStore, manifest Manifest) error {
	key, err := storage.BuildManifestPath(manifest.Dataset)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := storage.PutBytes(ctx, store, key, data, "application/json"); err != nil {
		return fmt.Errorf("put manifest %q: %w", key, err)
	}
	return nil
}
