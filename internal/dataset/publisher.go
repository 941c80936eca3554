package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/salesql/salesql/internal/storage"
)

const (
	DefaultDataset = "demo"
	parquetType    = "application/vnd.apache.parquet"

	defaultUploadConcurrency = 4
)

type PublishRequest struct {
	Dataset string
	Table   string
	Seed    int64
	Year    int
	Rows    int
}

type Publisher struct {
	store       storage.ObjectStore
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

func NewPublisher(store storage.ObjectStore, logger *slog.Logger, concurrency int) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultUploadConcurrency
	}
	return &Publisher{
		store:       store,
		logger:      logger,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Publish generates the dataset, writes one parquet partition per month,
// removes partitions left over from earlier publishes and finally replaces
// the manifest. Readers only see the new partitions once the manifest is
// written.
func (p *Publisher) Publish(ctx context.Context, request PublishRequest) (Manifest, error) {
	if p.store == nil {
		return Manifest{}, fmt.Errorf("object store is required")
	}
	if request.Rows <= 0 {
		return Manifest{}, fmt.Errorf("rows must be > 0")
	}
	if request.Year <= 0 {
		request.Year = DefaultYear
	}
	prefix, err := storage.BuildTablePrefix(request.Dataset, request.Table)
	if err != nil {
		return Manifest{}, err
	}

	byMonth := map[string][]Sale{}
	for _, sale := range Generate(request.Seed, request.Year, request.Rows) {
		byMonth[sale.Month()] = append(byMonth[sale.Month()], sale)
	}
	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	slices.Sort(months)

	partitions := make([]Partition, len(months))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)
	for i, month := range months {
		group.Go(func() error {
			partition, err := p.putPartition(groupCtx, request, month, byMonth[month])
			if err != nil {
				return err
			}
			partitions[i] = partition
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Manifest{}, err
	}

	live := map[string]bool{}
	for _, partition := range partitions {
		live[partition.Key] = true
	}
	existing, err := p.store.List(ctx, prefix)
	if err != nil {
		return Manifest{}, fmt.Errorf("list partitions: %w", err)
	}

	manifest := Manifest{
		Dataset:     request.Dataset,
		Table:       request.Table,
		Seed:        request.Seed,
		Year:        request.Year,
		Rows:        request.Rows,
		PublishedAt: p.now(),
		Partitions:  partitions,
	}
	if err := writeManifest(ctx, p.store, manifest); err != nil {
		return Manifest{}, err
	}

	for _, object := range existing {
		if live[object.Key] || !strings.HasSuffix(object.Key, ".parquet") {
			continue
		}
		if err := p.store.Delete(ctx, object.Key); err != nil {
			p.logger.Warn("delete stale partition failed", slog.String("key", object.Key), slog.Any("error", err))
			continue
		}
		p.logger.Debug("deleted stale partition", slog.String("key", object.Key))
	}

	p.logger.Info("dataset published",
		slog.String("dataset", manifest.Dataset),
		slog.String("table", manifest.Table),
		slog.Int("rows", manifest.Rows),
		slog.Int("partitions", len(manifest.Partitions)),
		slog.Int64("size_bytes", manifest.SizeBytes()),
	)
	return manifest, nil
}

func (p *Publisher) putPartition(ctx context.Context, request PublishRequest, month string, rows []Sale) (Partition, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return Partition{}, fmt.Errorf("parse partition month %q: %w", month, err)
	}
	key, err := storage.BuildPartitionPath(request.Dataset, request.Table, monthStart, 0)
	if err != nil {
		return Partition{}, err
	}
	data, err := EncodeParquet(rows)
	if err != nil {
		return Partition{}, fmt.Errorf("encode partition %s: %w", month, err)
	}
	info, err := storage.PutBytes(ctx, p.store, key, data, parquetType)
	if err != nil {
		return Partition{}, fmt.Errorf("put partition %q: %w", key, err)
	}
	return Partition{
		Month:     month,
		Key:       key,
		Rows:      len(rows),
		SizeBytes: int64(len(data)),
		ETag:      info.ETag,
	}, nil
}
