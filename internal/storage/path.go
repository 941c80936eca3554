package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const manifestFile = "manifest.json"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildPartitionPath returns the key of one monthly parquet part:
// <dataset>/<table>/month=YYYY-MM/part-NNNNN.parquet
func BuildPartitionPath(dataset, table string, month time.Time, sequence int) (string, error) {
	prefix, err := BuildTablePrefix(dataset, table)
	if err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	ts := month.UTC()
	return path.Join(
		prefix,
		fmt.Sprintf("month=%04d-%02d", ts.Year(), ts.Month()),
		fmt.Sprintf("part-%05d.parquet", sequence),
	), nil
}

func BuildTablePrefix(dataset, table string) (string, error) {
	if err := validatePathComponent(dataset, "dataset name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(table, "table name"); err != nil {
		return "", err
	}
	return path.Join(dataset, table) + "/", nil
}

func BuildManifestPath(dataset string) (string, error) {
	if err := validatePathComponent(dataset, "dataset name"); err != nil {
		return "", err
	}
	return path.Join(dataset, manifestFile), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
