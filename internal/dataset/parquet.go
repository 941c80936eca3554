package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

func EncodeParquet(rows []Sale) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Sale](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeParquet(data []byte) ([]Sale, error) {
	reader := parquet.NewGenericReader[Sale](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()

	rows := make([]Sale, 0, reader.NumRows())
	batch := make([]Sale, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return rows, nil
}
