package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Chloy02/akasa-air-data-pipeline-task/internal/ingest/domain"
	"go.uber.org/zap"
)

// CustomerCSVReader reads the columnar customer source. The header row maps
// columns by name, so field order in the file does not matter.
type CustomerCSVReader struct {
	log *zap.Logger
}

func NewCustomerCSVReader(log *zap.Logger) domain.CustomerReader {
	return &CustomerCSVReader{log: log.Named("ingest.csv")}
}

func (r *CustomerCSVReader) Read(ctx context.Context, path string) ([]domain.RawCustomer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.SourceUnreadableError{Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(stripBOM(f))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, &domain.SourceUnreadableError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}

	cols := mapColumns(header)
	if _, ok := cols["customer_id"]; !ok {
		return nil, &domain.SourceUnreadableError{Path: path, Err: fmt.Errorf("no customer_id column in header: %v", header)}
	}
	if _, ok := cols["mobile_number"]; !ok {
		return nil, &domain.SourceUnreadableError{Path: path, Err: fmt.Errorf("no mobile_number column in header: %v", header)}
	}

	var out []domain.RawCustomer
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.SourceUnreadableError{Path: path, Err: err}
		}
		out = append(out, domain.RawCustomer{
			CustomerID:   field(row, cols, "customer_id"),
			CustomerName: field(row, cols, "customer_name"),
			MobileNumber: field(row, cols, "mobile_number"),
			Region:       field(row, cols, "region"),
		})
	}

	r.log.Info("customer source read", zap.String("path", path), zap.Int("rows", len(out)))
	return out, nil
}

func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err == nil && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
