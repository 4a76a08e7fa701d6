package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
)

// TickSchema is applied idempotently at startup.
var TickSchema = []string{
	`CREATE TABLE IF NOT EXISTS md_ticks (
		ts          DateTime64(3),
		symbol      LowCardinality(String),
		price       Float64,
		volume      Float64,
		bid         Float64,
		ask         Float64,
		volatility  Float64,
		momentum    Float64,
		flow        LowCardinality(String)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)`,
}

// ClickHouseTickStore persists observation batches for offline analysis and
// the monitoring collaborator.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickStore creates ClickHouse-backed tick persistence.
func NewClickHouseTickStore(db *sql.DB, table string) drepo.TickStore {
	if table == "" {
		table = "md_ticks"
	}
	return &ClickHouseTickStore{db: db, table: table}
}

// StoreBatch writes a batch in one multi-row INSERT, chunked to bound
// statement size. Nil or malformed points are skipped, not fatal.
func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, points []*models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	const chunkSize = 2000
	for start := 0; start < len(points); start += chunkSize {
		end := start + chunkSize
		if end > len(points) {
			end = len(points)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, p := range points[start:end] {
			if p == nil || p.Symbol == "" || p.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				p.Timestamp,
				p.Symbol,
				p.Price,
				p.Volume,
				p.Bid,
				p.Ask,
				p.Volatility,
				p.Momentum,
				string(p.Flow),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (ts, symbol, price, volume, bid, ask, volatility, momentum, flow) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert ticks: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the connection pool is owned by pkg/clickhouse.
func (s *ClickHouseTickStore) Close() error {
	return nil
}
