package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
)

// TimestampLayout matches the timestamps the hosted query service returns,
// so records parse the same regardless of backend.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Querier is the part of driver.Conn the runner needs.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

type RunnerConfig struct {
	Logger *slog.Logger
	Conn   Querier
}

func (cfg *RunnerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Conn == nil {
		return errors.New("conn is required")
	}
	return nil
}

// Runner executes transfer queries against the warehouse.
type Runner struct {
	log  *slog.Logger
	conn Querier
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{log: cfg.Logger, conn: cfg.Conn}, nil
}

func (r *Runner) Backend() string { return "clickhouse" }

// Run executes the query and returns at most PageSize rows keyed by
// lower-cased column name. Outer-join misses come back as nil.
func (r *Runner) Run(ctx context.Context, req query.Request) ([]transfer.Row, error) {
	req = req.WithDefaults()

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"join_use_nulls":     1,
		"max_execution_time": int(req.Timeout.Seconds()),
	}))

	rows, err := r.conn.Query(ctx, req.SQL)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns := rows.Columns()
	types := rows.ColumnTypes()
	out := make([]transfer.Row, 0)
	for rows.Next() {
		if len(out) >= req.PageSize {
			r.log.Warn("clickhouse: result truncated", "pageSize", req.PageSize)
			break
		}
		dest := make([]any, len(types))
		for i, ct := range types {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(transfer.Row, len(columns))
		for i, col := range columns {
			row[strings.ToLower(col)] = normalize(reflect.ValueOf(dest[i]).Elem().Interface())
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// normalize dereferences nullable values and renders timestamps as UTC text.
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	switch val := rv.Interface().(type) {
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return val.UTC().Format(TimestampLayout)
	default:
		return val
	}
}
