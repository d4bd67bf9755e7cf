package clickhouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draup/assetexplorer/nft/pkg/query"
)

// gooseVersionTable records applied migrations.
const gooseVersionTable = "goose_db_version"

// Execer is the part of driver.Conn that schema changes need.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ResetTables drops the warehouse tables and the migration history so the
// next migrate recreates them. In dry-run mode the statements are only
// logged.
func ResetTables(ctx context.Context, log *slog.Logger, conn Execer, dryRun bool) error {
	tables := []string{query.WarehouseTables.Transfers, query.WarehouseTables.Mints, gooseVersionTable}
	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		if dryRun {
			log.Info("clickhouse: would drop table", "table", table)
			continue
		}
		log.Info("clickhouse: dropping table", "table", table)
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
