package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/draup/assetexplorer/api/backend"
	"github.com/draup/assetexplorer/api/config"
	"github.com/draup/assetexplorer/cli/internal/report"
	"github.com/draup/assetexplorer/explorer/pkg/table"
	"github.com/draup/assetexplorer/explorer/pkg/timefmt"
	"github.com/draup/assetexplorer/explorer/pkg/timerange"
	"github.com/draup/assetexplorer/nft/pkg/ens"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/draup/assetexplorer/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseSort reads "column" or "column:asc|desc".
func parseSort(s string) (table.ColumnID, table.SortDirection) {
	col, dir, found := strings.Cut(s, ":")
	if !found {
		return table.ColumnID(col), table.SortAsc
	}
	return table.ColumnID(col), table.SortDirection(dir)
}

type wallet struct {
	input   string
	address string
	records []transfer.Record
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	backendFlag := flag.String("backend", "", "query backend: flipside or clickhouse (or set QUERY_BACKEND env var)")
	filterFlag := flag.String("filter", "", "fuzzy filter applied across the table columns")
	sortFlag := flag.String("sort", "", "sort column, optionally suffixed with :asc or :desc")
	pageFlag := flag.Int("page", 1, "page to print (1-based)")
	pageSizeFlag := flag.Int("page-size", table.DefaultPageSize, "rows per page (10, 20, 30, 40 or 50)")
	localeFlag := flag.String("locale", "", "display locale (default from LANG)")
	timezoneFlag := flag.String("timezone", "", "display timezone (default DEFAULT_TIMEZONE)")
	timeoutFlag := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: assets [flags] <address or name.eth> [<address or name.eth>...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("an address or ENS name is required")
	}

	log := logger.New(*verboseFlag)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *backendFlag != "" {
		cfg.QueryBackend = config.Backend(*backendFlag)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	locale := *localeFlag
	if locale == "" {
		locale = strings.SplitN(os.Getenv("LANG"), ".", 2)[0]
	}
	locale = timefmt.MatchLocale(strings.ReplaceAll(locale, "_", "-"))
	tz := *timezoneFlag
	if tz == "" {
		tz = cfg.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	be, err := backend.Open(ctx, log, cfg)
	if err != nil {
		return err
	}
	if be.Close != nil {
		defer func() { _ = be.Close() }()
	}
	fetcher, err := be.Fetcher(log)
	if err != nil {
		return err
	}

	eth, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}
	defer eth.Close()
	resolver, err := ens.NewResolver(ens.Config{Logger: log, Caller: eth})
	if err != nil {
		return err
	}

	wallets := make([]wallet, flag.NArg())
	g, gctx := errgroup.WithContext(ctx)
	for i, input := range flag.Args() {
		wallets[i].input = input
		g.Go(func() error {
			res, err := resolver.Resolve(gctx, input)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			records, err := fetcher.Fetch(gctx, res.Address)
			if err != nil {
				return fmt.Errorf("%s: failed to fetch transfers: %w", input, err)
			}
			wallets[i].address = res.Address
			wallets[i].records = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	opts := report.Options{
		Formatter: timefmt.NewFormatter(),
		Locale:    locale,
		Timezone:  tz,
	}
	for _, w := range wallets {
		model := table.NewModel()
		model.SetRecords(w.records)
		if err := model.SetPageSize(*pageSizeFlag); err != nil {
			return err
		}
		if *sortFlag != "" {
			col, dir := parseSort(*sortFlag)
			if err := model.SetSort(col, dir); err != nil {
				return err
			}
		}
		model.SetFilter(*filterFlag)
		model.SetPageIndex(*pageFlag - 1)

		heading := w.address
		if w.input != w.address {
			heading = w.input + " " + w.address
		}
		rng := timerange.Derive(w.records, opts.Formatter.NaiveLocation)
		if err := report.Write(os.Stdout, heading, model.Page(opts.Formatter, locale, tz), rng, opts); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}
