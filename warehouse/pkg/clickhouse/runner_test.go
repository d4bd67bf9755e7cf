package clickhouse_test

import (
	"context"
	"flag"
	"os"
	"testing"

	apitesting "github.com/draup/assetexplorer/api/testing"
	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/draup/assetexplorer/nft/pkg/transfers"
	"github.com/draup/assetexplorer/utils/pkg/logger"
	"github.com/draup/assetexplorer/warehouse/pkg/clickhouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChDB *apitesting.ClickHouseDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	log := logger.New(false)
	db, err := apitesting.NewClickHouseDB(context.Background(), log, nil)
	if err != nil {
		log.Error("failed to start ClickHouse container", "error", err)
		os.Exit(1)
	}
	testChDB = db
	code := m.Run()
	testChDB.Close()
	os.Exit(code)
}

func TestRunnerConfig(t *testing.T) {
	t.Parallel()
	_, err := clickhouse.NewRunner(clickhouse.RunnerConfig{})
	require.EqualError(t, err, "logger is required")
	_, err = clickhouse.NewRunner(clickhouse.RunnerConfig{Logger: logger.New(false)})
	require.EqualError(t, err, "conn is required")
}

func TestRunner_TransfersQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	t.Parallel()
	log := logger.New(false)
	conn := apitesting.NewTestWarehouse(t, log, testChDB)
	ctx := t.Context()

	const (
		wallet = "0x1111111111111111111111111111111111111111"
		other  = "0x2222222222222222222222222222222222222222"
		zero   = "0x0000000000000000000000000000000000000000"
	)

	require.NoError(t, conn.Exec(ctx, `
		INSERT INTO ez_nft_transfers
			(block_timestamp, block_number, tx_hash, event_index, nft_address, project_name, nft_from_address, nft_to_address, tokenid, erc1155_value)
		VALUES
			('2022-01-02 08:00:00.000', 1, '0xmint', 0, '0xcontract', 'azuki', ?, ?, '1', NULL),
			('2022-01-10 12:00:00.000', 2, '0xsell', 0, '0xcontract', 'azuki', ?, ?, '1', NULL),
			('2022-01-05 12:00:00.000', 3, '0xgift', 0, '0xcontract', 'azuki', ?, ?, '2', NULL)`,
		zero, wallet, wallet, other, other, wallet))
	require.NoError(t, conn.Exec(ctx, `
		INSERT INTO ez_nft_mints
			(block_timestamp, tx_hash, nft_address, project_name, nft_to_address, tokenid, erc1155_value, mint_price_eth, mint_price_usd, tx_fee, token_metadata)
		VALUES
			('2022-01-02 08:00:00.000', '0xmint', '0xcontract', 'azuki', ?, '1', NULL, 0.05, 150.123456, 0.0021, '{"trait":"red"}'),
			('2022-01-01 00:00:00.000', '0xmint2', '0xcontract', 'azuki', ?, '2', NULL, NULL, NULL, NULL, NULL)`,
		wallet, other))

	runner, err := clickhouse.NewRunner(clickhouse.RunnerConfig{Logger: log, Conn: conn})
	require.NoError(t, err)
	fetcher, err := transfers.NewFetcher(transfers.Config{Logger: log, Runner: runner, Tables: query.WarehouseTables})
	require.NoError(t, err)

	records, err := fetcher.Fetch(ctx, wallet)
	require.NoError(t, err)
	require.Len(t, records, 2)

	held := records[0]
	assert.Equal(t, "2", held.TokenID)
	assert.Equal(t, "2022-01-05 12:00:00.000", held.InboundAt)
	assert.Equal(t, transfer.InboundReceived, held.InboundType)
	assert.Equal(t, transfer.OutboundHeld, held.OutboundType)
	assert.True(t, held.Held())
	assert.False(t, held.MintPriceETH.Valid)

	sold := records[1]
	assert.Equal(t, "1", sold.TokenID)
	assert.Equal(t, "0xcontract", sold.ContractAddress)
	assert.Equal(t, transfer.InboundMinted, sold.InboundType)
	assert.Equal(t, transfer.OutboundTransferred, sold.OutboundType)
	assert.Equal(t, other, sold.TargetAddress)
	assert.Equal(t, "2022-01-10 12:00:00.000", sold.OutboundAt)
	assert.Equal(t, "0xsell", sold.OutboundTxHash)
	assert.Equal(t, "0.05", sold.Summary().MintPriceETH)
	assert.JSONEq(t, `{"trait":"red"}`, string(sold.TokenMetadata))
}

func TestRunner_PageSize(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	t.Parallel()
	log := logger.New(false)
	conn := apitesting.NewTestWarehouse(t, log, testChDB)

	runner, err := clickhouse.NewRunner(clickhouse.RunnerConfig{Logger: log, Conn: conn})
	require.NoError(t, err)
	req := query.NewRequest("SELECT number AS N FROM system.numbers LIMIT 10")
	req.PageSize = 3
	rows, err := runner.Run(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, uint64(0), rows[0]["n"])
}
