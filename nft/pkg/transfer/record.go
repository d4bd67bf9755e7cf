package transfer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one loosely-typed result row as returned by a query backend. Keys are
// lower-cased column names.
type Row map[string]any

// InboundType describes how an asset entered the tracked wallet.
type InboundType string

const (
	InboundMinted   InboundType = "Minted"
	InboundSent     InboundType = "Sent"
	InboundReceived InboundType = "Received"
)

// OutboundType describes how an asset left the tracked wallet, if it did.
type OutboundType string

const (
	OutboundBurned      OutboundType = "Burned"
	OutboundHeld        OutboundType = "N/A"
	OutboundTransferred OutboundType = "Transferred"
)

// Column names produced by the NFT transfers query.
const (
	ColToContractAddress   = "tocontractaddress"
	ColFromContractAddress = "fromcontractaddress"
	ColFromAddress         = "fromaddress"
	ColProjectName         = "projectname"
	ColTokenID             = "tokenid"
	ColSourceAddress       = "transferinsourceaddress"
	ColTargetAddress       = "transferouttargetaddress"
	ColInboundTimestamp    = "transfertotimestamp"
	ColOutboundTimestamp   = "transferfromtimestamp"
	ColInboundTxHash       = "transfertotxhash"
	ColOutboundTxHash      = "transferfromtxhash"
	ColInboundType         = "transfertotype"
	ColOutboundType        = "transferfromtype"
	ColMintPriceETH        = "mint_price_eth"
	ColMintPriceUSD        = "mint_price_usd"
	ColMintTxFee           = "mint_tx_fee"
	ColTokenMetadata       = "token_metadata"
	ColMyAddress           = "myaddress"
)

// Record is one NFT transfer or mint event touching the tracked wallet.
// Records are never mutated after FromRow returns them.
type Record struct {
	ContractAddress string
	TokenID         string
	ProjectName     string

	// SourceAddress sent the asset into the wallet; TargetAddress received it
	// on the way out and is empty while the asset is held.
	SourceAddress string
	TargetAddress string

	// InboundAt and OutboundAt are raw DB timestamps. OutboundAt is empty
	// while the asset is still held.
	InboundAt  string
	OutboundAt string

	InboundTxHash  string
	OutboundTxHash string

	InboundType  InboundType
	OutboundType OutboundType

	MintPriceETH decimal.NullDecimal
	MintPriceUSD decimal.NullDecimal
	MintTxFee    decimal.NullDecimal

	TokenMetadata json.RawMessage

	Raw Row
}

// Held reports whether the asset has not left the wallet.
func (r Record) Held() bool {
	return r.OutboundAt == ""
}

// FromRows converts every row, preserving order.
func FromRows(rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, FromRow(row))
	}
	return records
}

// FromRow converts a result row. Missing or ill-typed columns become zero
// values.
func FromRow(row Row) Record {
	rec := Record{
		ContractAddress: row.String(ColToContractAddress),
		TokenID:         row.String(ColTokenID),
		ProjectName:     row.String(ColProjectName),
		SourceAddress:   row.String(ColSourceAddress),
		TargetAddress:   row.String(ColTargetAddress),
		InboundAt:       row.String(ColInboundTimestamp),
		OutboundAt:      row.String(ColOutboundTimestamp),
		InboundTxHash:   row.String(ColInboundTxHash),
		OutboundTxHash:  row.String(ColOutboundTxHash),
		InboundType:     InboundType(row.String(ColInboundType)),
		OutboundType:    OutboundType(row.String(ColOutboundType)),
		MintPriceETH:    row.Decimal(ColMintPriceETH),
		MintPriceUSD:    row.Decimal(ColMintPriceUSD),
		MintTxFee:       row.Decimal(ColMintTxFee),
		Raw:             row,
	}
	if rec.ContractAddress == "" {
		rec.ContractAddress = row.String(ColFromContractAddress)
	}
	if meta, ok := row[ColTokenMetadata]; ok && meta != nil {
		switch v := meta.(type) {
		case string:
			if json.Valid([]byte(v)) {
				rec.TokenMetadata = json.RawMessage(v)
			}
		default:
			if b, err := json.Marshal(v); err == nil {
				rec.TokenMetadata = b
			}
		}
	}
	return rec
}

// String returns the column as a string, or "" when absent or null.
func (r Row) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case float64:
		return decimal.NewFromFloat(val).String()
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// Decimal returns the column as a decimal. Unparseable values are invalid.
func (r Row) Decimal(col string) decimal.NullDecimal {
	v, ok := r[col]
	if !ok || v == nil {
		return decimal.NullDecimal{}
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(val))
	case float32:
		return decimal.NewNullDecimal(decimal.NewFromFloat32(val))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(val))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(val)))
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case decimal.Decimal:
		return decimal.NewNullDecimal(val)
	}
	s := r.String(col)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
