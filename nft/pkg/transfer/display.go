package transfer

import (
	"github.com/shopspring/decimal"
)

const (
	tokenIDDisplayLen = 10
	amountPlaces      = 5
)

// ShortTokenID returns at most the first ten characters of the token id.
func (r Record) ShortTokenID() string {
	if len(r.TokenID) <= tokenIDDisplayLen {
		return r.TokenID
	}
	return r.TokenID[:tokenIDDisplayLen]
}

// FormatAmount rounds to five decimal places and drops trailing zeros.
// Absent amounts format as "0".
func FormatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return "0"
	}
	return d.Decimal.Round(amountPlaces).String()
}

// Summary is the detail panel content for one record. Timestamps are left
// raw for the caller to localize.
type Summary struct {
	ProjectName  string `json:"projectName"`
	TokenID      string `json:"tokenId"`
	MintPriceETH string `json:"mintPriceEth"`
	MintPriceUSD string `json:"mintPriceUsd"`
	MintTxFee    string `json:"mintTxFee"`
	InboundAt    string `json:"inboundAt"`
	OutboundAt   string `json:"outboundAt,omitempty"`
}

func (r Record) Summary() Summary {
	return Summary{
		ProjectName:  r.ProjectName,
		TokenID:      r.ShortTokenID(),
		MintPriceETH: FormatAmount(r.MintPriceETH),
		MintPriceUSD: FormatAmount(r.MintPriceUSD),
		MintTxFee:    FormatAmount(r.MintTxFee),
		InboundAt:    r.InboundAt,
		OutboundAt:   r.OutboundAt,
	}
}
