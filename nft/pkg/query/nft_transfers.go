package query

import (
	"strings"
	"text/template"
)

// Tables names the source tables the transfers query reads from.
type Tables struct {
	Transfers string
	Mints     string
}

// FlipsideTables are the table names on the Flipside analytics service.
var FlipsideTables = Tables{
	Transfers: "flipside_prod_db.ethereum_core.ez_nft_transfers",
	Mints:     "flipside_prod_db.ethereum_core.ez_nft_mints",
}

// WarehouseTables are the tables created by the warehouse migrations.
var WarehouseTables = Tables{
	Transfers: "ez_nft_transfers",
	Mints:     "ez_nft_mints",
}

const (
	zeroAddress = "0x0000000000000000000000000000000000000000"
	deadAddress = "0x000000000000000000000000000000000000dEaD"
)

var nftTransfersTmpl = template.Must(template.New("nft_transfers").Parse(`
WITH nfttransfertowallet
     AS (SELECT nft_address      AS tocontractaddress,
                nft_from_address AS transferinsourceaddress,
                nft_to_address,
                project_name     AS projectname,
                tokenid          AS tokenid,
                block_timestamp  AS transfertotimestamp,
                tx_hash          AS transfertotxhash
         FROM   {{.Tables.Transfers}} AS transfers_to
         WHERE  Lower(transfers_to.nft_to_address) = Lower('{{.Wallet}}')
                AND transfers_to.project_name IS NOT NULL
                AND transfers_to.project_name != ''
                AND transfers_to.erc1155_value IS NULL),
     nfttransferfromwallet
     AS (SELECT nft_address      AS fromcontractaddress,
                nft_from_address AS fromaddress,
                nft_to_address   AS transferouttargetaddress,
                project_name     AS fromprojectname,
                tokenid          AS fromtokenid,
                block_timestamp  AS transferfromtimestamp,
                tx_hash          AS transferfromtxhash
         FROM   {{.Tables.Transfers}} AS transfers_from
         WHERE  Lower(transfers_from.nft_from_address) = Lower('{{.Wallet}}')
                AND transfers_from.project_name IS NOT NULL
                AND transfers_from.project_name != ''
                AND COALESCE(transfers_from.erc1155_value, '') = '')
SELECT tocontractaddress,
       fromcontractaddress,
       fromaddress,
       transferouttargetaddress,
       transferinsourceaddress,
       projectname,
       nfttransfertowallet.tokenid AS tokenid,
       transferfromtimestamp,
       transfertotimestamp,
       mints.mint_price_eth AS mint_price_eth,
       mints.tx_fee         AS mint_tx_fee,
       CASE
         WHEN Lower(transferinsourceaddress) = Lower('{{.Zero}}') THEN 'Minted'
         WHEN Lower(transferinsourceaddress) = Lower('{{.Wallet}}') THEN 'Sent'
         ELSE 'Received'
       END AS transfertotype,
       CASE
         WHEN Lower(transferouttargetaddress) IN (Lower('{{.Zero}}'), Lower('{{.Dead}}')) THEN 'Burned'
         WHEN Lower(transferouttargetaddress) IS NULL THEN 'N/A'
         ELSE 'Transferred'
       END AS transferfromtype,
       '{{.Wallet}}' AS myaddress,
       transfertotxhash,
       transferfromtxhash,
       mints.mint_price_usd AS mint_price_usd,
       mints.token_metadata AS token_metadata
FROM   nfttransfertowallet
       INNER JOIN {{.Tables.Mints}} AS mints
               ON mints.nft_address = nfttransfertowallet.tocontractaddress
                  AND nfttransfertowallet.tokenid = mints.tokenid
       LEFT JOIN nfttransferfromwallet
              ON nfttransferfromwallet.fromcontractaddress = nfttransfertowallet.tocontractaddress
                 AND nfttransferfromwallet.fromtokenid = nfttransfertowallet.tokenid
WHERE  COALESCE(mints.erc1155_value, '') = ''
ORDER  BY transfertotimestamp DESC
`))

// NFTTransfers renders the transfers/mints query for a wallet. The wallet is
// embedded as a literal; callers must validate it first.
func NFTTransfers(wallet string, tables Tables) string {
	if tables.Transfers == "" || tables.Mints == "" {
		tables = FlipsideTables
	}
	var b strings.Builder
	// Execute only fails on writer errors, which strings.Builder never returns.
	_ = nftTransfersTmpl.Execute(&b, struct {
		Wallet string
		Tables Tables
		Zero   string
		Dead   string
	}{
		Wallet: wallet,
		Tables: tables,
		Zero:   zeroAddress,
		Dead:   deadAddress,
	})
	return b.String()
}
