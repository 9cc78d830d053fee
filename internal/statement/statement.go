// Package statement renders an account's transaction history as an XML
// statement document for export.
package statement

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/quantumleap-finance/staking-service/internal/ledger"
)

// Render builds the XML statement for an account. Entries are written in
// chronological order together with the closing balance.
func Render(email string, entries []ledger.Transaction, balance string, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Statement")
	root.CreateAttr("account", email)
	root.CreateAttr("generatedAt", generatedAt.Format(time.RFC3339))

	txs := root.CreateElement("Transactions")
	txs.CreateAttr("count", fmt.Sprintf("%d", len(entries)))
	for _, t := range entries {
		e := txs.CreateElement("Transaction")
		e.CreateAttr("id", t.ID)
		e.CreateElement("Timestamp").SetText(t.Timestamp.Format(time.RFC3339))
		e.CreateElement("Type").SetText(string(t.Type))
		e.CreateElement("Amount").SetText(t.Amount.String())
		e.CreateElement("Status").SetText(string(t.Status))
		if t.Details != "" {
			e.CreateElement("Details").SetText(t.Details)
		}
	}
	root.CreateElement("ClosingBalance").SetText(balance)

	doc.Indent(2)
	return doc.WriteToBytes()
}
