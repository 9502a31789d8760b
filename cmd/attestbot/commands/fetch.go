package commands

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/config"
	"git.home.luguber.info/inful/attestbot/internal/ledger"
)

// FetchCmd fetches one attestation record by uid and prints it. Useful for
// checking what a run actually wrote to the ledger.
type FetchCmd struct {
	UID string `required:"" help:"Attestation uid to fetch"`
}

func (f *FetchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ledger.RequestTimeout)
	defer cancel()

	att, err := ledger.NewClient(cfg.Ledger).FetchAttestation(ctx, f.UID)
	if err != nil {
		return err
	}

	out := struct {
		UID       string    `json:"id"`
		TxID      string    `json:"txid"`
		SchemaID  string    `json:"schemaId"`
		Attester  string    `json:"attester"`
		Recipient string    `json:"recipient"`
		Time      time.Time `json:"time"`
		Revoked   bool      `json:"revoked"`
	}{att.UID, att.TxID, att.SchemaID, att.Attester, att.Recipient, att.Time, att.Revoked}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
