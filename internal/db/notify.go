package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"healthscribe/pkg"
)

// Notifier publishes mint events on a PostgreSQL NOTIFY channel so other
// processes can react to newly minted summaries.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a new Notifier.  The channel should match the
// NOTIFY_CHANNEL environment variable.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

type mintEvent struct {
	SummaryID string `json:"summary_id"`
	Wallet    string `json:"wallet"`
	Severity  string `json:"severity"`
}

// NotifyMinted sends the minted summary's id, owner and severity as a JSON
// payload.
func (n *Notifier) NotifyMinted(ctx context.Context, s pkg.MedicalSummary) error {
	payload, err := json.Marshal(mintEvent{
		SummaryID: s.ID,
		Wallet:    s.OwnerWallet,
		Severity:  string(s.Severity),
	})
	if err != nil {
		return err
	}
	if _, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify %s: %w", n.Channel, err)
	}
	return nil
}
