package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthscribe/pkg"
)

func TestNotifier_NotifyMinted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n := NewNotifier(db, "summary_minted")
	mock.ExpectExec("SELECT pg_notify").
		WithArgs("summary_minted", `{"summary_id":"s-1","wallet":"0xabc","severity":"high"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = n.NotifyMinted(context.Background(), pkg.MedicalSummary{ID: "s-1", OwnerWallet: "0xabc", Severity: pkg.SeverityHigh})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifier_NotifyMinted_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n := NewNotifier(db, "summary_minted")
	mock.ExpectExec("SELECT pg_notify").WillReturnError(errors.New("boom"))

	err = n.NotifyMinted(context.Background(), pkg.MedicalSummary{ID: "s-1"})
	assert.ErrorContains(t, err, "pg_notify summary_minted")
}
