package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

func newEmailStoreMock(t *testing.T) (*EmailStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewEmailStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestRecordCountsNewRowsThenZero(t *testing.T) {
	t.Parallel()

	store, mock := newEmailStoreMock(t)
	page := "https://smithlaw.com/contact"
	mock.ExpectExec("INSERT INTO extracted_emails").
		WithArgs(int64(1), "a@b.com", &page).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ON CONFLICT \\(firm_id, email\\) DO NOTHING").
		WithArgs(int64(1), "a@b.com", &page).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	hits := []lead.Hit{{Email: "a@b.com", SourcePage: page}}
	n, err := store.Record(context.Background(), 1, hits)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Record(context.Background(), 1, hits)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordLowercasesBeforeInsert(t *testing.T) {
	t.Parallel()

	store, mock := newEmailStoreMock(t)
	mock.ExpectExec("INSERT INTO extracted_emails").
		WithArgs(int64(1), "a@b.com", (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	n, err := store.Record(context.Background(), 1, []lead.Hit{{Email: " A@B.com "}})
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordContinuesPastFailures(t *testing.T) {
	t.Parallel()

	store, mock := newEmailStoreMock(t)
	mock.ExpectExec("INSERT INTO extracted_emails").
		WithArgs(int64(9), "first@firm.com", pgxmock.AnyArg()).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectExec("INSERT INTO extracted_emails").
		WithArgs(int64(9), "second@firm.com", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := store.Record(context.Background(), 9, []lead.Hit{
		{Email: "first@firm.com", SourcePage: "https://firm.com"},
		{Email: "second@firm.com", SourcePage: "https://firm.com"},
		{Email: "  "},
	})
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, lead.ErrStorage)
	assert.Contains(t, err.Error(), "first@firm.com")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmails(t *testing.T) {
	t.Parallel()

	store, mock := newEmailStoreMock(t)
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM extracted_emails WHERE firm_id").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "firm_id", "email", "source_page", "found_at"}).
			AddRow(int64(1), int64(3), "info@firm.com", "https://firm.com", at))

	got, err := store.List(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []lead.ExtractedEmail{{
		ID: 1, FirmID: 3, Email: "info@firm.com", SourcePage: "https://firm.com", FoundAt: at,
	}}, got)
}
