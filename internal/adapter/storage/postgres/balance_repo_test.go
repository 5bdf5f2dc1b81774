package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectQuery("SELECT amount FROM balances WHERE account_address").
		WithArgs("addr_buyer", "USDC").
		WillReturnRows(pgxmock.NewRows([]string{"amount"}).AddRow(int64(7000)))

	amount, err := repo.Get(context.Background(), "addr_buyer", "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_Get_NoRowIsZero(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectQuery("SELECT amount FROM balances WHERE account_address").
		WithArgs("addr_buyer", "XLM").
		WillReturnRows(pgxmock.NewRows([]string{"amount"}))

	amount, err := repo.Get(context.Background(), "addr_buyer", "XLM")
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_GetForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT amount FROM balances WHERE account_address .+ FOR UPDATE").
		WithArgs("addr_buyer", "USDC").
		WillReturnRows(pgxmock.NewRows([]string{"amount"}).AddRow(int64(100)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	amount, found, err := repo.GetForUpdate(context.Background(), tx, "addr_buyer", "USDC")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(100), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_GetForUpdate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT amount FROM balances WHERE account_address .+ FOR UPDATE").
		WithArgs("addr_buyer", "XLM").
		WillReturnRows(pgxmock.NewRows([]string{"amount"}))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	amount, found, err := repo.GetForUpdate(context.Background(), tx, "addr_buyer", "XLM")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(0), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO balances").
		WithArgs("addr_buyer", "USDC", int64(170)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Upsert(context.Background(), tx, "addr_buyer", "USDC", 170)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)

	mock.ExpectQuery("SELECT asset, amount FROM balances WHERE account_address").
		WithArgs("addr_buyer").
		WillReturnRows(pgxmock.NewRows([]string{"asset", "amount"}).
			AddRow("USDC", int64(7000)).
			AddRow("XLM", int64(250)))

	balances, err := repo.ListByAccount(context.Background(), "addr_buyer")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "USDC", balances[0].Asset)
	assert.Equal(t, int64(7000), balances[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
