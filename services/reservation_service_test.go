package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatgrid/internal/status"
	"seatgrid/utils"
)

func setupTestReservationService() (*ReservationService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()

	service := &ReservationService{
		redis:            db,
		holdDuration:     300 * time.Second,
		receiptRetention: 24 * time.Hour,
		drsTimeout:       5 * time.Second,
		hssBreaker:       utils.NewCircuitBreaker("hss-test"),
		drsBreaker:       utils.NewCircuitBreaker("drs-test"),
		metrics:          noopMetrics{},
	}

	return service, mock
}

func TestReservationService_Hold_Success(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectEval(holdScriptSrc, []string{"seat:A1"}, "user-1", int64(300)).SetVal(int64(1))

	err := service.Hold(ctx, "A1", "user-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_Hold_Conflict(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectEval(holdScriptSrc, []string{"seat:A1"}, "user-2", int64(300)).SetVal(int64(0))

	err := service.Hold(ctx, "A1", "user-2")

	assert.ErrorIs(t, err, status.ErrSeatUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_Release_Success(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectEval(releaseScriptSrc, []string{"seat:A1"}, "user-1").SetVal(int64(1))

	err := service.Release(ctx, "A1", "user-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_CurrentHolder_Missing(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectGet("seat:A1").RedisNil()

	holder, err := service.currentHolder(ctx, "A1")

	require.NoError(t, err)
	assert.Empty(t, holder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_CurrentHolder_Locked(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectGet("seat:A1").SetVal("LOCKED:user-1")

	holder, err := service.currentHolder(ctx, "A1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", holder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_CurrentHolder_Sold(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectGet("seat:A1").SetVal("SOLD")

	holder, err := service.currentHolder(ctx, "A1")

	require.NoError(t, err)
	assert.Empty(t, holder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_LookupReceipt_Missing(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectGet("receipt:idem-1").RedisNil()

	receipt, err := service.lookupReceipt(ctx, "idem-1")

	require.NoError(t, err)
	assert.Nil(t, receipt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationService_LookupReceipt_Found(t *testing.T) {
	service, mock := setupTestReservationService()
	defer mock.ClearExpect()

	ctx := context.Background()

	stored := `{"success":true,"txId":"tx_abc","seatId":"A1","userId":"user-1","issuedAt":"2026-01-01T00:00:00Z"}`
	mock.ExpectGet("receipt:idem-1").SetVal(stored)

	receipt, err := service.lookupReceipt(ctx, "idem-1")

	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "tx_abc", receipt.TxID)
	assert.Equal(t, "A1", receipt.SeatID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
