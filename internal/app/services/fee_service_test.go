package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/payments"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	orders []string
	fail   error
}

func (g *fakeGateway) CreateCheckout(orderID string, amount int64, _ payments.Customer, _ string) (*payments.Checkout, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	g.orders = append(g.orders, orderID)
	return &payments.Checkout{OrderID: orderID, Token: "snap-token", RedirectURL: "https://pay.example/" + orderID, Amount: amount}, nil
}

func (g *fakeGateway) VerifyNotification(n *payments.Notification) error {
	if n.SignatureKey != "signed" {
		return payments.ErrInvalidSignature
	}
	return nil
}

func TestRecordPaymentUpdatesStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	ledger, err := env.fees.GetLedger(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPending, ledger.Status)
	assert.Equal(t, int64(150000), ledger.Balance)

	partial, err := env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 50000, Method: "cash", Reference: " RCPT-1 "})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPartial, partial.Status)
	assert.Equal(t, int64(100000), partial.Balance)
	require.Len(t, partial.PaymentHistory, 1)
	assert.Equal(t, "RCPT-1", partial.PaymentHistory[0].Reference)

	paid, err := env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 100000, Method: "bank_transfer", Reference: "NEFT-9"})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, paid.Status)
	assert.Zero(t, paid.Balance)
	assert.Equal(t, int64(150000), paid.AmountPaid)

	assert.Equal(t, 2, env.tasks.ran("payment-notification"))
	notes, err := env.notifications.List(ctx, student.UserUID, 0)
	require.NoError(t, err)
	assert.Len(t, notes, 3)
}

func TestRecordPaymentRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	_, err := env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 1000, Method: "cash", Reference: "R-1"})
	require.NoError(t, err)

	_, err = env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 1000, Method: "cash", Reference: "R-1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePayment)

	_, err = env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 0, Method: "cash"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.fees.RecordPayment(ctx, student.ID, &dto.RecordPaymentRequest{Amount: 10, Method: "barter"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = env.fees.RecordPayment(ctx, "missing", &dto.RecordPaymentRequest{Amount: 10, Method: "cash"})
	assert.ErrorIs(t, err, apperrors.ErrFeeLedgerNotFound)

	ledger, err := env.fees.GetLedger(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ledger.AmountPaid)
	assert.Len(t, ledger.PaymentHistory, 1)
}

func TestLedgerOverdueAfterDueDate(t *testing.T) {
	env := newTestEnv(t)
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")
	env.fees.now = func() time.Time { return time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC) }

	ledger, err := env.fees.GetLedger(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusOverdue, ledger.Status)
}

func TestCheckoutWithoutGateway(t *testing.T) {
	env := newTestEnv(t)
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	_, err := env.fees.Checkout(context.Background(), student.ID)
	assert.ErrorIs(t, err, apperrors.ErrPaymentsDisabled)
}

func TestOnlinePaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")

	gateway := &fakeGateway{}
	fees := NewFeeService(env.db, env.repos, gateway, env.notifications, env.tasks, zerolog.Nop())
	fees.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

	checkout, err := fees.Checkout(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), checkout.Amount)
	assert.Equal(t, payments.FeeOrderID(student.ID, fees.now()), checkout.OrderID)

	pending := &payments.Notification{
		OrderID: checkout.OrderID, StatusCode: "201", GrossAmount: "150000.00",
		SignatureKey: "signed", TransactionStatus: "pending",
	}
	require.NoError(t, fees.HandlePaymentNotification(ctx, pending))
	ledger, err := fees.GetLedger(ctx, student.ID)
	require.NoError(t, err)
	assert.Zero(t, ledger.AmountPaid)

	settled := *pending
	settled.StatusCode, settled.TransactionStatus = "200", "settlement"
	require.NoError(t, fees.HandlePaymentNotification(ctx, &settled))
	// Redelivery is recorded once
	require.NoError(t, fees.HandlePaymentNotification(ctx, &settled))

	ledger, err = fees.GetLedger(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, ledger.Status)
	require.Len(t, ledger.PaymentHistory, 1)
	assert.Equal(t, "online", ledger.PaymentHistory[0].Method)
	assert.Equal(t, checkout.OrderID, ledger.PaymentHistory[0].Reference)

	_, err = fees.Checkout(ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	forged := settled
	forged.SignatureKey = "forged"
	assert.ErrorIs(t, fees.HandlePaymentNotification(ctx, &forged), apperrors.ErrInvalidNotification)
}

func TestCheckoutGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	student := env.mustStudent(t, "Arjun Rao", "arjun@college.edu")
	fees := NewFeeService(env.db, env.repos, &fakeGateway{fail: errors.New("timeout")}, nil, env.tasks, zerolog.Nop())

	_, err := fees.Checkout(context.Background(), student.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
