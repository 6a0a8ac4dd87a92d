package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusops/erp/internal/app/models"
	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/payments"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// FeeService reads fee ledgers and records payments against them
type FeeService struct {
	tx            repositories.Transactor
	repos         *repositories.Repositories
	gateway       payments.Gateway
	notifications *NotificationService
	tasks         notifier.Enqueuer
	now           Clock
	logger        zerolog.Logger
}

// NewFeeService creates a new FeeService. A nil gateway disables online checkout.
func NewFeeService(
	tx repositories.Transactor,
	repos *repositories.Repositories,
	gateway payments.Gateway,
	notifications *NotificationService,
	tasks notifier.Enqueuer,
	logger zerolog.Logger,
) *FeeService {
	return &FeeService{
		tx:            tx,
		repos:         repos,
		gateway:       gateway,
		notifications: notifications,
		tasks:         tasks,
		now:           utcNow,
		logger:        logger.With().Str("service", "fees").Logger(),
	}
}

func (s *FeeService) toResponse(l *models.FeeLedger) *dto.FeeLedgerResponse {
	if l.PaymentHistory == nil {
		l.PaymentHistory = []models.Payment{}
	}
	return &dto.FeeLedgerResponse{FeeLedger: l, Balance: l.Balance(), Status: l.Status(s.now())}
}

// GetLedger returns a ledger with its balance and status computed now
func (s *FeeService) GetLedger(ctx context.Context, studentID string) (*dto.FeeLedgerResponse, error) {
	ledger, err := s.repos.Fees.GetLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ledger), nil
}

// RecordPayment appends a payment and raises the paid amount in one transaction. A
// reference that was already recorded is rejected with ErrDuplicatePayment.
func (s *FeeService) RecordPayment(ctx context.Context, studentID string, req *dto.RecordPaymentRequest) (*dto.FeeLedgerResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	reference := strings.TrimSpace(req.Reference)

	var (
		ledger  *models.FeeLedger
		student *models.StudentProfile
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if ledger, err = repos.Fees.GetLedgerForUpdate(ctx, studentID); err != nil {
			return err
		}
		if ledger.HasReference(reference) {
			return apperrors.ErrDuplicatePayment
		}
		if student, err = repos.Users.GetStudent(ctx, studentID); err != nil {
			return err
		}

		now := s.now()
		ledger.PaymentHistory = append(ledger.PaymentHistory, models.Payment{
			Amount:    req.Amount,
			Method:    req.Method,
			Reference: reference,
			PaidAt:    now,
		})
		ledger.AmountPaid += req.Amount
		ledger.UpdatedAt = now
		return repos.Fees.UpdateLedger(ctx, ledger)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("student", studentID).Int64("amount", req.Amount).Str("method", req.Method).Msg("Payment recorded")
	s.notifyPayment(student.UserUID, req.Amount, ledger.Balance())
	return s.toResponse(ledger), nil
}

func (s *FeeService) notifyPayment(uid string, amount, balance int64) {
	if s.notifications == nil {
		return
	}
	s.tasks.Enqueue("payment-notification", func(ctx context.Context) error {
		_, err := s.notifications.Notify(ctx, uid, "Payment received",
			fmt.Sprintf("We received a payment of %d. Outstanding balance: %d.", amount, balance))
		return err
	})
}

// Checkout creates a payment page for the outstanding balance of a student
func (s *FeeService) Checkout(ctx context.Context, studentID string) (*dto.CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrPaymentsDisabled
	}
	ledger, err := s.repos.Fees.GetLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}
	balance := ledger.Balance()
	if balance <= 0 {
		return nil, apperrors.NewBadRequestError("there is no outstanding balance")
	}
	student, err := s.repos.Users.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	checkout, err := s.gateway.CreateCheckout(
		payments.FeeOrderID(studentID, s.now()),
		balance,
		payments.Customer{Name: student.Name, Email: student.Email, Phone: student.Phone},
		"Fees "+student.CollegeID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	}
	return &dto.CheckoutResponse{
		OrderID:     checkout.OrderID,
		Token:       checkout.Token,
		RedirectURL: checkout.RedirectURL,
		Amount:      checkout.Amount,
	}, nil
}

// HandlePaymentNotification records a settled online payment. The order ID is the
// payment reference, so a notification delivered twice is recorded once.
func (s *FeeService) HandlePaymentNotification(ctx context.Context, n *payments.Notification) error {
	if s.gateway == nil {
		return apperrors.ErrPaymentsDisabled
	}
	if err := s.gateway.VerifyNotification(n); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidNotification, err)
	}

	log := s.logger.With().Str("order", n.OrderID).Str("status", n.TransactionStatus).Logger()
	if !n.Settled() {
		log.Info().Msg("Ignoring unsettled payment notification")
		return nil
	}

	studentID, ok := payments.StudentIDFromOrder(n.OrderID)
	if !ok {
		return fmt.Errorf("%w: unknown order %s", apperrors.ErrInvalidNotification, n.OrderID)
	}
	amount, err := n.Amount()
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidNotification, err)
	}

	_, err = s.RecordPayment(ctx, studentID, &dto.RecordPaymentRequest{
		Amount:    amount,
		Method:    "online",
		Reference: n.OrderID,
	})
	if errors.Is(err, apperrors.ErrDuplicatePayment) {
		log.Info().Msg("Payment notification already recorded")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("paymentType", n.PaymentType).Int64("amount", amount).Msg("Online payment recorded")
	return nil
}
