package models

import "time"

// FeeStatus is derived from a ledger on read
type FeeStatus string

const (
	FeeStatusPaid    FeeStatus = "Paid"
	FeeStatusPartial FeeStatus = "Partial"
	FeeStatusOverdue FeeStatus = "Overdue"
	FeeStatusPending FeeStatus = "Pending"
)

// FeeLedger is keyed by student profile ID. Amounts are in the smallest currency unit.
type FeeLedger struct {
	StudentID      string    `json:"studentId" db:"student_id"`
	TotalFees      int64     `json:"totalFees" db:"total_fees" example:"150000"`
	AmountPaid     int64     `json:"amountPaid" db:"amount_paid" example:"50000"`
	PaymentHistory []Payment `json:"paymentHistory" db:"payment_history"`
	DueDate        time.Time `json:"dueDate" db:"due_date"`
	Timestamps
}

// Payment is one entry of a ledger's history
type Payment struct {
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paidAt"`
}

// Balance is never stored
func (l *FeeLedger) Balance() int64 {
	return l.TotalFees - l.AmountPaid
}

// Status derives the ledger status at the given instant
func (l *FeeLedger) Status(now time.Time) FeeStatus {
	switch {
	case l.Balance() <= 0:
		return FeeStatusPaid
	case l.AmountPaid > 0:
		return FeeStatusPartial
	case !l.DueDate.IsZero() && now.After(l.DueDate):
		return FeeStatusOverdue
	default:
		return FeeStatusPending
	}
}

// HasReference reports whether a payment with the reference was already recorded
func (l *FeeLedger) HasReference(ref string) bool {
	if ref == "" {
		return false
	}
	for _, p := range l.PaymentHistory {
		if p.Reference == ref {
			return true
		}
	}
	return false
}
