// Package payments creates Midtrans Snap checkouts for fee payments and verifies
// their HTTP notifications.
package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrInvalidSignature is returned for notifications not signed with the server key
var ErrInvalidSignature = errors.New("invalid notification signature")

// Checkout is a created Snap transaction
type Checkout struct {
	OrderID     string `json:"orderId"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
	Amount      int64  `json:"amount"`
}

// Customer is shown on the Midtrans payment page
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Notification is the subset of the Midtrans HTTP notification the fee module uses
type Notification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}

// Settled reports whether the money was captured
func (n *Notification) Settled() bool {
	switch n.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return n.FraudStatus == "" || n.FraudStatus == "accept"
	}
	return false
}

// Amount parses gross_amount ("150000.00") into whole currency units
func (n *Notification) Amount() (int64, error) {
	whole := n.GrossAmount
	if i := strings.IndexByte(whole, '.'); i >= 0 {
		whole = whole[:i]
	}
	amount, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gross_amount %q: %w", n.GrossAmount, err)
	}
	return amount, nil
}

// Gateway creates checkouts and verifies notifications
type Gateway interface {
	CreateCheckout(orderID string, amount int64, customer Customer, description string) (*Checkout, error)
	VerifyNotification(n *Notification) error
}

// MidtransGateway is the Snap implementation of Gateway
type MidtransGateway struct {
	serverKey string
	client    snap.Client
}

// NewMidtransGateway creates a Snap client for the sandbox or production environment
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g := &MidtransGateway{serverKey: serverKey}
	g.client.New(serverKey, env)
	return g
}

// FeeOrderID builds the order ID of a fee checkout. The student ID is recoverable
// from it so a notification can be routed to the right ledger.
func FeeOrderID(studentID string, at time.Time) string {
	return fmt.Sprintf("FEE-%s-%d", studentID, at.Unix())
}

// StudentIDFromOrder extracts the student ID from a FeeOrderID
func StudentIDFromOrder(orderID string) (string, bool) {
	if !strings.HasPrefix(orderID, "FEE-") {
		return "", false
	}
	rest := strings.TrimPrefix(orderID, "FEE-")
	i := strings.LastIndexByte(rest, '-')
	if i <= 0 {
		return "", false
	}
	if _, err := strconv.ParseInt(rest[i+1:], 10, 64); err != nil {
		return "", false
	}
	return rest[:i], true
}

// CreateCheckout implements Gateway
func (g *MidtransGateway) CreateCheckout(orderID string, amount int64, customer Customer, description string) (*Checkout, error) {
	if amount <= 0 {
		return nil, errors.New("checkout amount must be positive")
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:       orderID,
			Price:    amount,
			Qty:      1,
			Name:     truncate(description, 50),
			Category: "Tuition",
		}},
	}

	resp, merr := g.client.CreateTransaction(req)
	if merr != nil {
		return nil, fmt.Errorf("midtrans create transaction: %s", merr.GetMessage())
	}
	return &Checkout{OrderID: orderID, Token: resp.Token, RedirectURL: resp.RedirectURL, Amount: amount}, nil
}

// VerifyNotification implements Gateway. The signature is
// SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func (g *MidtransGateway) VerifyNotification(n *Notification) error {
	return verifySignature(g.serverKey, n)
}

func signature(serverKey string, n *Notification) string {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func verifySignature(serverKey string, n *Notification) error {
	want := signature(serverKey, n)
	got := strings.ToLower(n.SignatureKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
