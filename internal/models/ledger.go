package models

import (
	"time"
)

// AccountKind identifies who owns a ledger account.
type AccountKind string

const (
	AccountKindPlatform   AccountKind = "platform"
	AccountKindInstructor AccountKind = "instructor"
	AccountKindUser       AccountKind = "user"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindPlatform, AccountKindInstructor, AccountKindUser:
		return true
	}
	return false
}

// Direction of an entry, set by the leg's role. It agrees with the sign of
// Entry.Amount whenever the amount is non-zero.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Opposite returns the direction a reversing entry takes.
func (d Direction) Opposite() Direction {
	if d == DirectionDebit {
		return DirectionCredit
	}
	return DirectionDebit
}

// Reference types carried by entries and transfers.
const (
	RefTypePurchase = "purchase"
	RefTypeReversal = "reversal"
)

// Account is a currency-scoped bucket owned by the platform, an instructor or a user.
// Its balance is never stored; see Entry.
type Account struct {
	ID        string      `json:"id" db:"id"`
	OwnerID   *string     `json:"ownerId" db:"owner_id"` // nil only for the platform account
	Kind      AccountKind `json:"kind" db:"kind"`
	Currency  string      `json:"currency" db:"currency"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// Entry is one immutable signed line against an account.
type Entry struct {
	ID             string    `json:"id" db:"id"`
	AccountID      string    `json:"accountId" db:"account_id"`
	Amount         int64     `json:"amount" db:"amount"` // in cents, negative for debits
	Direction      Direction `json:"direction" db:"direction"`
	Currency       string    `json:"currency" db:"currency"`
	RefType        string    `json:"refType" db:"ref_type"`
	RefID          string    `json:"refId" db:"ref_id"`
	IdempotencyKey string    `json:"idempotencyKey" db:"idempotency_key"`
	Metadata       Metadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Transfer is the header row that groups the entries of one balanced posting.
type Transfer struct {
	RefID             string    `json:"refId" db:"ref_id"`
	IdempotencyKey    string    `json:"idempotencyKey" db:"idempotency_key"`
	RefType           string    `json:"refType" db:"ref_type"`
	Currency          string    `json:"currency" db:"currency"`
	GrossAmount       int64     `json:"grossAmount" db:"gross_amount"`
	PlatformFeeAmount int64     `json:"platformFeeAmount" db:"platform_fee_amount"`
	ProductID         string    `json:"productId,omitempty" db:"product_id"`
	ReversesRefID     *string   `json:"reversesRefId,omitempty" db:"reverses_ref_id"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// FeeCalculation is the gross/fee/net split for one sale. Not persisted.
type FeeCalculation struct {
	GrossAmountCents   int64   `json:"grossAmountCents"`
	PlatformFeeCents   int64   `json:"platformFeeCents"`
	InstructorNetCents int64   `json:"instructorNetCents"`
	FeePercentage      float64 `json:"feePercentage"`
	TrustScore         int     `json:"trustScore"`
	Tier               string  `json:"tier"`
	Fallback           bool    `json:"fallback"`
}

// TransferResult describes a posted (or replayed) transfer.
type TransferResult struct {
	RefID               string   `json:"refId"`
	IdempotencyKey      string   `json:"idempotencyKey"`
	RefType             string   `json:"refType"`
	Currency            string   `json:"currency"`
	GrossAmount         int64    `json:"grossAmount"`
	PlatformFeeAmount   int64    `json:"platformFeeAmount"`
	InstructorNetAmount int64    `json:"instructorNetAmount"`
	Entries             []*Entry `json:"entries"`
	Replayed            bool     `json:"replayed"`
}

// EarningsRow shows what an instructor nets at one tier.
type EarningsRow struct {
	Tier               string  `json:"tier"`
	MinScore           int     `json:"minScore"`
	MaxScore           int     `json:"maxScore"`
	FeePercentage      float64 `json:"feePercentage"`
	PlatformFeeCents   int64   `json:"platformFeeCents"`
	InstructorNetCents int64   `json:"instructorNetCents"`
}

// EarningsBoost compares the current tier's net against the Unverified tier.
type EarningsBoost struct {
	TrustScore       int     `json:"trustScore"`
	Tier             string  `json:"tier"`
	CurrentNetCents  int64   `json:"currentNetCents"`
	BaselineNetCents int64   `json:"baselineNetCents"`
	ExtraCents       int64   `json:"extraCents"`
	BoostPercentage  float64 `json:"boostPercentage"`
}

// PurchaseEvent is what a payment webhook hands to the ledger once the
// provider's signature and payment status have been verified.
type PurchaseEvent struct {
	BuyerID          string   `json:"buyerId" validate:"required,max=128"`
	InstructorID     string   `json:"instructorId" validate:"required,max=128"`
	ProductID        string   `json:"productId" validate:"required,max=128"`
	GrossAmountCents int64    `json:"grossAmountCents" validate:"gte=0"`
	Currency         string   `json:"currency" validate:"required,len=3,alpha"`
	IdempotencyKey   string   `json:"idempotencyKey" validate:"required,max=255"`
	Metadata         Metadata `json:"metadata,omitempty"`
}

// PurchaseReceipt is returned to the webhook handler for notifications and receipts.
type PurchaseReceipt struct {
	Fee      *FeeCalculation `json:"fee"`
	Transfer *TransferResult `json:"transfer"`
}
