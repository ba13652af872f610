package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/freightops/afrmm/pkg/money"
)

// RecordStatus distinguishes payments this system executed from
// payments it merely verified were completed elsewhere.
type RecordStatus string

const (
	// StatusSuccess means the automation observed the portal's
	// terminal success marker for a payment it submitted.
	StatusSuccess RecordStatus = "success"

	// StatusConfirmedExternal means the portal reported the surcharge
	// as already settled by someone else; recorded so future lookups
	// skip the billed API.
	StatusConfirmedExternal RecordStatus = "confirmed_external"
)

// BankFields are the static account details used for the debit.
type BankFields struct {
	BankCode string `json:"bank_code"`
	Branch   string `json:"branch"`
	Account  string `json:"account"`
}

// Facts are the payment-identifying inputs to the idempotency hash.
// Timestamps are deliberately absent: two records of the same payment
// made at different times must hash identically.
type Facts struct {
	CENumber   string         `json:"ce_number"`
	ProcessRef string         `json:"process_ref"`
	Status     RecordStatus   `json:"status"`
	Bank       BankFields     `json:"bank"`
	AmountDue  money.Centavos `json:"amount_due"`
	AmountPaid money.Centavos `json:"amount_paid"`
}

// PayloadHash returns the deterministic hash that keys the record.
func (f Facts) PayloadHash() string {
	encoded, err := json.Marshal(f)
	if err != nil {
		panic("ledger: marshal facts: " + err.Error())
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Record is a completed payment as persisted. Records are written
// once the terminal success marker is observed and never mutated.
type Record struct {
	ID          string
	CENumber    string
	ProcessRef  string
	Status      RecordStatus
	Bank        BankFields
	AmountDue   money.Centavos
	AmountPaid  money.Centavos
	ReceiptRef  string
	PayloadHash string
	CreatedAt   time.Time
}
