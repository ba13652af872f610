package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a pending intent.
type Status string

const (
	// StatusPending means the intent is awaiting explicit confirmation.
	StatusPending Status = "pending"

	// StatusConfirmed means the user approved the action. Confirmed
	// intents are immutable.
	StatusConfirmed Status = "confirmed"

	// StatusExpired means the confirmation window elapsed before approval.
	StatusExpired Status = "expired"

	// StatusCancelled means the user explicitly declined the action.
	StatusCancelled Status = "cancelled"
)

// Intent is a durable record of a requested sensitive action awaiting
// explicit confirmation. At most one pending intent exists per
// (session, args hash) pair; the storage layer enforces this.
type Intent struct {
	ID          string
	SessionID   string
	ActionType  string
	ToolName    string
	Args        map[string]string
	ArgsHash    string
	PreviewText string
	Status      Status
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the intent's confirmation window has elapsed
// relative to now. Expiry is evaluated lazily on read; rows are only
// rewritten when a reader observes the expiry.
func (i *Intent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// volatileArgKeys lists argument keys that are excluded from the
// dedupe hash because they change between otherwise identical
// requests (a freshly resolved amount, resolution timestamps).
// Hashing them would defeat preview deduplication.
var volatileArgKeys = map[string]bool{
	"amount_due":  true,
	"resolved_at": true,
	"balance":     true,
	"caveat":      true,
}

// HashArgs computes the stable dedupe hash for a normalized argument
// set. Volatile keys are dropped first; the remainder is serialized
// with sorted keys so identical argument sets always hash identically.
func HashArgs(args map[string]string) string {
	stable := make(map[string]string, len(args))
	for k, v := range args {
		if volatileArgKeys[k] {
			continue
		}
		stable[k] = v
	}

	// json.Marshal sorts map keys, giving a canonical encoding.
	encoded, err := json.Marshal(stable)
	if err != nil {
		// map[string]string cannot fail to marshal; keep the
		// signature simple for callers.
		panic("intent: marshal stable args: " + err.Error())
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
