package vault

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of a secret record.
type Kind string

const (
	KindCredential  Kind = "credential"
	KindNote        Kind = "note"
	KindPaymentCard Kind = "payment-card"
)

// Kinds lists every supported record kind.
var Kinds = []Kind{KindCredential, KindNote, KindPaymentCard}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCredential, KindNote, KindPaymentCard:
		return true
	}
	return false
}

// Record is a single secret. It only exists in plaintext inside an unlocked
// session and inside the encrypted payload.
//
// Field order is the canonical encoding order and must not change.
type Record struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// credential
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	URL      string `json:"url,omitempty"`

	// payment-card
	Cardholder string `json:"cardholder,omitempty"`
	Number     string `json:"number,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	PIN        string `json:"pin,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecord returns a record with a fresh id and both timestamps set to now.
func NewRecord(kind Kind, name string) Record {
	now := time.Now().UTC().Round(0)
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch sets UpdatedAt to now.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now().UTC().Round(0)
}

// Validate checks the fields every record must carry.
func (r *Record) Validate() error {
	if r.ID == "" {
		return invalid("record id", "must not be empty")
	}
	if !r.Kind.Valid() {
		return invalid("record kind", "unknown kind %q", r.Kind)
	}
	if r.Name == "" {
		return invalid("record name", "must not be empty for record %s", r.ID)
	}
	return nil
}

// ValidateRecords validates each record and rejects duplicate ids.
func ValidateRecords(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return err
		}
		if _, ok := seen[records[i].ID]; ok {
			return invalid("record id", "duplicate id %s", records[i].ID)
		}
		seen[records[i].ID] = struct{}{}
	}
	return nil
}

// FindRecord returns the index of the record with the given id, or -1.
func FindRecord(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
