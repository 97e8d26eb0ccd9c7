package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // witness hashes are ripemd160(sha256(x))

	"github.com/mezonai/accounting/db"
)

const witnessDateTolerance = 24 * time.Hour

// AccountAgeWitness proves that a payment account existed at Date (unix
// millis). Its hash is ripemd160(sha256(input)) of the account age input data.
type AccountAgeWitness struct {
	Digest []byte `json:"hash"`
	Date   int64  `json:"date"`
}

func NewAccountAgeWitness(inputData []byte, date int64) *AccountAgeWitness {
	sum := sha256.Sum256(inputData)
	h := ripemd160.New()
	h.Write(sum[:])
	return &AccountAgeWitness{
		Digest: h.Sum(nil),
		Date:   date,
	}
}

func (w *AccountAgeWitness) Hash() []byte {
	return w.Digest
}

func (w *AccountAgeWitness) HashAsString() string {
	return hex.EncodeToString(w.Digest)
}

// IsDateInTolerance reports whether Date is within one day of now.
func (w *AccountAgeWitness) IsDateInTolerance(now time.Time) bool {
	diff := now.Sub(time.UnixMilli(w.Date))
	if diff < 0 {
		diff = -diff
	}
	return diff <= witnessDateTolerance
}

type AccountAgeWitnessStore = MapStore[*AccountAgeWitness]

func NewAccountAgeWitnessStore(provider db.IterableProvider) (*AccountAgeWitnessStore, error) {
	return NewMapStore[*AccountAgeWitness](provider, PrefixAccountAgeWitness)
}
