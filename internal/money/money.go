package money

import "fmt"

// Instrument identifies the balance bucket money sits in.
type Instrument string

const (
	Cash Instrument = "cash"
	UPI  Instrument = "upi"
	Bank Instrument = "bank"
)

// Instruments lists every supported instrument in display order.
func Instruments() []Instrument {
	return []Instrument{Cash, UPI, Bank}
}

// ParseInstrument validates a raw instrument token.
func ParseInstrument(raw string) (Instrument, error) {
	switch Instrument(raw) {
	case Cash, UPI, Bank:
		return Instrument(raw), nil
	default:
		return "", fmt.Errorf("unknown instrument %q", raw)
	}
}

// Valid reports whether the instrument is one of the supported buckets.
func (i Instrument) Valid() bool {
	switch i {
	case Cash, UPI, Bank:
		return true
	}
	return false
}

// Direction describes which way a balance operation moves money.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Valid reports whether the direction is credit or debit.
func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}
