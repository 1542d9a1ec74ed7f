package money

// Balances is the balance shape shared by wallets and pooled accounts:
// one bucket per instrument plus lifetime in/out counters. Amounts are in
// minor units. Total is always derived, never stored.
type Balances struct {
	Cash    int64 `json:"cash"`
	UPI     int64 `json:"upi"`
	Bank    int64 `json:"bank"`
	CashIn  int64 `json:"cash_in"`
	CashOut int64 `json:"cash_out"`
}

// Total returns the sum of the three instrument buckets.
func (b Balances) Total() int64 {
	return b.Cash + b.UPI + b.Bank
}

// Get returns the balance held in the given instrument.
func (b Balances) Get(instrument Instrument) int64 {
	switch instrument {
	case Cash:
		return b.Cash
	case UPI:
		return b.UPI
	case Bank:
		return b.Bank
	}
	return 0
}

// Set overwrites the balance held in the given instrument.
func (b *Balances) Set(instrument Instrument, amount int64) {
	switch instrument {
	case Cash:
		b.Cash = amount
	case UPI:
		b.UPI = amount
	case Bank:
		b.Bank = amount
	}
}
