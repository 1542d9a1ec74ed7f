package money

// Delta is one atomic mutation against a balance record. Amount moves the
// named instrument bucket (signed); CashIn and CashOut move the lifetime
// counters (signed, floored at zero by the store).
type Delta struct {
	Instrument Instrument
	Amount     int64
	CashIn     int64
	CashOut    int64
}

// Apply folds the delta into a balance snapshot, flooring counters at zero.
// Stores remain responsible for rejecting negative instrument balances.
func (d Delta) Apply(b Balances) Balances {
	b.Set(d.Instrument, b.Get(d.Instrument)+d.Amount)
	b.CashIn += d.CashIn
	if b.CashIn < 0 {
		b.CashIn = 0
	}
	b.CashOut += d.CashOut
	if b.CashOut < 0 {
		b.CashOut = 0
	}
	return b
}
