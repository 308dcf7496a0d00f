package issue

// PaymentOutcome classifies a verified payment against the requested BTC.
// It is consumed by settle only.
type PaymentOutcome interface {
	Name() string
}

// Full covers exact and over payment. Excess BTC is not credited.
type Full struct{}

// Partial is 0 < Paid < Requested.
type Partial struct {
	Paid      uint64
	Requested uint64
}

// None is a payment that never reached the deposit address.
type None struct{}

func (Full) Name() string    { return "full" }
func (Partial) Name() string { return "partial" }
func (None) Name() string    { return "none" }

func Classify(paid, requested uint64) PaymentOutcome {
	switch {
	case paid == 0:
		return None{}
	case paid < requested:
		return Partial{Paid: paid, Requested: requested}
	default:
		return Full{}
	}
}
