package types

// Holding is one position in the brokerage account.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
}

// AccountBalance is the cash and holdings snapshot of the account.
type AccountBalance struct {
	// Cash is the deposit total (dnca_tot_amt)
	Cash float64 `json:"cash"`
	// Orderable is the amount available for new buy orders
	Orderable       float64   `json:"orderable"`
	TotalEvaluation float64   `json:"total_evaluation"`
	Holdings        []Holding `json:"holdings"`
}

// HeldQuantity returns the quantity held for symbol, or 0.
func (b AccountBalance) HeldQuantity(symbol string) int {
	for _, h := range b.Holdings {
		if h.Symbol == symbol {
			return h.Quantity
		}
	}

	return 0
}

// AvailableBalance returns the orderable amount, falling back to cash
// when the brokerage reports no orderable figure.
func (b AccountBalance) AvailableBalance() float64 {
	if b.Orderable > 0 {
		return b.Orderable
	}

	return b.Cash
}
