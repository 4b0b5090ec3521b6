package models

// Transaction is a derived payment obligation: Borrower pays Lender Amount chips.
type Transaction struct {
	Lender     string `json:"lender"`
	Borrower   string `json:"borrower"`
	Amount     int    `json:"amount"`
	LenderID   string `json:"lender_id,omitempty"`
	BorrowerID string `json:"borrower_id,omitempty"`
}

// MoneySummary is what the money screen renders for a table.
type MoneySummary struct {
	SessionID         string        `json:"session_id"`
	MoneyOnTable      int           `json:"money_on_table"`
	TotalEndgameChips int           `json:"total_endgame_chips"`
	Discrepancy       int           `json:"discrepancy"`
	Players           []Player      `json:"players"`
	Transactions      []Transaction `json:"transactions"`

	// CashValues holds each transaction amount priced at the configured chip value.
	CashValues []string `json:"cash_values"`

	// Unsettled is the net change left on players the matching could not clear.
	// It is only non-empty when buy-in and end-game totals disagree.
	Unsettled map[string]int `json:"unsettled,omitempty"`
}
