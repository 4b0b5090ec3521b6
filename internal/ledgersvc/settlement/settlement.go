// Package settlement turns per-player chip deltas into the payments that
// clear them.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
)

type balance struct {
	id        string
	name      string
	remaining int
}

// Compute returns the transactions that settle players, in emission order.
//
// Creditors and debtors keep the order in which they appear in players; the
// two lists are walked with one cursor each and every step settles the
// smaller of the two remainders. Input is not validated: when buy-in and
// end-game totals differ the walk stops as soon as one side runs out and the
// rest stays unsettled.
func Compute(players []models.Player) []models.Transaction {
	var creditors, debtors []*balance
	for _, p := range players {
		net := p.NetChange()
		switch {
		case net > 0:
			creditors = append(creditors, &balance{id: p.ID, name: p.Name, remaining: net})
		case net < 0:
			debtors = append(debtors, &balance{id: p.ID, name: p.Name, remaining: -net})
		}
	}

	transactions := []models.Transaction{}
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		c, d := creditors[i], debtors[j]
		amount := min(c.remaining, d.remaining)
		transactions = append(transactions, models.Transaction{
			Lender:     c.name,
			Borrower:   d.name,
			Amount:     amount,
			LenderID:   c.id,
			BorrowerID: d.id,
		})

		c.remaining -= amount
		d.remaining -= amount

		if c.remaining == 0 {
			i++
		}
		if d.remaining == 0 {
			j++
		}
	}

	return transactions
}

// NetChanges returns end-game minus buy-in chips per player, in input order.
func NetChanges(players []models.Player) []int {
	out := make([]int, len(players))
	for i, p := range players {
		out[i] = p.NetChange()
	}
	return out
}

// Residual applies transactions back onto the players' net changes and
// returns whatever is left, keyed by player id. Zero balances are omitted,
// so conservative input yields an empty map.
func Residual(players []models.Player, transactions []models.Transaction) map[string]int {
	left := make(map[string]int, len(players))
	for _, p := range players {
		left[p.ID] += p.NetChange()
	}
	for _, tx := range transactions {
		left[tx.LenderID] -= tx.Amount
		left[tx.BorrowerID] += tx.Amount
	}
	for id, v := range left {
		if v == 0 {
			delete(left, id)
		}
	}
	return left
}

// TotalChips is the sum of buy-in chips.
func TotalChips(players []models.Player) int {
	total := 0
	for _, p := range players {
		total += p.Chips
	}
	return total
}

// TotalEndgameChips is the sum of end-game chips.
func TotalEndgameChips(players []models.Player) int {
	total := 0
	for _, p := range players {
		total += p.EndgameChips
	}
	return total
}

// Summarize prices the settlement of players at chipValue per chip.
func Summarize(sessionID string, players []models.Player, chipValue decimal.Decimal) models.MoneySummary {
	txs := Compute(players)

	cash := make([]string, len(txs))
	for i, tx := range txs {
		cash[i] = CashValue(tx.Amount, chipValue)
	}

	summary := models.MoneySummary{
		SessionID:         sessionID,
		MoneyOnTable:      TotalChips(players),
		TotalEndgameChips: TotalEndgameChips(players),
		Players:           players,
		Transactions:      txs,
		CashValues:        cash,
	}
	summary.Discrepancy = summary.TotalEndgameChips - summary.MoneyOnTable
	if summary.Discrepancy != 0 {
		summary.Unsettled = Residual(players, txs)
	}
	return summary
}

// CashValue renders chips at chipValue with two decimals.
func CashValue(chips int, chipValue decimal.Decimal) string {
	return decimal.NewFromInt(int64(chips)).Mul(chipValue).StringFixed(2)
}
