package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
)

func render(w io.Writer, summary models.MoneySummary) error {
	players := pterm.TableData{{"Seat", "Player", "Buy-in", "End-game", "Net"}}
	for _, p := range summary.Players {
		players = append(players, []string{
			strconv.Itoa(p.SeatIndex() + 1),
			p.Name,
			strconv.Itoa(p.Chips),
			strconv.Itoa(p.EndgameChips),
			signed(p.NetChange()),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(players).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)

	fmt.Fprintf(w, "Money on table: %d   End-game chips: %d\n", summary.MoneyOnTable, summary.TotalEndgameChips)
	if summary.Discrepancy != 0 {
		fmt.Fprintln(w, pterm.LightRed(fmt.Sprintf("Discrepancy: %s chips, settlement is partial", signed(summary.Discrepancy))))
	}
	fmt.Fprintln(w)

	if len(summary.Transactions) == 0 {
		fmt.Fprintln(w, pterm.LightGreen("Nothing to settle."))
		return nil
	}

	txs := pterm.TableData{{"Pays", "To", "Chips", "Cash"}}
	for i, tx := range summary.Transactions {
		txs = append(txs, []string{tx.Borrower, tx.Lender, strconv.Itoa(tx.Amount), summary.CashValues[i]})
	}
	out, err = pterm.DefaultTable.WithHasHeader().WithData(txs).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
