package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/settlement"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
)

// TableCmd settles one table file and prints the result.
type TableCmd struct {
	File      string `arg:"" name:"file" help:"Path to the table file (.hcl)" type:"existingfile"`
	ChipValue string `help:"Cash value of one chip" default:"1"`
	Lenient   bool   `help:"Read unparseable end-game chips as 0 instead of failing"`
}

func (cmd TableCmd) Run(ctx *kong.Context) error {
	chipValue, err := decimal.NewFromString(cmd.ChipValue)
	if err != nil || chipValue.IsNegative() {
		return fmt.Errorf("invalid chip value %q", cmd.ChipValue)
	}

	policy := table.ParseStrict
	if cmd.Lenient {
		policy = table.ParseLenient
	}

	file, err := loadTableFile(cmd.File)
	if err != nil {
		return err
	}
	t, err := file.build(filepath.Base(cmd.File), policy)
	if err != nil {
		return err
	}

	summary := settlement.Summarize(t.SessionID, t.Players(), chipValue)
	return render(ctx.Stdout, summary)
}

// tableFile is the HCL layout:
//
//	player "Alice" {
//	  seat          = 0
//	  chips         = 100
//	  endgame_chips = 150
//	}
type tableFile struct {
	Players []playerBlock `hcl:"player,block"`
}

type playerBlock struct {
	Name         string  `hcl:"name,label"`
	Seat         *int    `hcl:"seat,optional"`
	Chips        int     `hcl:"chips"`
	EndgameChips *string `hcl:"endgame_chips,optional"` // raw, parsed with the chosen policy
}

func loadTableFile(filename string) (*tableFile, error) {
	src, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}
	return parseTableFile(filename, src)
}

func parseTableFile(filename string, src []byte) (*tableFile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var tf tableFile
	diags = gohcl.DecodeBody(file.Body, nil, &tf)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	if len(tf.Players) == 0 {
		return nil, fmt.Errorf("%s has no players", filename)
	}
	return &tf, nil
}

// build seats the players in file order. Players without a seat take the
// lowest free one. Names double as ids, so they must be unique.
func (tf *tableFile) build(sessionID string, policy table.ParsePolicy) (*table.Table, error) {
	t := table.New(sessionID).WithParsePolicy(policy)

	taken := make(map[int]bool)
	for _, pb := range tf.Players {
		if pb.Seat != nil {
			taken[*pb.Seat] = true
		}
	}
	nextFree := func() int {
		for s := 0; s < table.Seats; s++ {
			if !taken[s] {
				taken[s] = true
				return s
			}
		}
		return -1
	}

	for _, pb := range tf.Players {
		seat := 0
		if pb.Seat != nil {
			seat = *pb.Seat
		} else if seat = nextFree(); seat < 0 {
			return nil, fmt.Errorf("player %q: %w", pb.Name, table.ErrSeatOutOfRange)
		}

		p, err := models.NewPlayer(sessionID, pb.Name, pb.Chips, models.SeatPtr(seat))
		if err != nil {
			return nil, fmt.Errorf("player %q: %w", pb.Name, err)
		}
		p.ID = p.Name
		if _, dup := t.Player(p.ID); dup {
			return nil, fmt.Errorf("player %q appears twice", p.Name)
		}
		if err := t.PlacePlayer(seat, &p); err != nil {
			return nil, fmt.Errorf("player %q: %w", pb.Name, err)
		}
		if pb.EndgameChips != nil {
			if err := t.UpdateEndgameChips(p.ID, *pb.EndgameChips); err != nil {
				return nil, fmt.Errorf("player %q: %w", pb.Name, err)
			}
		}
	}
	return t, nil
}

