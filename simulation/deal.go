// Package simulation deals many random hands and reports how often each hand
// category shows up. It is a sanity check for the shuffler and the evaluator.
package simulation

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/poker"
)

type Options struct {
	GameType   game.GameType
	NumPlayers int
	NumDeals   int
	// Seed of zero picks a random seed.
	Seed int64
}

type Report struct {
	GameType        game.GameType
	NumDeals        int
	NumEval         int
	Categories      [poker.StraightFlush + 1]int
	PairedBoards    int
	FlopPairedBoard int
	SameHoleCards   int
}

func holeCount(gt game.GameType) int {
	if gt == game.PLO {
		return 4
	}
	return 2
}

func Run(opts Options) (*Report, error) {
	if opts.GameType == "" {
		opts.GameType = game.NLH
	}
	if !opts.GameType.Valid() {
		return nil, errors.Errorf("unsupported game type %s", opts.GameType)
	}
	perPlayer := holeCount(opts.GameType)
	if opts.NumPlayers < 2 || opts.NumPlayers*perPlayer+5 > 52 {
		return nil, errors.Errorf("cannot deal %d players", opts.NumPlayers)
	}

	var source rand.Source
	if opts.Seed != 0 {
		source = rand.NewSource(opts.Seed)
	}
	shuffler := poker.NewShuffler(source)
	eval := poker.NewEvaluator()

	report := &Report{GameType: opts.GameType, NumDeals: opts.NumDeals}
	for i := 0; i < opts.NumDeals; i++ {
		deck := shuffler.NewDeck()
		hands := make([][]poker.Card, opts.NumPlayers)
		for p := range hands {
			cards, err := deck.Draw(perPlayer)
			if err != nil {
				return nil, err
			}
			hands[p] = cards
		}
		board, err := deck.Draw(5)
		if err != nil {
			return nil, err
		}

		for _, hole := range hands {
			var ranked poker.RankedHand
			if opts.GameType == game.PLO {
				ranked, err = eval.SolveOmaha(hole, board)
			} else {
				ranked, err = eval.Solve(append(append([]poker.Card{}, hole...), board...))
			}
			if err != nil {
				return nil, errors.Wrapf(err, "deal %d", i)
			}
			report.Categories[ranked.Category]++
			report.NumEval++
		}

		if hasSameHoleCards(hands) {
			report.SameHoleCards++
		}
		if at := pairedAt(board); at > 0 {
			report.PairedBoards++
			if at <= 3 {
				report.FlopPairedBoard++
			}
		}
	}
	return report, nil
}

// pairedAt returns the 1-based board position at which a rank first repeats, or 0.
func pairedAt(board []poker.Card) int {
	seen := make(map[uint8]bool)
	for i, c := range board {
		if seen[c.Rank()] {
			return i + 1
		}
		seen[c.Rank()] = true
	}
	return 0
}

func hasSameHoleCards(hands [][]poker.Card) bool {
	seen := make(map[string]bool)
	for _, h := range hands {
		key := poker.CardsToString(h)
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

func pct(n, of int) string {
	if of == 0 {
		return "0.000%"
	}
	return fmt.Sprintf("%.3f%%", 100*float64(n)/float64(of))
}

// Render writes the report as a table.
func (r *Report) Render(w io.Writer) error {
	data := pterm.TableData{{"Category", "Hits", "Frequency"}}
	for c := poker.StraightFlush; c >= poker.HighCard; c-- {
		n := r.Categories[c]
		data = append(data, []string{c.String(), fmt.Sprint(n), pct(n, r.NumEval)})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprint(w, pterm.Sprintfln("%s: %d deals, %d hands evaluated", pterm.LightCyan(string(r.GameType)), r.NumDeals, r.NumEval))
	fmt.Fprintln(w, table)
	fmt.Fprint(w, pterm.Sprintfln("Paired boards         : %d (%s), on the flop %d", r.PairedBoards, pct(r.PairedBoards, r.NumDeals), r.FlopPairedBoard))
	fmt.Fprint(w, pterm.Sprintfln("Deals with duplicates : %d", r.SameHoleCards))
	return nil
}
