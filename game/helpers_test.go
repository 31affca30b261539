package game

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/poker"
)

type testTable struct {
	*Table
	sched  *ManualScheduler
	events []Event
}

func newTestTable(t *testing.T, opts TableOptions, cfg Config) *testTable {
	t.Helper()
	sched := NewManualScheduler()
	if cfg.Scheduler == nil {
		cfg.Scheduler = sched
	}
	cfg.Delays = NoDelays()
	tbl, err := NewTable("table-1", opts, cfg)
	require.NoError(t, err)
	tt := &testTable{Table: tbl, sched: sched}
	tbl.AddListener(ListenerFunc(func(_ *Table, ev Event) {
		tt.events = append(tt.events, ev)
	}))
	return tt
}

// seat seats players in order with the given stacks.
func (tt *testTable) seat(t *testing.T, stacks ...int64) {
	t.Helper()
	for i, chips := range stacks {
		seat, err := tt.SeatPlayer(Identity{ID: playerName(i)}, chips)
		require.NoError(t, err)
		require.Equal(t, i, seat)
	}
}

func (tt *testTable) act(t *testing.T, seat int, action ActionType, amount int64) {
	t.Helper()
	require.Equal(t, seat, tt.ActiveSeat(), "active seat")
	require.NoError(t, tt.ApplyAction(seat, action, amount))
}

func (tt *testTable) eventsOf(typ EventType) []Event {
	var out []Event
	for _, ev := range tt.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func playerName(i int) string {
	return []string{"alice", "bob", "carol", "dave", "erin", "frank"}[i]
}

func manualOpts() TableOptions {
	opts := DefaultTableOptions()
	opts.ManualStart = true
	return opts
}

// scriptedDecks returns decks built from hole cards in deal order and a board.
func scriptedDecks(t *testing.T, holes [][]string, board []string) DeckSource {
	return DeckSourceFunc(func() *poker.Deck {
		deck, err := poker.DeckFromScript(holes, board)
		require.NoError(t, err)
		return deck
	})
}

type failingEvaluator struct {
	poker.HandEvaluator
}

func (failingEvaluator) Solve(cards []poker.Card) (poker.RankedHand, error) {
	return poker.RankedHand{}, errors.New("evaluator unavailable")
}

func (failingEvaluator) SolveOmaha(hole []poker.Card, board []poker.Card) (poker.RankedHand, error) {
	return poker.RankedHand{}, errors.New("evaluator unavailable")
}

type failingCreditLedger struct {
	*ledger.MemoryLedger
}

func (failingCreditLedger) Credit(ctx context.Context, playerID string, amount int64) error {
	return errors.New("ledger offline")
}

// stickyScheduler ignores cancellation so tests can fire stale tasks.
type stickyScheduler struct {
	*ManualScheduler
}

func (stickyScheduler) Cancel(key TaskKey)         {}
func (stickyScheduler) CancelTable(tableID string) {}

type decideFunc func(view DecisionView) Decision

func (f decideFunc) Decide(view DecisionView) Decision {
	return f(view)
}
