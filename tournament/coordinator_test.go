package tournament

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/registry"
)

type move struct {
	playerID string
	from, to string
}

type recordingNotifier struct {
	mu       sync.Mutex
	updates  int
	finished []Info
	moves    []move
}

func (n *recordingNotifier) TournamentUpdated(info Info) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates++
}

func (n *recordingNotifier) TournamentFinished(info Info) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, info)
}

func (n *recordingNotifier) PlayerMoved(tournamentID string, playerID string, from string, to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.moves = append(n.moves, move{playerID: playerID, from: from, to: to})
}

type fixture struct {
	sched    *game.ManualScheduler
	ledger   *ledger.MemoryLedger
	reg      *registry.Manager
	coord    *Coordinator
	notifier *recordingNotifier
}

func newFixture() *fixture {
	f := &fixture{
		sched:    game.NewManualScheduler(),
		ledger:   ledger.NewMemoryLedger(10000),
		notifier: &recordingNotifier{},
	}
	f.reg = registry.NewManager(registry.Config{
		Scheduler: f.sched,
		Ledger:    f.ledger,
		Delays:    game.NoDelays(),
	})
	f.coord = NewCoordinator(f.reg, f.ledger, f.sched, f.notifier)
	f.reg.AddListener(f.coord)
	return f
}

func testConfig(players int) Config {
	return Config{
		Name:           "Sunday",
		BuyIn:          100,
		MaxPlayers:     players,
		StartingChips:  1000,
		BlindLevels:    []BlindLevel{{SmallBlind: 10, BigBlind: 20}, {SmallBlind: 20, BigBlind: 40}},
		LevelDuration:  time.Minute,
		PrizeStructure: []float64{0.5, 0.3, 0.2},
	}
}

func (f *fixture) create(t *testing.T, players int) Info {
	info, err := f.coord.CreateTournament(testConfig(players))
	require.NoError(t, err)
	require.Equal(t, StateRegistering, info.State)
	return info
}

func (f *fixture) registerAll(t *testing.T, id string, players int) {
	for i := 1; i <= players; i++ {
		pid := fmt.Sprintf("p%d", i)
		require.NoError(t, f.coord.Register(context.Background(), id, game.Identity{ID: pid, Name: pid}))
	}
}

func (f *fixture) table(t *testing.T, id string) *game.Table {
	tbl, err := f.reg.GetTable(id)
	require.NoError(t, err)
	return tbl
}

func (f *fixture) balance(t *testing.T, playerID string) int64 {
	b, err := f.ledger.Balance(context.Background(), playerID)
	require.NoError(t, err)
	return b
}

func (f *fixture) info(t *testing.T, id string) Info {
	info, err := f.coord.Get(id)
	require.NoError(t, err)
	return info
}

// foldOut folds the active seat until the hand is over.
func foldOut(t *testing.T, tbl *game.Table) {
	for i := 0; tbl.Phase().Betting(); i++ {
		require.Less(t, i, game.NumSeats)
		require.NoError(t, tbl.ApplyAction(tbl.ActiveSeat(), game.Fold, 0))
	}
}

func TestCreateTournamentValidatesPrizes(t *testing.T) {
	f := newFixture()
	cfg := testConfig(6)
	cfg.PrizeStructure = []float64{0.7, 0.4}
	_, err := f.coord.CreateTournament(cfg)
	assert.Equal(t, ErrInvalidTournament, errors.Cause(err))

	cfg.PrizeStructure = []float64{1.1, -0.1}
	_, err = f.coord.CreateTournament(cfg)
	assert.Equal(t, ErrInvalidTournament, errors.Cause(err))

	cfg = testConfig(1)
	_, err = f.coord.CreateTournament(cfg)
	assert.Equal(t, ErrInvalidTournament, errors.Cause(err))
	assert.Empty(t, f.coord.List())
}

func TestRegistration(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	info := f.create(t, 3)

	require.NoError(t, f.coord.Register(ctx, info.ID, game.Identity{ID: "alice"}))
	assert.Equal(t, int64(9900), f.balance(t, "alice"))

	err := f.coord.Register(ctx, info.ID, game.Identity{ID: "alice"})
	assert.Equal(t, ErrAlreadyRegistered, errors.Cause(err))

	f.ledger.SetBalance("poor", 50)
	err = f.coord.Register(ctx, info.ID, game.Identity{ID: "poor"})
	assert.Equal(t, ledger.ErrInsufficientBalance, errors.Cause(err))
	assert.Len(t, f.info(t, info.ID).Registered, 1)

	require.NoError(t, f.coord.Unregister(ctx, info.ID, "alice"))
	assert.Equal(t, int64(10000), f.balance(t, "alice"))
	err = f.coord.Unregister(ctx, info.ID, "alice")
	assert.Equal(t, ErrNotRegistered, errors.Cause(err))

	err = f.coord.Register(ctx, "missing", game.Identity{ID: "alice"})
	assert.Equal(t, ErrTournamentNotFound, errors.Cause(err))
}

func TestCancelRefunds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	info := f.create(t, 6)
	f.registerAll(t, info.ID, 2)

	require.NoError(t, f.coord.Cancel(ctx, info.ID))
	assert.Equal(t, StateCancelled, f.info(t, info.ID).State)
	assert.Equal(t, int64(10000), f.balance(t, "p1"))
	assert.Equal(t, int64(10000), f.balance(t, "p2"))

	err := f.coord.Register(ctx, info.ID, game.Identity{ID: "p3"})
	assert.Equal(t, ErrRegistrationClosed, errors.Cause(err))
}

func TestFullRosterStartsOnTwoTables(t *testing.T) {
	f := newFixture()
	info := f.create(t, 12)
	f.registerAll(t, info.ID, 12)

	info = f.info(t, info.ID)
	assert.Equal(t, StateRunning, info.State)
	require.Len(t, info.Tables, 2)
	for _, id := range info.Tables {
		tbl := f.table(t, id)
		assert.Equal(t, 6, tbl.NumOccupied())
		assert.Equal(t, game.PreFlop, tbl.Phase())
		assert.True(t, tbl.Options().Tournament)
	}
	assert.True(t, f.sched.Has(blindKey(info.ID).TableID, game.PurposeBlindLevel))

	err := f.coord.Register(context.Background(), info.ID, game.Identity{ID: "late"})
	assert.Equal(t, ErrRegistrationClosed, errors.Cause(err))
}

func TestSeatedPlayerCannotWalkAway(t *testing.T) {
	f := newFixture()
	info := f.create(t, 2)
	f.registerAll(t, info.ID, 2)
	info = f.info(t, info.ID)
	require.Len(t, info.Tables, 1)
	tbl := f.table(t, info.Tables[0])
	seat := tbl.SeatOf("p1")
	require.GreaterOrEqual(t, seat, 0)

	_, err := f.reg.LeaveSeat(context.Background(), tbl.ID(), "p1")
	assert.Equal(t, game.ErrTournamentSeat, errors.Cause(err))
	assert.Equal(t, seat, tbl.SeatOf("p1"))
	assert.Equal(t, 2, f.info(t, info.ID).Remaining)
	assert.Equal(t, StateRunning, f.info(t, info.ID).State)
	assert.Equal(t, int64(9900), f.balance(t, "p1"))

	_, _, err = f.reg.JoinSeat(context.Background(), tbl.ID(), nil, game.Identity{ID: "late"}, 1000)
	assert.Equal(t, game.ErrTournamentSeat, errors.Cause(err))
	assert.Equal(t, 2, tbl.NumOccupied())
}

func TestEliminationsConsolidateTables(t *testing.T) {
	f := newFixture()
	info := f.create(t, 12)
	f.registerAll(t, info.ID, 12)
	first, second := info.ID+"-1", info.ID+"-2"

	require.NoError(t, f.coord.OnElimination(second, 0))
	require.NoError(t, f.coord.OnElimination(second, 1))
	// ten players still need two tables
	info = f.info(t, info.ID)
	assert.Equal(t, 10, info.Remaining)
	assert.Len(t, info.Tables, 2)
	assert.Equal(t, []string{"p2", "p4"}, info.FinishOrder)

	require.NoError(t, f.coord.OnElimination(first, 0))
	require.NoError(t, f.coord.OnElimination(first, 1))
	require.NoError(t, f.coord.OnElimination(second, 2))
	require.NoError(t, f.coord.OnElimination(second, 3))

	// six players fit one table, but the second table is mid-hand
	secondTable := f.table(t, second)
	require.True(t, secondTable.Phase().Betting())
	assert.Len(t, f.info(t, info.ID).Tables, 2)

	foldOut(t, secondTable)

	info = f.info(t, info.ID)
	assert.Equal(t, []string{first}, info.Tables)
	assert.Equal(t, 6, f.table(t, first).NumOccupied())
	assert.True(t, secondTable.Destroyed())
	_, err := f.reg.GetTable(second)
	assert.Equal(t, registry.ErrTableNotFound, errors.Cause(err))

	require.Len(t, f.notifier.moves, 2)
	for _, m := range f.notifier.moves {
		assert.Equal(t, second, m.from)
		assert.Equal(t, first, m.to)
		assert.GreaterOrEqual(t, f.table(t, first).SeatOf(m.playerID), 0)
	}
}

func TestFinishPaysPrizes(t *testing.T) {
	f := newFixture()
	info := f.create(t, 3)
	f.registerAll(t, info.ID, 3)
	info = f.info(t, info.ID)
	require.Len(t, info.Tables, 1)
	tableID := info.Tables[0]

	require.NoError(t, f.coord.OnElimination(tableID, 0))
	require.NoError(t, f.coord.OnElimination(tableID, 1))

	info = f.info(t, info.ID)
	assert.Equal(t, StateFinished, info.State)
	assert.Equal(t, int64(300), info.PrizePool)
	assert.Equal(t, []Result{
		{Place: 1, PlayerID: "p3", Name: "p3", Prize: 150},
		{Place: 2, PlayerID: "p2", Name: "p2", Prize: 90},
		{Place: 3, PlayerID: "p1", Name: "p1", Prize: 60},
	}, info.Results)
	assert.Equal(t, []string{"p1", "p2", "p3"}, info.FinishOrder)
	assert.Equal(t, int64(10050), f.balance(t, "p3"))
	assert.Equal(t, int64(9990), f.balance(t, "p2"))
	assert.Equal(t, int64(9960), f.balance(t, "p1"))

	assert.Empty(t, info.Tables)
	assert.Equal(t, 0, f.reg.Count())
	assert.False(t, f.sched.Has(blindKey(info.ID).TableID, game.PurposeBlindLevel))
	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, info.ID, f.notifier.finished[0].ID)
}

func TestBustedPlayerIsEliminated(t *testing.T) {
	f := newFixture()
	cfg := testConfig(2)
	cfg.StartingChips = 100
	cfg.PrizeStructure = []float64{1}
	info, err := f.coord.CreateTournament(cfg)
	require.NoError(t, err)
	f.registerAll(t, info.ID, 2)
	tableID := f.info(t, info.ID).Tables[0]
	tbl := f.table(t, tableID)

	// shove and call until somebody busts
	for hands := 0; f.info(t, info.ID).State == StateRunning; hands++ {
		require.Less(t, hands, 100, "nobody busted")
		for tbl.Phase().Betting() {
			seat := tbl.ActiveSeat()
			s := tbl.Snapshot(tbl.Snapshot("").Seats[seat].PlayerID)
			require.NotNil(t, s.Legal)
			if s.Legal.CanRaise {
				require.NoError(t, tbl.ApplyAction(seat, game.Raise, s.Legal.MaxRaiseTo))
			} else {
				require.NoError(t, tbl.ApplyAction(seat, game.Call, 0))
			}
		}
		if f.info(t, info.ID).State == StateRunning {
			require.True(t, f.sched.FireNext(tableID, game.PurposeNextHand))
		}
	}

	info = f.info(t, info.ID)
	assert.Equal(t, StateFinished, info.State)
	require.Len(t, info.Results, 2)
	assert.Equal(t, int64(200), info.Results[0].Prize)
	assert.Equal(t, int64(10100), f.balance(t, info.Results[0].PlayerID))
	assert.True(t, tbl.Destroyed())
}

func TestBlindLevelsAdvance(t *testing.T) {
	f := newFixture()
	info := f.create(t, 2)
	f.registerAll(t, info.ID, 2)
	tableID := f.info(t, info.ID).Tables[0]
	tbl := f.table(t, tableID)

	require.True(t, f.sched.FireNext(blindKey(info.ID).TableID, game.PurposeBlindLevel))
	info = f.info(t, info.ID)
	assert.Equal(t, 1, info.CurrentBlindLevel)
	// the schedule has no further level
	assert.False(t, f.sched.Has(blindKey(info.ID).TableID, game.PurposeBlindLevel))

	small, big := tbl.Blinds()
	assert.Equal(t, int64(10), small)
	assert.Equal(t, int64(20), big)

	foldOut(t, tbl)
	require.True(t, f.sched.FireNext(tableID, game.PurposeNextHand))
	small, big = tbl.Blinds()
	assert.Equal(t, int64(20), small)
	assert.Equal(t, int64(40), big)
}

func TestComputePrizesGivesRemainderToWinner(t *testing.T) {
	standings := []game.Identity{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	results := computePrizes(100, []float64{0.5, 0.3}, standings)
	assert.Equal(t, []int64{70, 30, 0}, []int64{results[0].Prize, results[1].Prize, results[2].Prize})

	results = computePrizes(100, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, standings)
	assert.Equal(t, []int64{34, 33, 33}, []int64{results[0].Prize, results[1].Prize, results[2].Prize})
}
