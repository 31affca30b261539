package game

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyager.com/tableserver/history"
	"voyager.com/tableserver/ledger"
)

func TestHeadsUpBlindsAndFlop(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000)
	require.NoError(t, tt.StartHand())

	s := tt.Snapshot("")
	assert.Equal(t, "PREFLOP", s.Phase)
	assert.Equal(t, 0, s.DealerIndex)
	assert.Equal(t, int64(30), s.Pot)
	assert.Equal(t, int64(20), s.CurrentBet)
	// the dealer posts the big blind heads-up and the small blind acts first
	assert.Equal(t, int64(20), s.Seats[0].CurrentBet)
	assert.Equal(t, int64(10), s.Seats[1].CurrentBet)
	assert.Equal(t, 1, s.ActiveSeatIndex)

	tt.act(t, 1, Call, 0)
	s = tt.Snapshot("")
	assert.Equal(t, int64(40), s.Pot)
	assert.Equal(t, int64(20), s.Seats[0].CurrentBet)
	assert.Equal(t, int64(20), s.Seats[1].CurrentBet)
	assert.Equal(t, 0, s.ActiveSeatIndex, "big blind keeps the option")

	tt.act(t, 0, Check, 0)
	s = tt.Snapshot("")
	assert.Equal(t, "FLOP", s.Phase)
	assert.Len(t, s.Community, 3)
	assert.Equal(t, int64(40), s.Pot)
	assert.Equal(t, int64(40), s.CenterPot)
	assert.Equal(t, int64(0), s.CurrentBet)
	assert.Equal(t, 1, s.ActiveSeatIndex, "first live seat after the dealer opens the flop")
}

func TestRaiseValidation(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000, 1000)
	require.NoError(t, tt.StartHand())

	// dealer 0, small blind 1, big blind 2, seat 0 opens
	tt.act(t, 0, Call, 0)
	tt.act(t, 1, Call, 0)
	require.Equal(t, 2, tt.ActiveSeat(), "big blind option after limps")

	before := tt.Snapshot("")
	err := tt.ApplyAction(2, Raise, 30)
	rejected, ok := IsActionRejected(err)
	require.True(t, ok, "raise to 30 must be rejected, got %v", err)
	assert.Equal(t, ReasonRaiseTooSmall, rejected.Reason)
	if diff := cmp.Diff(before, tt.Snapshot("")); diff != "" {
		t.Fatalf("rejected raise changed the table\n%s", diff)
	}

	tt.act(t, 2, Raise, 40)
	s := tt.Snapshot("")
	assert.Equal(t, int64(40), s.CurrentBet)
	assert.Equal(t, int64(20), s.MinRaise)
	assert.False(t, s.Seats[0].HasActed)
	assert.False(t, s.Seats[1].HasActed)
	assert.True(t, s.Seats[2].HasActed)
	assert.Equal(t, 0, s.ActiveSeatIndex)
}

func TestRejectsOutOfTurnAndIllegalActions(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000, 1000)

	err := tt.ApplyAction(0, Check, 0)
	rejected, ok := IsActionRejected(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNoHand, rejected.Reason)

	require.NoError(t, tt.StartHand())
	tests := []struct {
		seat   int
		action ActionType
		amount int64
		reason RejectReason
	}{
		{1, Call, 0, ReasonNotYourTurn},
		{0, Check, 0, ReasonCheckNotAllowed},
		{0, Raise, 1001, ReasonRaiseAboveStack},
		{0, Raise, 20, ReasonRaiseTooSmall},
		{0, ActionType("bet"), 0, ReasonInvalidAction},
	}
	for _, test := range tests {
		err := tt.ApplyAction(test.seat, test.action, test.amount)
		rejected, ok := IsActionRejected(err)
		if !ok {
			t.Fatalf("%s(%d) from seat %d was accepted", test.action, test.amount, test.seat)
		}
		assert.Equal(t, test.reason, rejected.Reason)
	}
	assert.Equal(t, 0, tt.ActiveSeat())
}

func TestFoldToOneEndsHand(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000, 1000)
	require.NoError(t, tt.StartHand())

	tt.act(t, 0, Fold, 0)
	tt.act(t, 1, Fold, 0)

	s := tt.Snapshot("")
	assert.Equal(t, "SHOWDOWN", s.Phase)
	assert.Empty(t, s.Community)
	assert.Equal(t, -1, s.ActiveSeatIndex)
	assert.Equal(t, int64(1010), s.Seats[2].Chips)
	assert.Equal(t, int64(990), s.Seats[1].Chips)
	assert.True(t, s.Seats[2].IsWinner)
	require.NotNil(t, s.Settlement)
	assert.True(t, s.Settlement.FoldWin)
	assert.Nil(t, s.Seats[2].HoleCards, "fold win shows no cards")
	assert.Equal(t, int64(3000), tt.TotalChips())
	assert.Len(t, tt.eventsOf(EventHandEnded), 1)
}

func TestAllInRunsOutBoard(t *testing.T) {
	decks := scriptedDecks(t,
		[][]string{{"As", "Ah"}, {"Kd", "Kc"}},
		[]string{"2s", "7h", "9d", "Jc", "3s"})
	tt := newTestTable(t, manualOpts(), Config{Decks: decks})
	tt.seat(t, 1000, 1000)
	require.NoError(t, tt.StartHand())

	tt.act(t, 1, Raise, 1000)
	tt.act(t, 0, Call, 0)

	s := tt.Snapshot("")
	assert.Equal(t, "SHOWDOWN", s.Phase)
	assert.Equal(t, []string{"2s", "7h", "9d", "Jc", "3s"}, s.Community)
	assert.Equal(t, int64(2000), s.Seats[1].Chips)
	assert.Equal(t, int64(0), s.Seats[0].Chips)
	assert.Equal(t, "SITTING_OUT", s.Seats[0].Status)
	assert.Equal(t, []string{"Kd", "Kc"}, s.Seats[0].HoleCards, "contested showdown reveals live hands")

	busted := tt.eventsOf(EventPlayerBusted)
	require.Len(t, busted, 1)
	assert.Equal(t, "alice", busted[0].PlayerID)

	// one player left with chips: the table goes back to the lobby
	require.True(t, tt.sched.FireNext(tt.ID(), PurposeNextHand))
	assert.Equal(t, Lobby, tt.Phase())
}

func TestSidePots(t *testing.T) {
	decks := scriptedDecks(t,
		[][]string{{"Kd", "Kc"}, {"Qd", "Qc"}, {"As", "Ah"}},
		[]string{"2s", "7h", "9d", "Jc", "3s"})
	tt := newTestTable(t, manualOpts(), Config{Decks: decks})
	tt.seat(t, 100, 300, 300)
	require.NoError(t, tt.StartHand())

	tt.act(t, 0, Raise, 100)
	tt.act(t, 1, Raise, 300)
	tt.act(t, 2, Call, 0)

	s := tt.Snapshot("")
	require.NotNil(t, s.Settlement)
	expected := []PotResult{
		{Amount: 300, Eligible: []int{0, 1, 2}, Winners: []int{0}, Shares: []int64{300}},
		{Amount: 400, Eligible: []int{1, 2}, Winners: []int{1}, Shares: []int64{400}},
	}
	if diff := cmp.Diff(expected, s.Settlement.Pots); diff != "" {
		t.Fatalf("pots differ\n%s", diff)
	}
	assert.Equal(t, int64(300), s.Seats[0].Chips)
	assert.Equal(t, int64(400), s.Seats[1].Chips)
	assert.Equal(t, int64(0), s.Seats[2].Chips)
	assert.Equal(t, int64(0), s.Pot)
	assert.Equal(t, int64(700), tt.TotalChips())
}

func TestUncalledBetReturned(t *testing.T) {
	decks := scriptedDecks(t,
		[][]string{{"Kd", "Kc"}, {"As", "Ah"}},
		[]string{"2s", "7h", "9d", "Jc", "3s"})
	tt := newTestTable(t, manualOpts(), Config{Decks: decks})
	tt.seat(t, 500, 1000)
	require.NoError(t, tt.StartHand())

	tt.act(t, 1, Raise, 1000)
	tt.act(t, 0, Call, 0)

	s := tt.Snapshot("")
	assert.Equal(t, int64(1000), s.Seats[0].Chips)
	assert.Equal(t, int64(500), s.Seats[1].Chips)
	assert.True(t, s.Seats[0].IsWinner)
	assert.False(t, s.Seats[1].IsWinner, "a refund is not a win")
}

func TestSplitPotOddChip(t *testing.T) {
	tests := []struct {
		amount  int64
		winners []int
		dealer  int
		shares  []int64
	}{
		{25, []int{1, 3}, 0, []int64{13, 12}},
		{25, []int{1, 3}, 2, []int64{12, 13}},
		{10, []int{0, 2, 4}, 5, []int64{4, 3, 3}},
		{10, []int{0, 2, 4}, 0, []int64{3, 4, 3}},
		{30, []int{2}, 0, []int64{30}},
	}
	for _, test := range tests {
		shares := splitPot(test.amount, test.winners, test.dealer)
		if diff := cmp.Diff(test.shares, shares); diff != "" {
			t.Errorf("splitPot(%d, %v, %d)\n%s", test.amount, test.winners, test.dealer, diff)
		}
	}
}

func TestBuildPotsWithFoldedAndDeparted(t *testing.T) {
	pots := buildPots([]contribution{
		{seat: 0, amount: 50, live: true},
		{seat: 1, amount: 200, live: true},
		{seat: 2, amount: 200, live: false},
		{seat: 3, amount: 20, live: false},
	})
	expected := []sidePot{
		{amount: 170, eligible: []int{0, 1}},
		{amount: 300, eligible: []int{1}},
	}
	if diff := cmp.Diff(expected, pots, cmp.AllowUnexported(sidePot{})); diff != "" {
		t.Fatalf("pots differ\n%s", diff)
	}
}

func TestEvaluatorFailureFallsBackToFirstLiveSeat(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{Evaluator: failingEvaluator{}})
	tt.seat(t, 1000, 1000)
	require.NoError(t, tt.StartHand())

	tt.act(t, 1, Call, 0)
	tt.act(t, 0, Check, 0)
	for _, phase := range []Phase{Flop, Turn, River} {
		require.Equal(t, phase, tt.Phase())
		tt.act(t, 1, Check, 0)
		tt.act(t, 0, Check, 0)
	}

	s := tt.Snapshot("")
	assert.Equal(t, "SHOWDOWN", s.Phase)
	require.NotNil(t, s.Settlement)
	assert.True(t, s.Settlement.Fallback)
	assert.Equal(t, int64(1020), s.Seats[0].Chips)
	assert.Equal(t, int64(980), s.Seats[1].Chips)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000, 50)
	require.NoError(t, tt.StartHand())

	tt.act(t, 0, Raise, 40)
	tt.act(t, 1, Call, 0)
	tt.act(t, 2, Raise, 50)

	s := tt.Snapshot("alice")
	assert.Equal(t, int64(50), s.CurrentBet)
	assert.Equal(t, int64(20), s.MinRaise)
	assert.True(t, s.Seats[0].HasActed)
	assert.True(t, s.Seats[2].IsAllIn)
	require.NotNil(t, s.Legal)
	assert.Equal(t, int64(10), s.Legal.ToCall)
	assert.Equal(t, int64(70), s.Legal.MinRaiseTo)
}

func TestPotLimitOmaha(t *testing.T) {
	opts := manualOpts()
	opts.GameType = PLO
	tt := newTestTable(t, opts, Config{})
	tt.seat(t, 1000, 1000, 1000)
	require.NoError(t, tt.StartHand())

	s := tt.Snapshot("alice")
	assert.Equal(t, 4, s.Seats[0].CardCount)
	assert.Len(t, s.Seats[0].HoleCards, 4)
	require.NotNil(t, s.Legal)
	assert.Equal(t, int64(70), s.Legal.MaxRaiseTo)

	err := tt.ApplyAction(0, Raise, 71)
	rejected, ok := IsActionRejected(err)
	require.True(t, ok)
	assert.Equal(t, ReasonAbovePotLimit, rejected.Reason)

	tt.act(t, 0, Raise, 70)
	assert.Equal(t, int64(100), tt.Snapshot("").Pot)
}

func TestSnapshotHidesOtherHoleCards(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000)
	require.NoError(t, tt.StartHand())

	s := tt.Snapshot("alice")
	assert.Len(t, s.Seats[0].HoleCards, 2)
	assert.Nil(t, s.Seats[1].HoleCards)
	assert.Equal(t, 2, s.Seats[1].CardCount)
	assert.Nil(t, s.Legal, "alice is not the active seat")

	public := tt.Snapshot("")
	assert.Nil(t, public.Seats[0].HoleCards)
	assert.Nil(t, public.Seats[1].HoleCards)

	bob := tt.Snapshot("bob")
	require.NotNil(t, bob.Legal)
	assert.Equal(t, int64(10), bob.Legal.ToCall)
	assert.False(t, bob.Legal.CanCheck)
	assert.Equal(t, int64(40), bob.Legal.MinRaiseTo)
	assert.Equal(t, int64(1000), bob.Legal.MaxRaiseTo)
}

func TestChipConservationAcrossBotHands(t *testing.T) {
	decider := decideFunc(func(v DecisionView) Decision {
		switch {
		case v.Phase == PreFlop && v.CanRaise && v.TableBet <= v.BigBlind && v.Seat%2 == 0:
			return Decision{Action: Raise, Amount: v.MinRaiseTo}
		case v.ToCall == 0:
			return Decision{Action: Check}
		case v.Seat == 3 && v.ToCall > v.BigBlind:
			return Decision{Action: Fold}
		}
		return Decision{Action: Call}
	})
	opts := DefaultTableOptions()
	tt := newTestTable(t, opts, Config{Decider: decider})

	for i := 0; i < 4; i++ {
		_, err := tt.SeatPlayer(Identity{ID: playerName(i), IsBot: true}, 1000)
		require.NoError(t, err)
	}
	var violations []string
	tt.AddListener(ListenerFunc(func(tbl *Table, ev Event) {
		s := tbl.Snapshot("")
		var total int64 = s.Pot
		for _, seat := range s.Seats {
			if seat == nil {
				continue
			}
			total += seat.Chips
			if seat.InHand && seat.Chips == 0 && s.Phase != "SHOWDOWN" && !seat.IsAllIn && !seat.HasFolded {
				violations = append(violations, "player with no chips is not all-in")
			}
		}
		if total != 4000 {
			violations = append(violations, "chips not conserved")
		}
		if s.ActiveSeatIndex >= 0 {
			active := s.Seats[s.ActiveSeatIndex]
			if active == nil || active.HasFolded || active.IsAllIn {
				violations = append(violations, "active seat cannot act")
			}
		}
		phases := map[string]int{"LOBBY": 0, "PREFLOP": 0, "FLOP": 3, "TURN": 4, "RIVER": 5}
		if want, ok := phases[s.Phase]; ok && len(s.Community) != want {
			violations = append(violations, "wrong community card count in "+s.Phase)
		}
		if s.Phase == "SHOWDOWN" && s.Settlement != nil && !s.Settlement.FoldWin && len(s.Community) != 5 {
			violations = append(violations, "showdown without a full board")
		}
	}))
	ran := tt.sched.RunPending(3000)
	require.Greater(t, ran, 0)
	assert.Greater(t, len(tt.eventsOf(EventHandEnded)), 5)
	assert.Empty(t, violations)
	assert.Equal(t, int64(4000), tt.TotalChips())
}

func TestStaleBotTaskIsIgnored(t *testing.T) {
	sched := stickyScheduler{NewManualScheduler()}
	tt := newTestTable(t, manualOpts(), Config{Scheduler: sched})
	_, err := tt.SeatPlayer(Identity{ID: "robot", IsBot: true}, 1000)
	require.NoError(t, err)
	_, err = tt.SeatPlayer(Identity{ID: "bob"}, 1000)
	require.NoError(t, err)
	require.NoError(t, tt.StartHand())

	tt.act(t, 1, Call, 0)
	key, ok := sched.Find(tt.ID(), PurposeBotTurn)
	require.True(t, ok, "bot turn scheduled")

	_, err = tt.RemovePlayer("bob")
	require.NoError(t, err)
	before := tt.Snapshot("")
	require.Equal(t, "SHOWDOWN", before.Phase)

	require.True(t, sched.Fire(key))
	if diff := cmp.Diff(before, tt.Snapshot("")); diff != "" {
		t.Fatalf("stale bot task changed the table\n%s", diff)
	}
}

func TestBotTurnRunsDecider(t *testing.T) {
	var seen DecisionView
	decider := decideFunc(func(v DecisionView) Decision {
		seen = v
		return Decision{Action: Raise, Amount: v.MinRaiseTo}
	})
	tt := newTestTable(t, manualOpts(), Config{Decider: decider})
	_, err := tt.SeatPlayer(Identity{ID: "alice"}, 1000)
	require.NoError(t, err)
	_, err = tt.SeatPlayer(Identity{ID: "robot", IsBot: true}, 1000)
	require.NoError(t, err)
	require.NoError(t, tt.StartHand())

	require.True(t, tt.sched.FireNext(tt.ID(), PurposeBotTurn))
	assert.Equal(t, int64(10), seen.ToCall)
	assert.Equal(t, int64(40), seen.MinRaiseTo)
	assert.Len(t, seen.Hole, 2)
	assert.Equal(t, int64(40), tt.Snapshot("").CurrentBet)
	assert.Equal(t, 0, tt.ActiveSeat())
}

func TestAwayPlayerIsFoldedThenExpelled(t *testing.T) {
	ldg := ledger.NewMemoryLedger(10000)
	tt := newTestTable(t, manualOpts(), Config{Ledger: ldg})
	ctx := context.Background()
	_, err := tt.Join(ctx, Identity{ID: "alice"}, 1000)
	require.NoError(t, err)
	_, err = tt.Join(ctx, Identity{ID: "bob"}, 1000)
	require.NoError(t, err)
	require.NoError(t, tt.StartHand())

	require.NoError(t, tt.MarkAway("bob"))
	require.True(t, tt.sched.FireNext(tt.ID(), PurposeAwayFold))
	s := tt.Snapshot("")
	assert.Equal(t, "SHOWDOWN", s.Phase)
	assert.Equal(t, int64(990), s.Seats[1].Chips)
	assert.Equal(t, "AWAY", s.Seats[1].Status)

	require.True(t, tt.sched.FireNext(tt.ID(), PurposeExpel))
	assert.Equal(t, -1, tt.SeatOf("bob"))
	left := tt.eventsOf(EventPlayerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "expelled", left[0].Reason)
	balance, err := ldg.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(9990), balance)
}

func TestAwayPlayerChecksWhenFree(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000)
	require.NoError(t, tt.StartHand())
	require.NoError(t, tt.MarkAway("alice"))
	assert.False(t, tt.sched.Has(tt.ID(), PurposeAwayFold), "not alice's turn yet")

	tt.act(t, 1, Call, 0)
	require.True(t, tt.sched.FireNext(tt.ID(), PurposeAwayFold))
	assert.Equal(t, Flop, tt.Phase())
	assert.False(t, tt.Snapshot("").Seats[0].HasFolded)
}

func TestMarkPlayingCancelsAwayTasks(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000)
	require.NoError(t, tt.StartHand())

	require.NoError(t, tt.MarkAway("bob"))
	require.True(t, tt.sched.Has(tt.ID(), PurposeAwayFold))
	require.True(t, tt.sched.Has(tt.ID(), PurposeExpel))
	require.NoError(t, tt.MarkPlaying("bob"))
	assert.False(t, tt.sched.Has(tt.ID(), PurposeAwayFold))
	assert.False(t, tt.sched.Has(tt.ID(), PurposeExpel))
	assert.Equal(t, 1, tt.ActiveSeat())
}

func TestJoinWithInsufficientBalance(t *testing.T) {
	ldg := ledger.NewMemoryLedger(100)
	tt := newTestTable(t, manualOpts(), Config{Ledger: ldg})
	before := tt.Snapshot("")

	_, err := tt.Join(context.Background(), Identity{ID: "alice"}, 500)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, 0, tt.NumOccupied())
	if diff := cmp.Diff(before, tt.Snapshot("")); diff != "" {
		t.Fatalf("failed join changed the table\n%s", diff)
	}
	balance, _ := ldg.Balance(context.Background(), "alice")
	assert.Equal(t, int64(100), balance)
}

func TestJoinValidation(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{Ledger: ledger.NewMemoryLedger(100000)})
	ctx := context.Background()

	_, err := tt.Join(ctx, Identity{ID: "alice"}, 100)
	require.ErrorIs(t, err, ErrInvalidBuyIn)
	_, err = tt.Join(ctx, Identity{ID: ""}, 1000)
	require.ErrorIs(t, err, ErrInvalidIdentity)

	for i := 0; i < NumSeats; i++ {
		_, err := tt.Join(ctx, Identity{ID: playerName(i)}, 1000)
		require.NoError(t, err)
	}
	_, err = tt.Join(ctx, Identity{ID: "alice"}, 1000)
	require.ErrorIs(t, err, ErrAlreadySeated)
	_, err = tt.Join(ctx, Identity{ID: "zoe"}, 1000)
	require.ErrorIs(t, err, ErrTableFull)
}

func TestTournamentTableRejectsJoinAndLeave(t *testing.T) {
	ldg := ledger.NewMemoryLedger(10000)
	opts := manualOpts()
	opts.Tournament = true
	opts.TournamentID = "tr"
	tt := newTestTable(t, opts, Config{Ledger: ldg})
	ctx := context.Background()

	_, err := tt.Join(ctx, Identity{ID: "mallory"}, 1000000)
	require.ErrorIs(t, err, ErrTournamentSeat)
	assert.Equal(t, 0, tt.NumOccupied())
	assert.Equal(t, int64(0), tt.TotalChips())
	balance, _ := ldg.Balance(ctx, "mallory")
	assert.Equal(t, int64(10000), balance)

	_, err = tt.SeatPlayer(Identity{ID: "alice"}, 1500)
	require.NoError(t, err)
	_, err = tt.Leave(ctx, "alice")
	require.ErrorIs(t, err, ErrTournamentSeat)
	assert.Equal(t, 0, tt.SeatOf("alice"))
	chips, err := tt.Chips("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), chips)
}

func TestLeaveCreditFailureKeepsSeat(t *testing.T) {
	ldg := failingCreditLedger{ledger.NewMemoryLedger(10000)}
	tt := newTestTable(t, manualOpts(), Config{Ledger: ldg})
	_, err := tt.Join(context.Background(), Identity{ID: "alice"}, 1000)
	require.NoError(t, err)

	_, err = tt.Leave(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, 0, tt.SeatOf("alice"))
}

func TestLeaveMidHandKeepsContribution(t *testing.T) {
	decks := scriptedDecks(t,
		[][]string{{"As", "Ah"}, {"Kd", "Kc"}, {"2c", "3d"}},
		[]string{"5h", "8h", "9c", "Tc", "4d"})
	tt := newTestTable(t, manualOpts(), Config{Decks: decks})
	tt.seat(t, 1000, 1000, 1000)
	require.NoError(t, tt.StartHand())

	tt.act(t, 0, Call, 0)
	chips, err := tt.RemovePlayer("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(980), chips)
	assert.Equal(t, 1, tt.ActiveSeat())

	tt.act(t, 1, Call, 0)
	tt.act(t, 2, Check, 0)
	for _, phase := range []Phase{Flop, Turn, River} {
		require.Equal(t, phase, tt.Phase())
		tt.act(t, 1, Check, 0)
		tt.act(t, 2, Check, 0)
	}

	s := tt.Snapshot("")
	assert.Equal(t, "SHOWDOWN", s.Phase)
	assert.Equal(t, int64(1040), s.Seats[1].Chips)
	assert.Equal(t, int64(980), s.Seats[2].Chips)
	assert.Equal(t, int64(3000), tt.TotalChips()+chips)
}

func TestRestartAndBlindChange(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000, 1000, 1000)
	require.NoError(t, tt.StartHand())
	require.ErrorIs(t, tt.Restart(), ErrHandInProgress)

	require.NoError(t, tt.SetBlinds(25, 50))
	small, big := tt.Blinds()
	assert.Equal(t, int64(10), small)
	assert.Equal(t, int64(20), big)

	tt.act(t, 0, Fold, 0)
	tt.act(t, 1, Fold, 0)
	require.NoError(t, tt.Restart())

	s := tt.Snapshot("")
	assert.Equal(t, uint32(2), s.HandNum)
	assert.Equal(t, 1, s.DealerIndex)
	assert.Equal(t, int64(75), s.Pot)
	assert.Equal(t, int64(50), s.BigBlind)
	assert.False(t, tt.sched.Has(tt.ID(), PurposeNextHand))
}

func TestNextHandIsScheduledAfterShowdown(t *testing.T) {
	tt := newTestTable(t, DefaultTableOptions(), Config{})
	tt.seat(t, 1000, 1000)
	require.True(t, tt.sched.FireNext(tt.ID(), PurposeNextHand), "joining two players schedules a deal")
	first := tt.HandID()
	require.NotEmpty(t, first)

	tt.act(t, 1, Fold, 0)
	require.Equal(t, Showdown, tt.Phase())
	require.True(t, tt.sched.FireNext(tt.ID(), PurposeNextHand))
	assert.Equal(t, PreFlop, tt.Phase())
	assert.NotEqual(t, first, tt.HandID())
}

func TestDestroyCancelsTasks(t *testing.T) {
	tt := newTestTable(t, DefaultTableOptions(), Config{})
	tt.seat(t, 1000, 1000)
	require.True(t, tt.sched.Has(tt.ID(), PurposeNextHand))

	tt.Destroy()
	assert.Empty(t, tt.sched.Pending())
	assert.True(t, tt.Destroyed())
	require.ErrorIs(t, tt.StartHand(), ErrTableClosed)
	_, err := tt.SeatPlayer(Identity{ID: "carol"}, 1000)
	require.ErrorIs(t, err, ErrTableClosed)
	assert.Len(t, tt.eventsOf(EventTableDestroyed), 1)
}

func TestNotEnoughPlayers(t *testing.T) {
	tt := newTestTable(t, manualOpts(), Config{})
	tt.seat(t, 1000)
	require.ErrorIs(t, tt.StartHand(), ErrNotEnoughPlayers)
	assert.Equal(t, Lobby, tt.Phase())
}

func TestHandHistoryIsRecorded(t *testing.T) {
	recorder := history.NewRecorder(nil)
	tt := newTestTable(t, manualOpts(), Config{Recorder: recorder})
	tt.seat(t, 1000, 1000, 1000)
	require.NoError(t, tt.StartHand())
	handID := tt.HandID()

	tt.act(t, 0, Raise, 60)
	tt.act(t, 1, Fold, 0)
	tt.act(t, 2, Fold, 0)

	h, err := recorder.Get(handID)
	require.NoError(t, err)
	assert.Equal(t, tt.ID(), h.TableID)
	assert.Len(t, h.Players, 3)
	assert.False(t, h.EndedAt.IsZero())

	var types []history.EntryType
	for _, e := range h.Entries {
		if e.Type != history.EntryState {
			types = append(types, e.Type)
		}
	}
	expected := []history.EntryType{
		history.EntryBlind, history.EntryBlind,
		history.EntryAction, history.EntryAction, history.EntryAction,
		history.EntryShowdown,
	}
	if diff := cmp.Diff(expected, types); diff != "" {
		t.Fatalf("entry types differ\n%s", diff)
	}
	assert.Equal(t, int64(60), h.Entries[2].Amount, "raise is recorded as the raise-to total")

	stats := recorder.Stats("alice")
	assert.Equal(t, 1, stats.HandsPlayed)
	assert.Equal(t, 1, stats.HandsWon)
	assert.Equal(t, 1, stats.PFRHands)

	hands, err := recorder.TableHands(tt.ID(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{handID}, hands)
}
