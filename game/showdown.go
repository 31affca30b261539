package game

import (
	"sort"

	"voyager.com/tableserver/history"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/poker"
	"voyager.com/tableserver/util"
)

func (t *Table) solve(p *Player) (poker.RankedHand, error) {
	var hand poker.RankedHand
	var err error
	if t.opts.GameType == PLO {
		hand, err = t.cfg.Evaluator.SolveOmaha(p.HoleCards, t.community)
	} else {
		cards := make([]poker.Card, 0, len(p.HoleCards)+len(t.community))
		cards = append(cards, p.HoleCards...)
		cards = append(cards, t.community...)
		hand, err = t.cfg.Evaluator.Solve(cards)
	}
	hand.Tag = p.SeatIndex
	return hand, err
}

// showdown ranks every live hand and pays each pot to its best eligible hands.
// If the evaluator fails each pot goes to its first eligible seat.
func (t *Table) showdown() {
	var contenders []int
	for i, p := range t.seats {
		if p.live() {
			contenders = append(contenders, i)
		}
	}

	hands := make(map[int]poker.RankedHand, len(contenders))
	fallback := false
	for _, seat := range contenders {
		h, err := t.solve(t.seats[seat])
		if err != nil {
			fallback = true
			util.Metrics.EvaluatorFailure()
			t.logger.Warn().
				Err(err).
				Int(logging.SeatNumKey, seat).
				Msg("Recoverable evaluator failure. Pots go to the first live player")
			break
		}
		hands[seat] = h
	}

	contribs := make([]contribution, 0, NumSeats+len(t.departed))
	for i, p := range t.seats {
		if p != nil && p.InHand {
			contribs = append(contribs, contribution{seat: i, amount: p.TotalBet, live: p.live()})
		}
	}
	for _, d := range t.departed {
		contribs = append(contribs, contribution{seat: d.seat, amount: d.amount})
	}

	s := &Settlement{
		HandID:   t.handID,
		Fallback: fallback,
		Payouts:  make(map[int]int64),
		Hands:    make(map[int]string),
	}
	for _, pot := range buildPots(contribs) {
		var winners []int
		if fallback {
			if len(pot.eligible) > 0 {
				winners = []int{pot.eligible[0]}
			}
		} else {
			eligible := make([]poker.RankedHand, 0, len(pot.eligible))
			for _, seat := range pot.eligible {
				eligible = append(eligible, hands[seat])
			}
			for _, w := range t.cfg.Evaluator.Winners(eligible) {
				winners = append(winners, w.Tag)
			}
			sort.Ints(winners)
		}
		shares := splitPot(pot.amount, winners, t.dealerIndex)
		for i, w := range winners {
			s.Payouts[w] += shares[i]
		}
		s.Pots = append(s.Pots, PotResult{
			Amount:   pot.amount,
			Eligible: pot.eligible,
			Winners:  winners,
			Shares:   shares,
		})
	}
	if !fallback {
		for seat, h := range hands {
			s.Hands[seat] = h.Description
		}
	}
	t.revealed = len(contenders) > 1
	t.finishHand(s)
}

// finishHand pays the settlement, closes the hand history and schedules what
// comes next.
func (t *Table) finishHand(s *Settlement) {
	t.phase = Showdown
	t.activeSeat = -1
	t.clearTurnTask()

	var paid int64
	awards := make([]history.Award, 0, len(s.Payouts))
	for potIndex, pot := range s.Pots {
		for i, seat := range pot.Winners {
			p := t.seats[seat]
			if p == nil {
				continue
			}
			awards = append(awards, history.Award{
				Pot:      potIndex,
				Seat:     seat,
				PlayerID: p.ID(),
				Amount:   pot.Shares[i],
				Hand:     s.Hands[seat],
			})
		}
	}
	for seat, amount := range s.Payouts {
		p := t.seats[seat]
		if p == nil {
			continue
		}
		p.Chips += amount
		if s.FoldWin || !isOnlyRefund(s, seat) {
			p.IsWinner = true
		}
		paid += amount
	}
	if paid != t.pot {
		t.logger.Error().Int64("pot", t.pot).Int64("paid", paid).Msg("Settlement does not match the pot")
	}
	sort.Slice(awards, func(i, j int) bool {
		if awards[i].Pot != awards[j].Pot {
			return awards[i].Pot < awards[j].Pot
		}
		return awards[i].Seat < awards[j].Seat
	})

	revealed := make([]string, 0)
	if t.revealed {
		for _, p := range t.seats {
			if p.live() {
				revealed = append(revealed, poker.CardsToStrings(p.HoleCards)...)
			}
		}
	}
	t.record(history.Entry{
		Type:   history.EntryShowdown,
		Seat:   -1,
		Cards:  revealed,
		Awards: awards,
	})
	t.pot = 0
	for _, p := range t.seats {
		if p != nil {
			p.CurrentBet = 0
		}
	}
	t.settlement = s
	t.recordState("settled")
	if _, err := t.cfg.Recorder.Close(t.handID); err != nil {
		t.logger.Warn().Err(err).Msg("Could not close hand history")
	}

	util.Metrics.HandEnded()
	t.logger.Info().
		Bool("foldWin", s.FoldWin).
		Ints("winners", s.Winners()).
		Msg("Hand settled")
	t.emit(Event{Type: EventHandEnded, Seat: -1, Settlement: s})

	for i, p := range t.seats {
		if p != nil && p.InHand && p.Chips == 0 {
			p.Status = SittingOut
			t.emit(Event{Type: EventPlayerBusted, Seat: i, PlayerID: p.ID()})
		}
	}
	t.emitState()
	t.scheduleNextHand()
}

// isOnlyRefund reports whether everything seat received came from pots that
// nobody else could win.
func isOnlyRefund(s *Settlement, seat int) bool {
	for _, pot := range s.Pots {
		for _, w := range pot.Winners {
			if w == seat && len(pot.Eligible) > 1 {
				return false
			}
		}
	}
	return true
}
