package game

import (
	"context"

	"github.com/pkg/errors"

	"voyager.com/tableserver/history"
	"voyager.com/tableserver/logging"
)

// Join debits buyIn from the ledger and seats the player in the first free
// seat. A failed debit leaves the table untouched. Tournament tables only
// take players through SeatPlayer.
func (t *Table) Join(ctx context.Context, identity Identity, buyIn int64) (int, error) {
	seat := -1
	err := t.run(func() error {
		if t.opts.Tournament {
			return errors.Wrapf(ErrTournamentSeat, "table %s", t.id)
		}
		var err error
		seat, err = t.join(ctx, identity, buyIn, true)
		return err
	})
	return seat, err
}

// SeatPlayer seats a player with chips that do not come from the ledger.
// Used for bots and tournament seating.
func (t *Table) SeatPlayer(identity Identity, chips int64) (int, error) {
	seat := -1
	err := t.run(func() error {
		var err error
		seat, err = t.join(context.Background(), identity, chips, false)
		return err
	})
	return seat, err
}

func (t *Table) join(ctx context.Context, identity Identity, chips int64, useLedger bool) (int, error) {
	if t.destroyed {
		return -1, errors.Wrapf(ErrTableClosed, "table %s", t.id)
	}
	if t.seatOf(identity.ID) >= 0 {
		return -1, errors.Wrapf(ErrAlreadySeated, "player %s", identity.ID)
	}
	if useLedger {
		if chips < t.opts.MinBuyIn || (t.opts.MaxBuyIn > 0 && chips > t.opts.MaxBuyIn) {
			return -1, errors.Wrapf(ErrInvalidBuyIn, "buy-in %d outside %d-%d", chips, t.opts.MinBuyIn, t.opts.MaxBuyIn)
		}
	}
	seat := -1
	for i, p := range t.seats {
		if p == nil {
			seat = i
			break
		}
	}
	if seat < 0 {
		return -1, errors.Wrapf(ErrTableFull, "table %s", t.id)
	}
	p, err := NewPlayer(seat, identity, chips)
	if err != nil {
		return -1, err
	}
	if useLedger && t.cfg.Ledger != nil {
		if err := t.cfg.Ledger.Debit(ctx, identity.ID, chips); err != nil {
			return -1, errors.Wrapf(err, "buy-in of %d for player %s", chips, identity.ID)
		}
	}

	t.seats[seat] = p
	t.logger.Info().
		Str(logging.PlayerIDKey, identity.ID).
		Int(logging.SeatNumKey, seat).
		Int64("chips", chips).
		Msg("Player seated")
	t.emit(Event{Type: EventPlayerJoined, Seat: seat, PlayerID: identity.ID, Chips: chips})
	t.emitState()
	t.maybeScheduleStart(ms(t.cfg.Delays.BeforeDeal))
	return seat, nil
}

// Leave folds the player out of a live hand, credits the remaining stack to
// the ledger and frees the seat. If the credit fails the player stays seated.
// Tournament players leave only by busting out.
func (t *Table) Leave(ctx context.Context, playerID string) (int64, error) {
	var chips int64
	err := t.run(func() error {
		if t.opts.Tournament {
			return errors.Wrapf(ErrTournamentSeat, "table %s", t.id)
		}
		var err error
		chips, err = t.leave(ctx, playerID, "left")
		return err
	})
	return chips, err
}

// RemovePlayer frees a seat without touching the ledger.
func (t *Table) RemovePlayer(playerID string) (int64, error) {
	var chips int64
	err := t.run(func() error {
		seat := t.seatOf(playerID)
		if seat < 0 {
			return errors.Wrapf(ErrNotSeated, "player %s", playerID)
		}
		chips = t.seats[seat].Chips
		t.vacate(seat, "removed")
		return nil
	})
	return chips, err
}

func (t *Table) leave(ctx context.Context, playerID string, reason string) (int64, error) {
	seat := t.seatOf(playerID)
	if seat < 0 {
		return 0, errors.Wrapf(ErrNotSeated, "player %s", playerID)
	}
	p := t.seats[seat]
	chips := p.Chips
	if !t.opts.Tournament && !p.Identity.IsBot && t.cfg.Ledger != nil && chips > 0 {
		if err := t.cfg.Ledger.Credit(ctx, playerID, chips); err != nil {
			return 0, errors.Wrapf(err, "returning %d chips to player %s", chips, playerID)
		}
	}
	t.vacate(seat, reason)
	return chips, nil
}

func (t *Table) vacate(seat int, reason string) {
	p := t.seats[seat]
	inLiveHand := t.phase.Betting() && p.live()
	if t.phase.Betting() && p.InHand {
		t.departed = append(t.departed, departed{seat: seat, amount: p.TotalBet})
	}
	if inLiveHand {
		p.HasFolded = true
		t.record(history.Entry{Type: history.EntryAction, Seat: seat, PlayerID: p.ID(), Action: string(Fold), Note: reason})
	}

	t.cfg.Scheduler.Cancel(t.expelKey(seat))
	t.seats[seat] = nil
	t.logger.Info().
		Str(logging.PlayerIDKey, p.ID()).
		Int(logging.SeatNumKey, seat).
		Str("reason", reason).
		Msg("Player left the table")
	t.emit(Event{Type: EventPlayerLeft, Seat: seat, PlayerID: p.ID(), Chips: p.Chips, Reason: reason})

	if inLiveHand {
		if seat == t.activeSeat {
			t.advance(seat)
		} else if t.count((*Player).live) == 1 {
			t.winByFold()
		}
	}
	t.emitState()
}

// MarkAway flags a disconnected player. Their turns are auto-folded after a
// grace delay and, on cash tables, they are expelled if they stay away.
func (t *Table) MarkAway(playerID string) error {
	return t.run(func() error {
		seat := t.seatOf(playerID)
		if seat < 0 {
			return errors.Wrapf(ErrNotSeated, "player %s", playerID)
		}
		p := t.seats[seat]
		if p.Status == Playing {
			p.Status = Away
		}
		if !t.opts.Tournament {
			t.scheduleExpel(seat, playerID)
		}
		if seat == t.activeSeat && t.phase.Betting() {
			t.scheduleTurnTask(seat)
		}
		t.emitState()
		return nil
	})
}

// MarkPlaying clears the away flag and its pending tasks.
func (t *Table) MarkPlaying(playerID string) error {
	return t.run(func() error {
		seat := t.seatOf(playerID)
		if seat < 0 {
			return errors.Wrapf(ErrNotSeated, "player %s", playerID)
		}
		p := t.seats[seat]
		if p.Chips > 0 {
			p.Status = Playing
		}
		t.cfg.Scheduler.Cancel(t.expelKey(seat))
		if seat == t.activeSeat && t.turnTask != nil && t.turnTask.Purpose == PurposeAwayFold {
			t.cfg.Scheduler.Cancel(*t.turnTask)
			t.turnTask = nil
		}
		t.emitState()
		t.maybeScheduleStart(ms(t.cfg.Delays.BeforeDeal))
		return nil
	})
}

func (t *Table) expelKey(seat int) TaskKey {
	return TaskKey{TableID: t.id, Seat: seat, Purpose: PurposeExpel}
}

func (t *Table) scheduleExpel(seat int, playerID string) {
	t.cfg.Scheduler.Schedule(t.expelKey(seat), ms(t.cfg.Delays.ExpelAway), func() {
		t.run(func() error {
			if t.destroyed || t.seatOf(playerID) != seat || t.seats[seat].Status != Away {
				return nil
			}
			if _, err := t.leave(context.Background(), playerID, "expelled"); err != nil {
				t.logger.Error().Err(err).Str(logging.PlayerIDKey, playerID).Msg("Could not expel away player")
			}
			return nil
		})
	})
}
