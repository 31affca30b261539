package game

import (
	"github.com/rs/zerolog"

	"voyager.com/tableserver/history"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/util"
)

// ApplyAction applies a player's action. For Raise, amount is the total the
// player's bet reaches this round. Illegal actions return *ActionRejectedError
// and leave the table unchanged.
func (t *Table) ApplyAction(seat int, action ActionType, amount int64) error {
	return t.run(func() error {
		return t.applyAction(seat, action, amount)
	})
}

// Act resolves the player's seat and applies the action.
func (t *Table) Act(playerID string, action ActionType, amount int64) error {
	return t.run(func() error {
		seat := t.seatOf(playerID)
		if seat < 0 {
			return t.reject(seat, action, amount, ReasonNotYourTurn)
		}
		return t.applyAction(seat, action, amount)
	})
}

func (t *Table) reject(seat int, action ActionType, amount int64, reason RejectReason) error {
	util.Metrics.ActionRejected()
	t.logger.Debug().
		Int(logging.SeatNumKey, seat).
		Str("action", string(action)).
		Int64("amount", amount).
		Str("reason", string(reason)).
		Msg("Action rejected")
	return &ActionRejectedError{Seat: seat, Action: action, Amount: amount, Reason: reason}
}

// raiseBounds returns the smallest and largest raise-to totals open to p.
// ok is false when p cannot raise at all.
func (t *Table) raiseBounds(p *Player) (minTo int64, maxTo int64, ok bool) {
	stack := p.CurrentBet + p.Chips
	if stack <= t.currentBet {
		return 0, 0, false
	}
	maxTo = stack
	if t.opts.GameType == PLO {
		if limit := t.potLimit(p); limit < maxTo {
			maxTo = limit
		}
	}
	minTo = t.currentBet + t.minRaise
	if minTo > maxTo {
		// only a short all-in is left
		if maxTo != stack {
			return 0, 0, false
		}
		minTo = maxTo
	}
	return minTo, maxTo, true
}

// potLimit is the largest raise-to total under pot-limit rules: the pot after
// calling, added on top of the call.
func (t *Table) potLimit(p *Player) int64 {
	toCall := t.currentBet - p.CurrentBet
	if toCall < 0 {
		toCall = 0
	}
	return t.currentBet + t.pot + toCall
}

func (t *Table) applyAction(seat int, action ActionType, amount int64) error {
	if t.destroyed || !t.phase.Betting() || t.activeSeat < 0 {
		return t.reject(seat, action, amount, ReasonNoHand)
	}
	if seat != t.activeSeat || seat < 0 || seat >= NumSeats || t.seats[seat] == nil {
		return t.reject(seat, action, amount, ReasonNotYourTurn)
	}
	p := t.seats[seat]
	recorded := action
	var committed int64

	switch action {
	case Fold:
		p.HasFolded = true
	case Check:
		if p.CurrentBet != t.currentBet {
			return t.reject(seat, action, amount, ReasonCheckNotAllowed)
		}
	case Call:
		owed := t.currentBet - p.CurrentBet
		if owed <= 0 {
			recorded = Check
			break
		}
		committed = p.commit(owed)
		t.pot += committed
	case Raise:
		stack := p.CurrentBet + p.Chips
		if stack <= t.currentBet {
			return t.reject(seat, action, amount, ReasonCannotRaise)
		}
		if amount > stack {
			return t.reject(seat, action, amount, ReasonRaiseAboveStack)
		}
		if t.opts.GameType == PLO && amount > t.potLimit(p) {
			return t.reject(seat, action, amount, ReasonAbovePotLimit)
		}
		allIn := amount == stack
		if amount <= t.currentBet || (amount < t.currentBet+t.minRaise && !allIn) {
			return t.reject(seat, action, amount, ReasonRaiseTooSmall)
		}
		committed = p.commit(amount - p.CurrentBet)
		t.pot += committed
		raiseBy := amount - t.currentBet
		t.currentBet = amount
		if raiseBy >= t.minRaise {
			// a full raise reopens the betting
			t.minRaise = raiseBy
			for i, other := range t.seats {
				if i != seat && other != nil && other.canAct() {
					other.HasActed = false
				}
			}
		}
	default:
		return t.reject(seat, action, amount, ReasonInvalidAction)
	}

	p.HasActed = true
	t.logTurn(t.logger.Info(), seat, recorded, committed).Msg("Player acted")
	recordAmount := committed
	if recorded == Raise {
		recordAmount = amount
	}
	t.record(history.Entry{
		Type:     history.EntryAction,
		Seat:     seat,
		PlayerID: p.ID(),
		Action:   string(recorded),
		Amount:   recordAmount,
	})
	t.emitState()
	t.advance(seat)
	return nil
}

func (t *Table) logTurn(ev *zerolog.Event, seat int, action ActionType, committed int64) *zerolog.Event {
	return ev.
		Int(logging.SeatNumKey, seat).
		Str("phase", t.phase.String()).
		Str("action", string(action)).
		Int64("committed", committed).
		Int64("pot", t.pot).
		Int64("currentBet", t.currentBet)
}

// needsAction reports whether p still owes a decision this round.
func (t *Table) needsAction(p *Player) bool {
	return p.canAct() && (!p.HasActed || p.CurrentBet < t.currentBet)
}

// roundComplete is true once every player who can act has acted and matched
// the bet. A lone player who can act and has matched has nobody to bet against.
func (t *Table) roundComplete() bool {
	actors := 0
	pending := 0
	var last *Player
	for _, p := range t.seats {
		if p == nil || !p.canAct() {
			continue
		}
		actors++
		last = p
		if t.needsAction(p) {
			pending++
		}
	}
	if actors == 0 || pending == 0 {
		return true
	}
	return actors == 1 && last.CurrentBet >= t.currentBet
}

func (t *Table) advance(from int) {
	if t.count((*Player).live) == 1 {
		t.winByFold()
		return
	}
	if t.roundComplete() {
		t.nextPhase()
		return
	}
	t.setActive(t.nextSeat(from, t.needsAction))
}

func (t *Table) clearTurnTask() {
	if t.turnTask != nil {
		t.cfg.Scheduler.Cancel(*t.turnTask)
		t.turnTask = nil
	}
}

func (t *Table) setActive(seat int) {
	t.clearTurnTask()
	t.activeSeat = seat
	if seat < 0 {
		return
	}
	t.scheduleTurnTask(seat)
	t.emitState()
}

// scheduleTurnTask schedules the bot decision or the away auto-fold for the
// seat whose turn it is.
func (t *Table) scheduleTurnTask(seat int) {
	p := t.seats[seat]
	var key TaskKey
	var fn func()
	handID := t.handID
	playerID := p.ID()
	switch {
	case p.Identity.IsBot:
		key = TaskKey{TableID: t.id, HandID: handID, Seat: seat, Purpose: PurposeBotTurn}
		fn = func() { t.run(func() error { t.botTurn(handID, seat, playerID); return nil }) }
		t.cfg.Scheduler.Schedule(key, ms(t.cfg.Delays.BotThink), fn)
	case p.Status == Away:
		key = TaskKey{TableID: t.id, HandID: handID, Seat: seat, Purpose: PurposeAwayFold}
		fn = func() { t.run(func() error { t.awayTurn(handID, seat, playerID); return nil }) }
		t.cfg.Scheduler.Schedule(key, ms(t.cfg.Delays.AwayFold), fn)
	default:
		return
	}
	t.turnTask = &key
}

// stillTurn guards every timer callback against stale state.
func (t *Table) stillTurn(handID string, seat int, playerID string) bool {
	return !t.destroyed &&
		t.phase.Betting() &&
		t.handID == handID &&
		t.activeSeat == seat &&
		t.seats[seat] != nil &&
		t.seats[seat].ID() == playerID
}

func (t *Table) botTurn(handID string, seat int, playerID string) {
	if !t.stillTurn(handID, seat, playerID) {
		return
	}
	t.turnTask = nil
	d := Decision{Action: Check}
	if t.cfg.Decider != nil {
		d = t.cfg.Decider.Decide(t.decisionView(seat))
	}
	util.Metrics.BotActed()
	if err := t.applyAction(seat, d.Action, d.Amount); err != nil {
		t.logger.Warn().Err(err).Int(logging.SeatNumKey, seat).Msg("Bot decision rejected. Falling back")
		t.passiveAction(seat)
	}
}

func (t *Table) awayTurn(handID string, seat int, playerID string) {
	if !t.stillTurn(handID, seat, playerID) || t.seats[seat].Status != Away {
		return
	}
	t.turnTask = nil
	util.Metrics.AutoFolded()
	t.logger.Info().Str(logging.PlayerIDKey, playerID).Int(logging.SeatNumKey, seat).Msg("Auto acting for away player")
	t.passiveAction(seat)
}

// passiveAction checks when that is free and folds otherwise.
func (t *Table) passiveAction(seat int) {
	if t.seats[seat].CurrentBet == t.currentBet {
		t.applyAction(seat, Check, 0)
		return
	}
	t.applyAction(seat, Fold, 0)
}
