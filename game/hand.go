package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"voyager.com/tableserver/history"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/poker"
	"voyager.com/tableserver/util"
)

// StartHand deals a new hand. It fails with ErrNotEnoughPlayers when fewer
// than two seats can be dealt in and ErrHandInProgress mid-hand.
func (t *Table) StartHand() error {
	return t.run(t.startHand)
}

// Restart deals immediately when the table is idle or showing a result.
func (t *Table) Restart() error {
	return t.run(func() error {
		if t.phase.Betting() {
			return errors.Wrapf(ErrHandInProgress, "table %s", t.id)
		}
		t.cfg.Scheduler.Cancel(t.nextHandKey())
		return t.startHand()
	})
}

// StartIfIdle deals when the table waits in the lobby with enough players.
func (t *Table) StartIfIdle() error {
	return t.run(func() error {
		if t.phase != Lobby {
			return nil
		}
		return t.startHand()
	})
}

func (t *Table) nextHandKey() TaskKey {
	return TaskKey{TableID: t.id, Seat: -1, Purpose: PurposeNextHand}
}

func (t *Table) maybeScheduleStart(delay time.Duration) {
	if t.opts.ManualStart || t.destroyed || t.phase != Lobby {
		return
	}
	if t.count((*Player).canBeDealt) < 2 {
		return
	}
	t.cfg.Scheduler.Schedule(t.nextHandKey(), delay, func() {
		t.run(func() error {
			if t.destroyed || t.phase != Lobby {
				return nil
			}
			if err := t.startHand(); err != nil && errors.Cause(err) != ErrNotEnoughPlayers {
				t.logger.Error().Err(err).Msg("Could not start hand")
			}
			return nil
		})
	})
}

// scheduleNextHand runs after a hand settles. The table moves on to the next
// hand, or back to the lobby when too few players remain.
func (t *Table) scheduleNextHand() {
	handID := t.handID
	t.cfg.Scheduler.Schedule(t.nextHandKey(), ms(t.cfg.Delays.ShowdownDisplay), func() {
		t.run(func() error {
			if t.destroyed || t.handID != handID || t.phase != Showdown {
				return nil
			}
			if t.opts.ManualStart || t.count((*Player).canBeDealt) < 2 {
				t.toLobby()
				return nil
			}
			if err := t.startHand(); err != nil {
				t.logger.Error().Err(err).Msg("Could not start next hand")
				t.toLobby()
			}
			return nil
		})
	})
}

func (t *Table) toLobby() {
	t.phase = Lobby
	t.activeSeat = -1
	t.community = nil
	t.pot = 0
	t.currentBet = 0
	t.revealed = false
	t.settlement = nil
	for _, p := range t.seats {
		if p != nil {
			p.resetForHand()
		}
	}
	t.emitState()
}

func (t *Table) startHand() error {
	if t.destroyed {
		return errors.Wrapf(ErrTableClosed, "table %s", t.id)
	}
	if t.phase.Betting() {
		return errors.Wrapf(ErrHandInProgress, "table %s", t.id)
	}
	if t.pendingBlinds != nil {
		t.smallBlind, t.bigBlind = t.pendingBlinds.small, t.pendingBlinds.big
		t.pendingBlinds = nil
	}
	eligible := t.count((*Player).canBeDealt)
	if eligible < 2 {
		if t.phase == Showdown {
			t.toLobby()
		}
		return errors.Wrapf(ErrNotEnoughPlayers, "table %s has %d", t.id, eligible)
	}
	deck := t.cfg.Decks.NewDeck()
	if deck.Remaining() < eligible*t.opts.GameType.holeCards()+5 {
		return errors.Wrapf(ErrDeckExhausted, "%d cards left", deck.Remaining())
	}

	t.cfg.Scheduler.Cancel(t.nextHandKey())
	for _, p := range t.seats {
		if p != nil {
			p.resetForHand()
			p.InHand = p.canBeDealt()
		}
	}
	t.deck = deck
	t.community = nil
	t.pot = 0
	t.currentBet = 0
	t.departed = nil
	t.settlement = nil
	t.revealed = false
	t.dealerIndex = t.nextSeat(t.dealerIndex, func(p *Player) bool { return p.InHand })
	t.seats[t.dealerIndex].IsDealer = true
	t.handNum++
	t.handID = uuid.New().String()
	t.phase = PreFlop
	t.logger = tableLogger.With().
		Str(logging.TableIDKey, t.id).
		Str(logging.HandIDKey, t.handID).
		Uint32(logging.HandNumKey, t.handNum).
		Logger()

	t.dealHoleCards()
	t.openHistory()

	inHand := func(p *Player) bool { return p.InHand }
	sb := t.nextSeat(t.dealerIndex, inHand)
	bb := t.nextSeat(sb, inHand)
	t.postBlind(sb, t.smallBlind)
	t.postBlind(bb, t.bigBlind)
	t.currentBet = t.bigBlind
	t.minRaise = t.bigBlind

	util.Metrics.HandStarted()
	t.logger.Info().
		Int("dealer", t.dealerIndex).
		Int("sb", sb).
		Int("bb", bb).
		Int64("pot", t.pot).
		Msg("Hand started")
	t.emit(Event{Type: EventHandStarted, Seat: t.dealerIndex})
	t.emitState()

	// the seat after the big blind opens; the big blind keeps its option
	if t.count((*Player).live) > 1 && !t.roundComplete() {
		t.setActive(t.nextSeat(bb, t.needsAction))
		return nil
	}
	t.nextPhase()
	return nil
}

// dealHoleCards deals one card at a time round-robin starting left of the dealer.
func (t *Table) dealHoleCards() {
	order := make([]*Player, 0, NumSeats)
	seat := t.dealerIndex
	for i := 0; i < NumSeats; i++ {
		seat = t.nextSeat(seat, func(p *Player) bool { return p.InHand })
		if seat < 0 || (len(order) > 0 && order[0].SeatIndex == seat) {
			break
		}
		order = append(order, t.seats[seat])
	}
	for pass := 0; pass < t.opts.GameType.holeCards(); pass++ {
		for _, p := range order {
			p.HoleCards = append(p.HoleCards, t.mustDraw(1)...)
		}
	}
}

// mustDraw only runs after startHand checked the deck size.
func (t *Table) mustDraw(n int) []poker.Card {
	cards, err := t.deck.Draw(n)
	if err != nil {
		panic(err)
	}
	return cards
}

func (t *Table) postBlind(seat int, amount int64) {
	p := t.seats[seat]
	posted := p.commit(amount)
	t.pot += posted
	t.record(history.Entry{
		Type:     history.EntryBlind,
		Seat:     seat,
		PlayerID: p.ID(),
		Amount:   posted,
	})
}

func (t *Table) openHistory() {
	players := make([]history.PlayerRecord, 0, NumSeats)
	for i, p := range t.seats {
		if p == nil || !p.InHand {
			continue
		}
		players = append(players, history.PlayerRecord{
			Seat:      i,
			PlayerID:  p.ID(),
			Name:      p.Identity.Name,
			IsBot:     p.Identity.IsBot,
			Chips:     p.Chips,
			HoleCards: poker.CardsToStrings(p.HoleCards),
		})
	}
	err := t.cfg.Recorder.Open(history.HandHistory{
		HandID:     t.handID,
		TableID:    t.id,
		HandNum:    t.handNum,
		GameType:   string(t.opts.GameType),
		SmallBlind: t.smallBlind,
		BigBlind:   t.bigBlind,
		DealerSeat: t.dealerIndex,
		Players:    players,
	})
	if err != nil {
		t.logger.Warn().Err(err).Msg("Could not open hand history")
	}
}
