package game

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/history"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/poker"
)

var tableLogger = log.With().Str("logger_name", "game::table").Logger()

// DeckSource hands out a fresh deck for every hand.
type DeckSource interface {
	NewDeck() *poker.Deck
}

type DeckSourceFunc func() *poker.Deck

func (f DeckSourceFunc) NewDeck() *poker.Deck {
	return f()
}

// HandRecorder receives the append-only log of each hand.
type HandRecorder interface {
	Open(h history.HandHistory) error
	Append(handID string, e history.Entry) error
	Close(handID string) (*history.HandHistory, error)
}

type TableOptions struct {
	Name       string   `json:"name"`
	GameType   GameType `json:"gameType"`
	SmallBlind int64    `json:"smallBlind"`
	BigBlind   int64    `json:"bigBlind"`
	MinBuyIn   int64    `json:"minBuyIn"`
	// MaxBuyIn of zero means no maximum.
	MaxBuyIn int64 `json:"maxBuyIn"`
	// ManualStart tables only deal when StartHand or Restart is called.
	ManualStart bool `json:"manualStart"`
	// Tournament tables seat players without touching the ledger and never expel.
	Tournament   bool   `json:"tournament"`
	TournamentID string `json:"tournamentId,omitempty"`
}

func DefaultTableOptions() TableOptions {
	return TableOptions{
		GameType:   NLH,
		SmallBlind: 10,
		BigBlind:   20,
		MinBuyIn:   200,
	}
}

func (o TableOptions) withDefaults() TableOptions {
	d := DefaultTableOptions()
	if o.GameType == "" {
		o.GameType = d.GameType
	}
	if o.SmallBlind == 0 && o.BigBlind == 0 {
		o.SmallBlind, o.BigBlind = d.SmallBlind, d.BigBlind
	}
	if o.MinBuyIn == 0 && !o.Tournament {
		o.MinBuyIn = 10 * o.BigBlind
	}
	return o
}

func (o TableOptions) validate() error {
	if !o.GameType.Valid() {
		return errors.Wrapf(ErrInvalidOptions, "game type %s", o.GameType)
	}
	if o.SmallBlind <= 0 || o.BigBlind < o.SmallBlind {
		return errors.Wrapf(ErrInvalidOptions, "blinds %d/%d", o.SmallBlind, o.BigBlind)
	}
	if o.MaxBuyIn > 0 && o.MaxBuyIn < o.MinBuyIn {
		return errors.Wrapf(ErrInvalidOptions, "buy-in range %d-%d", o.MinBuyIn, o.MaxBuyIn)
	}
	return nil
}

// Config carries the collaborators of a table.
type Config struct {
	Scheduler Scheduler
	Evaluator poker.HandEvaluator
	Recorder  HandRecorder
	Ledger    ledger.Ledger
	Decider   Decider
	Decks     DeckSource
	Delays    Delays
}

type blinds struct {
	small int64
	big   int64
}

// departed is the contribution of a player who left during the hand.
type departed struct {
	seat   int
	amount int64
}

// Table is one six seat table. All state is guarded by mu; every exported
// method locks, mutates, and dispatches the resulting events after unlocking.
type Table struct {
	mu sync.Mutex

	id   string
	opts TableOptions
	cfg  Config

	seats       [NumSeats]*Player
	phase       Phase
	community   []poker.Card
	deck        *poker.Deck
	pot         int64
	currentBet  int64
	minRaise    int64
	dealerIndex int
	activeSeat  int
	smallBlind  int64
	bigBlind    int64

	pendingBlinds *blinds
	handID        string
	handNum       uint32
	departed      []departed
	settlement    *Settlement
	revealed      bool
	turnTask      *TaskKey
	destroyed     bool

	listeners []Listener
	outbox    []Event
	logger    zerolog.Logger
}

func NewTable(id string, opts TableOptions, cfg Config) (*Table, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidOptions, "empty table id")
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = id
	}
	if cfg.Scheduler == nil {
		return nil, errors.Wrap(ErrInvalidOptions, "scheduler is required")
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = poker.NewEvaluator()
	}
	if cfg.Decks == nil {
		cfg.Decks = poker.NewShuffler(nil)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = history.NewRecorder(nil)
	}

	t := &Table{
		id:          id,
		opts:        opts,
		cfg:         cfg,
		phase:       Lobby,
		dealerIndex: -1,
		activeSeat:  -1,
		smallBlind:  opts.SmallBlind,
		bigBlind:    opts.BigBlind,
		minRaise:    opts.BigBlind,
	}
	t.logger = tableLogger.With().Str(logging.TableIDKey, id).Logger()
	return t, nil
}

func (t *Table) ID() string {
	return t.id
}

func (t *Table) Options() TableOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opts
}

func (t *Table) AddListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// run executes fn under the table lock and then dispatches what fn emitted.
func (t *Table) run(fn func() error) error {
	t.mu.Lock()
	err := fn()
	events := t.outbox
	t.outbox = nil
	listeners := make([]Listener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l.OnTableEvent(t, ev)
		}
	}
	return err
}

func (t *Table) emit(ev Event) {
	ev.TableID = t.id
	if ev.HandID == "" {
		ev.HandID = t.handID
	}
	t.outbox = append(t.outbox, ev)
}

func (t *Table) emitState() {
	t.emit(Event{Type: EventStateChanged, Seat: -1})
}

func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Table) HandID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handID
}

func (t *Table) ActiveSeat() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeSeat
}

func (t *Table) Blinds() (int64, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.smallBlind, t.bigBlind
}

func (t *Table) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Occupants lists the identities seated, in seat order.
func (t *Table) Occupants() []Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []Identity
	for _, p := range t.seats {
		if p != nil {
			ids = append(ids, p.Identity)
		}
	}
	return ids
}

func (t *Table) NumOccupied() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.seats {
		if p != nil {
			n++
		}
	}
	return n
}

func (t *Table) HasHuman() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.seats {
		if p != nil && !p.Identity.IsBot {
			return true
		}
	}
	return false
}

// SeatOf returns the seat of a player or -1.
func (t *Table) SeatOf(playerID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seatOf(playerID)
}

func (t *Table) seatOf(playerID string) int {
	for i, p := range t.seats {
		if p != nil && p.ID() == playerID {
			return i
		}
	}
	return -1
}

func (t *Table) Chips(playerID string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat := t.seatOf(playerID)
	if seat < 0 {
		return 0, errors.Wrapf(ErrNotSeated, "player %s", playerID)
	}
	return t.seats[seat].Chips, nil
}

// TotalChips is the pot plus every seated stack. It stays constant during a
// hand unless a player leaves.
func (t *Table) TotalChips() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.pot
	for _, p := range t.seats {
		if p != nil {
			total += p.Chips
		}
	}
	return total
}

// SetBlinds takes effect when the next hand starts.
func (t *Table) SetBlinds(small, big int64) error {
	return t.run(func() error {
		if small <= 0 || big < small {
			return errors.Wrapf(ErrInvalidOptions, "blinds %d/%d", small, big)
		}
		t.pendingBlinds = &blinds{small: small, big: big}
		t.logger.Info().Int64("small", small).Int64("big", big).Msg("Blinds change queued for next hand")
		return nil
	})
}

// Destroy cancels every pending task. Further operations fail with ErrTableClosed.
func (t *Table) Destroy() {
	t.run(func() error {
		if t.destroyed {
			return nil
		}
		t.destroyed = true
		t.cfg.Scheduler.CancelTable(t.id)
		if t.phase.Betting() && t.handID != "" {
			t.record(history.Entry{Type: history.EntryState, Seat: -1, Note: "table closed during hand"})
			if _, err := t.cfg.Recorder.Close(t.handID); err != nil {
				t.logger.Warn().Err(err).Str(logging.HandIDKey, t.handID).Msg("Could not close hand history")
			}
		}
		t.activeSeat = -1
		t.logger.Info().Msg("Table destroyed")
		t.emit(Event{Type: EventTableDestroyed, Seat: -1})
		return nil
	})
}

// nextSeat scans clockwise from seat (exclusive) and returns the first seat
// whose player satisfies pred, or -1.
func (t *Table) nextSeat(from int, pred func(p *Player) bool) int {
	for i := 1; i <= NumSeats; i++ {
		seat := ((from+i)%NumSeats + NumSeats) % NumSeats
		p := t.seats[seat]
		if p != nil && pred(p) {
			return seat
		}
	}
	return -1
}

func (t *Table) count(pred func(p *Player) bool) int {
	n := 0
	for _, p := range t.seats {
		if p != nil && pred(p) {
			n++
		}
	}
	return n
}

func (t *Table) record(e history.Entry) {
	if t.handID == "" {
		return
	}
	if e.Phase == "" {
		e.Phase = t.phase.String()
	}
	e.Pot = t.pot
	if err := t.cfg.Recorder.Append(t.handID, e); err != nil {
		t.logger.Warn().Err(err).Str(logging.HandIDKey, t.handID).Msg("Could not record hand history entry")
	}
}

func (t *Table) recordState(note string) {
	stacks := make([]history.SeatStack, 0, NumSeats)
	for i, p := range t.seats {
		if p != nil {
			stacks = append(stacks, history.SeatStack{Seat: i, Chips: p.Chips, Bet: p.CurrentBet})
		}
	}
	t.record(history.Entry{
		Type:   history.EntryState,
		Seat:   -1,
		Cards:  poker.CardsToStrings(t.community),
		Stacks: stacks,
		Note:   note,
	})
}
