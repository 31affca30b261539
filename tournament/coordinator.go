package tournament

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/util"
)

var coordLogger = log.With().Str("logger_name", "tournament::coordinator").Logger()

// Notifier is told about tournament changes. Callbacks run after the
// coordinator state is updated and must not call back into mutating methods.
type Notifier interface {
	TournamentUpdated(info Info)
	TournamentFinished(info Info)
	PlayerMoved(tournamentID string, playerID string, fromTable string, toTable string)
}

// Notifiers fans out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) TournamentUpdated(info Info) {
	for _, x := range n {
		x.TournamentUpdated(info)
	}
}

func (n Notifiers) TournamentFinished(info Info) {
	for _, x := range n {
		x.TournamentFinished(info)
	}
}

func (n Notifiers) PlayerMoved(tournamentID string, playerID string, fromTable string, toTable string) {
	for _, x := range n {
		x.PlayerMoved(tournamentID, playerID, fromTable, toTable)
	}
}

// Tables is the part of the table registry the coordinator uses.
type Tables interface {
	CreateTable(id string, opts game.TableOptions) (*game.Table, error)
	GetTable(id string) (*game.Table, error)
	DestroyTable(id string) error
}

type tableEvent struct {
	table *game.Table
	ev    game.Event
}

// Coordinator runs tournaments on tables of the registry. Register it as a
// table listener so eliminations and hand ends reach it.
//
// Table operations made by the coordinator produce events that come back to
// it on the same goroutine. Events are queued and handled by whichever caller
// holds the drain token, so no handler ever waits on itself.
type Coordinator struct {
	tables    Tables
	ledger    ledger.Ledger
	scheduler game.Scheduler
	notifier  Notifier

	mu          sync.RWMutex
	tournaments map[string]*Tournament
	notes       []func()

	queueLock sync.Mutex
	queueCond *sync.Cond
	queue     []tableEvent
	draining  bool
}

func NewCoordinator(tables Tables, l ledger.Ledger, scheduler game.Scheduler, notifier Notifier) *Coordinator {
	if notifier == nil {
		notifier = Notifiers(nil)
	}
	c := &Coordinator{
		tables:      tables,
		ledger:      l,
		scheduler:   scheduler,
		notifier:    notifier,
		tournaments: make(map[string]*Tournament),
	}
	c.queueCond = sync.NewCond(&c.queueLock)
	return c
}

// exclusive runs fn as the drain token holder, then handles queued events.
func (c *Coordinator) exclusive(fn func() error) error {
	c.queueLock.Lock()
	for c.draining {
		c.queueCond.Wait()
	}
	c.draining = true
	c.queueLock.Unlock()

	err := c.locked(fn)
	c.drain()
	return err
}

func (c *Coordinator) locked(fn func() error) error {
	c.mu.Lock()
	err := fn()
	notes := c.notes
	c.notes = nil
	c.mu.Unlock()
	for _, note := range notes {
		note()
	}
	return err
}

// drain handles events until the queue is empty and gives up the token.
func (c *Coordinator) drain() {
	for {
		c.queueLock.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.queueCond.Broadcast()
			c.queueLock.Unlock()
			return
		}
		item := c.queue[0]
		c.queue = c.queue[1:]
		c.queueLock.Unlock()

		c.locked(func() error {
			c.handle(item.table, item.ev)
			return nil
		})
	}
}

// OnTableEvent implements game.Listener.
func (c *Coordinator) OnTableEvent(t *game.Table, ev game.Event) {
	if ev.Type != game.EventPlayerBusted && ev.Type != game.EventHandEnded {
		return
	}
	opts := t.Options()
	if !opts.Tournament || opts.TournamentID == "" {
		return
	}
	c.queueLock.Lock()
	c.queue = append(c.queue, tableEvent{table: t, ev: ev})
	if c.draining {
		c.queueLock.Unlock()
		return
	}
	c.draining = true
	c.queueLock.Unlock()
	c.drain()
}

func (c *Coordinator) handle(t *game.Table, ev game.Event) {
	tr, ok := c.tournaments[t.Options().TournamentID]
	if !ok || !tr.sm.Is(StateRunning) || !tr.hasTable(t.ID()) {
		return
	}
	switch ev.Type {
	case game.EventPlayerBusted:
		if err := c.eliminate(tr, t.ID(), ev.Seat); err != nil {
			coordLogger.Error().Err(err).Str(logging.TournamentIDKey, tr.id).Msg("Could not process elimination")
		}
	case game.EventHandEnded:
		if tr.rebalance {
			c.balanceTables(tr)
		}
	}
}

func (c *Coordinator) notifyUpdate(tr *Tournament) {
	info := tr.info()
	c.notes = append(c.notes, func() { c.notifier.TournamentUpdated(info) })
}

func (c *Coordinator) CreateTournament(cfg Config) (Info, error) {
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Info{}, err
	}
	var info Info
	err := c.exclusive(func() error {
		tr := newTournament(uuid.New().String(), cfg)
		c.tournaments[tr.id] = tr
		coordLogger.Info().
			Str(logging.TournamentIDKey, tr.id).
			Str("name", cfg.Name).
			Int("maxPlayers", cfg.MaxPlayers).
			Int64("buyIn", cfg.BuyIn).
			Msg("Tournament created")
		c.notifyUpdate(tr)
		info = tr.info()
		return nil
	})
	return info, err
}

func (c *Coordinator) get(id string) (*Tournament, error) {
	tr, ok := c.tournaments[id]
	if !ok {
		return nil, errors.Wrapf(ErrTournamentNotFound, "tournament %s", id)
	}
	return tr, nil
}

// Register debits the buy-in. The tournament starts when the roster fills.
func (c *Coordinator) Register(ctx context.Context, tournamentID string, identity game.Identity) error {
	if identity.ID == "" {
		return errors.Wrap(game.ErrInvalidIdentity, "empty player id")
	}
	return c.exclusive(func() error {
		tr, err := c.get(tournamentID)
		if err != nil {
			return err
		}
		if !tr.sm.Is(StateRegistering) {
			return errors.Wrapf(ErrRegistrationClosed, "tournament %s is %s", tournamentID, tr.sm.Current())
		}
		if tr.ids.Contains(identity.ID) {
			return errors.Wrapf(ErrAlreadyRegistered, "player %s", identity.ID)
		}
		if len(tr.registered) >= tr.cfg.MaxPlayers {
			return errors.Wrapf(ErrTournamentFull, "tournament %s", tournamentID)
		}
		if c.ledger != nil && tr.cfg.BuyIn > 0 {
			if err := c.ledger.Debit(ctx, identity.ID, tr.cfg.BuyIn); err != nil {
				return errors.Wrapf(err, "buy-in for tournament %s", tournamentID)
			}
		}
		tr.ids.Add(identity.ID)
		tr.registered = append(tr.registered, identity)
		coordLogger.Info().
			Str(logging.TournamentIDKey, tr.id).
			Str(logging.PlayerIDKey, identity.ID).
			Int("registered", len(tr.registered)).
			Msg("Player registered")
		c.notifyUpdate(tr)
		if len(tr.registered) == tr.cfg.MaxPlayers {
			if err := c.start(tr); err != nil {
				coordLogger.Error().Err(err).Str(logging.TournamentIDKey, tr.id).Msg("Could not start full tournament")
			}
		}
		return nil
	})
}

// Unregister refunds the buy-in while registration is open.
func (c *Coordinator) Unregister(ctx context.Context, tournamentID string, playerID string) error {
	return c.exclusive(func() error {
		tr, err := c.get(tournamentID)
		if err != nil {
			return err
		}
		if !tr.sm.Is(StateRegistering) {
			return errors.Wrapf(ErrRegistrationClosed, "tournament %s is %s", tournamentID, tr.sm.Current())
		}
		if !tr.ids.Contains(playerID) {
			return errors.Wrapf(ErrNotRegistered, "player %s", playerID)
		}
		if c.ledger != nil && tr.cfg.BuyIn > 0 {
			if err := c.ledger.Credit(ctx, playerID, tr.cfg.BuyIn); err != nil {
				return errors.Wrapf(err, "refund for tournament %s", tournamentID)
			}
		}
		tr.ids.Remove(playerID)
		for i, p := range tr.registered {
			if p.ID == playerID {
				tr.registered = append(tr.registered[:i], tr.registered[i+1:]...)
				break
			}
		}
		c.notifyUpdate(tr)
		return nil
	})
}

// Cancel refunds every registrant of a tournament that has not started.
func (c *Coordinator) Cancel(ctx context.Context, tournamentID string) error {
	return c.exclusive(func() error {
		tr, err := c.get(tournamentID)
		if err != nil {
			return err
		}
		if err := tr.sm.Event(eventCancel); err != nil {
			return errors.Wrapf(ErrRegistrationClosed, "tournament %s is %s", tournamentID, tr.sm.Current())
		}
		if c.ledger != nil && tr.cfg.BuyIn > 0 {
			for _, p := range tr.registered {
				if err := c.ledger.Credit(ctx, p.ID, tr.cfg.BuyIn); err != nil {
					coordLogger.Error().Err(err).Str(logging.PlayerIDKey, p.ID).Msg("Could not refund tournament buy-in")
				}
			}
		}
		c.notifyUpdate(tr)
		return nil
	})
}

// Start seats the registrants and deals. Registration closes even when fewer
// than MaxPlayers signed up.
func (c *Coordinator) Start(tournamentID string) error {
	return c.exclusive(func() error {
		tr, err := c.get(tournamentID)
		if err != nil {
			return err
		}
		return c.start(tr)
	})
}

func (c *Coordinator) start(tr *Tournament) error {
	if len(tr.registered) < 2 {
		return errors.Wrapf(game.ErrNotEnoughPlayers, "tournament %s has %d players", tr.id, len(tr.registered))
	}
	if err := tr.sm.Event(eventStart); err != nil {
		return errors.Wrapf(ErrRegistrationClosed, "tournament %s is %s", tr.id, tr.sm.Current())
	}

	numTables := (len(tr.registered) + game.NumSeats - 1) / game.NumSeats
	blinds := tr.blinds()
	tables := make([]*game.Table, 0, numTables)
	for i := 0; i < numTables; i++ {
		id := fmt.Sprintf("%s-%d", tr.id, i+1)
		t, err := c.tables.CreateTable(id, game.TableOptions{
			Name:         fmt.Sprintf("%s #%d", tr.cfg.Name, i+1),
			GameType:     tr.cfg.GameType,
			SmallBlind:   blinds.SmallBlind,
			BigBlind:     blinds.BigBlind,
			Tournament:   true,
			TournamentID: tr.id,
		})
		if err != nil {
			return errors.Wrapf(err, "creating table %d of tournament %s", i+1, tr.id)
		}
		tables = append(tables, t)
		tr.tables = append(tr.tables, id)
	}
	for i, p := range tr.registered {
		t := tables[i%numTables]
		if _, err := t.SeatPlayer(p, tr.cfg.StartingChips); err != nil {
			return errors.Wrapf(err, "seating player %s", p.ID)
		}
	}
	for _, t := range tables {
		if err := t.StartIfIdle(); err != nil {
			coordLogger.Warn().Err(err).Str(logging.TableIDKey, t.ID()).Msg("Could not start tournament table")
		}
	}
	c.scheduleBlindLevel(tr)

	coordLogger.Info().
		Str(logging.TournamentIDKey, tr.id).
		Int("players", len(tr.registered)).
		Int("tables", numTables).
		Msg("Tournament started")
	c.notifyUpdate(tr)
	return nil
}

func blindKey(tournamentID string) game.TaskKey {
	return game.TaskKey{TableID: "tournament:" + tournamentID, Seat: -1, Purpose: game.PurposeBlindLevel}
}

func (c *Coordinator) scheduleBlindLevel(tr *Tournament) {
	if tr.level+1 >= len(tr.cfg.BlindLevels) {
		return
	}
	id := tr.id
	c.scheduler.Schedule(blindKey(id), tr.cfg.LevelDuration, func() {
		c.exclusive(func() error {
			tr, ok := c.tournaments[id]
			if !ok || !tr.sm.Is(StateRunning) {
				return nil
			}
			c.advanceBlindLevel(tr)
			return nil
		})
	})
}

func (c *Coordinator) advanceBlindLevel(tr *Tournament) {
	tr.level++
	blinds := tr.blinds()
	for _, id := range tr.tables {
		t, err := c.tables.GetTable(id)
		if err != nil {
			continue
		}
		if err := t.SetBlinds(blinds.SmallBlind, blinds.BigBlind); err != nil {
			coordLogger.Error().Err(err).Str(logging.TableIDKey, id).Msg("Could not raise blinds")
		}
	}
	coordLogger.Info().
		Str(logging.TournamentIDKey, tr.id).
		Int("level", tr.level).
		Int64("small", blinds.SmallBlind).
		Int64("big", blinds.BigBlind).
		Msg("Blind level advanced")
	c.scheduleBlindLevel(tr)
	c.notifyUpdate(tr)
}

// OnElimination removes a busted player and rebalances the tables.
func (c *Coordinator) OnElimination(tableID string, seat int) error {
	return c.exclusive(func() error {
		t, err := c.tables.GetTable(tableID)
		if err != nil {
			return err
		}
		tr, err := c.get(t.Options().TournamentID)
		if err != nil {
			return err
		}
		if !tr.sm.Is(StateRunning) {
			return errors.Wrapf(ErrRegistrationClosed, "tournament %s is %s", tr.id, tr.sm.Current())
		}
		return c.eliminate(tr, tableID, seat)
	})
}

func (c *Coordinator) eliminate(tr *Tournament, tableID string, seat int) error {
	t, err := c.tables.GetTable(tableID)
	if err != nil {
		return err
	}
	s := t.Snapshot("")
	if seat < 0 || seat >= len(s.Seats) || s.Seats[seat] == nil {
		return errors.Wrapf(game.ErrNotSeated, "seat %d of table %s", seat, tableID)
	}
	view := s.Seats[seat]
	if _, err := t.RemovePlayer(view.PlayerID); err != nil {
		return err
	}
	tr.finishOrder = append(tr.finishOrder, game.Identity{ID: view.PlayerID, Name: view.Name, IsBot: view.IsBot})
	coordLogger.Info().
		Str(logging.TournamentIDKey, tr.id).
		Str(logging.TableIDKey, tableID).
		Str(logging.PlayerIDKey, view.PlayerID).
		Int("remaining", tr.remaining()).
		Msg("Player eliminated")

	if tr.remaining() <= 1 {
		c.finish(tr)
		return nil
	}
	c.balanceTables(tr)
	c.notifyUpdate(tr)
	return nil
}

// balanceTables drains the smallest table whenever the players left fit on
// one table fewer. A table in the middle of a hand is drained after the hand.
func (c *Coordinator) balanceTables(tr *Tournament) {
	tr.rebalance = false
	for len(tr.tables) > 1 {
		tables := c.liveTables(tr)
		players := 0
		for _, t := range tables {
			players += t.NumOccupied()
		}
		if players > (len(tables)-1)*game.NumSeats {
			break
		}
		sort.SliceStable(tables, func(i, j int) bool {
			return tables[i].NumOccupied() < tables[j].NumOccupied()
		})
		source := tables[0]
		if source.Phase().Betting() {
			tr.rebalance = true
			coordLogger.Info().
				Str(logging.TournamentIDKey, tr.id).
				Str(logging.TableIDKey, source.ID()).
				Msg("Table consolidation waits for the hand to end")
			return
		}
		c.drainTable(tr, source, tables[1:])
	}
	for _, id := range tr.tables {
		if t, err := c.tables.GetTable(id); err == nil {
			if err := t.StartIfIdle(); err != nil && errors.Cause(err) != game.ErrNotEnoughPlayers {
				coordLogger.Warn().Err(err).Str(logging.TableIDKey, id).Msg("Could not start table")
			}
		}
	}
}

func (c *Coordinator) liveTables(tr *Tournament) []*game.Table {
	tables := make([]*game.Table, 0, len(tr.tables))
	for _, id := range tr.tables {
		t, err := c.tables.GetTable(id)
		if err != nil {
			tr.dropTable(id)
			return c.liveTables(tr)
		}
		tables = append(tables, t)
	}
	return tables
}

// drainTable moves every player of source to the emptiest destination and
// destroys source.
func (c *Coordinator) drainTable(tr *Tournament, source *game.Table, dests []*game.Table) {
	for _, p := range source.Occupants() {
		var dest *game.Table
		for _, d := range dests {
			if d.NumOccupied() >= game.NumSeats {
				continue
			}
			if dest == nil || d.NumOccupied() < dest.NumOccupied() {
				dest = d
			}
		}
		if dest == nil {
			coordLogger.Error().Str(logging.TournamentIDKey, tr.id).Msg("No free seat to move player to")
			return
		}
		chips, err := source.RemovePlayer(p.ID)
		if err != nil {
			coordLogger.Error().Err(err).Str(logging.PlayerIDKey, p.ID).Msg("Could not unseat player for move")
			continue
		}
		if _, err := dest.SeatPlayer(p, chips); err != nil {
			coordLogger.Error().Err(err).Str(logging.PlayerIDKey, p.ID).Int64("chips", chips).Msg("Could not seat moved player")
			continue
		}
		from, to, playerID := source.ID(), dest.ID(), p.ID
		coordLogger.Info().
			Str(logging.TournamentIDKey, tr.id).
			Str(logging.PlayerIDKey, playerID).
			Str("from", from).
			Str("to", to).
			Msg("Player moved")
		c.notes = append(c.notes, func() { c.notifier.PlayerMoved(tr.id, playerID, from, to) })
	}
	tr.dropTable(source.ID())
	if err := c.tables.DestroyTable(source.ID()); err != nil {
		coordLogger.Warn().Err(err).Str(logging.TableIDKey, source.ID()).Msg("Could not destroy drained table")
	}
}

func (c *Coordinator) finish(tr *Tournament) {
	eliminated := make(map[string]bool, len(tr.finishOrder))
	for _, p := range tr.finishOrder {
		eliminated[p.ID] = true
	}
	for _, p := range tr.registered {
		if !eliminated[p.ID] {
			tr.finishOrder = append(tr.finishOrder, p)
		}
	}
	standings := make([]game.Identity, len(tr.finishOrder))
	for i, p := range tr.finishOrder {
		standings[len(standings)-1-i] = p
	}
	tr.results = computePrizes(tr.prizePool(), tr.cfg.PrizeStructure, standings)
	for _, r := range tr.results {
		if r.Prize <= 0 || c.ledger == nil {
			continue
		}
		if err := c.ledger.Credit(context.Background(), r.PlayerID, r.Prize); err != nil {
			coordLogger.Error().Err(err).Str(logging.PlayerIDKey, r.PlayerID).Int64("prize", r.Prize).Msg("Could not pay prize")
		}
	}
	if err := tr.sm.Event(eventFinish); err != nil {
		coordLogger.Error().Err(err).Str(logging.TournamentIDKey, tr.id).Msg("Could not finish tournament")
	}
	c.scheduler.Cancel(blindKey(tr.id))
	for _, id := range tr.tables {
		if err := c.tables.DestroyTable(id); err != nil {
			coordLogger.Warn().Err(err).Str(logging.TableIDKey, id).Msg("Could not destroy tournament table")
		}
	}
	tr.tables = nil
	util.Metrics.TournamentFinished()

	coordLogger.Info().
		Str(logging.TournamentIDKey, tr.id).
		Str("winner", tr.results[0].PlayerID).
		Int64("prize", tr.results[0].Prize).
		Msg("Tournament finished")
	info := tr.info()
	c.notes = append(c.notes, func() {
		c.notifier.TournamentUpdated(info)
		c.notifier.TournamentFinished(info)
	})
}

func (c *Coordinator) Get(id string) (Info, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tr, err := c.get(id)
	if err != nil {
		return Info{}, err
	}
	return tr.info(), nil
}

// List returns every tournament sorted by id.
func (c *Coordinator) List() []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := make([]Info, 0, len(c.tournaments))
	for _, tr := range c.tournaments {
		infos = append(infos, tr.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
