package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/poker"
	"voyager.com/tableserver/util"
)

var managerLogger = log.With().Str("logger_name", "registry::manager").Logger()

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrTableOccupied = errors.New("table has human players seated")
)

// Config carries what every table created by the manager shares.
type Config struct {
	Scheduler game.Scheduler
	Evaluator poker.HandEvaluator
	Recorder  game.HandRecorder
	Ledger    ledger.Ledger
	Decider   game.Decider
	Delays    game.Delays
	// Decks returns the deck source of a new table. Nil gives every table its own shuffler.
	Decks func(tableID string) game.DeckSource

	// DefaultOptions apply to tables created implicitly by JoinSeat.
	DefaultOptions game.TableOptions
	// FillBots seats bots in every free seat of a cash table created by JoinSeat.
	FillBots bool
	BotChips int64
}

// Manager owns the live tables. Tables are looked up by id from any goroutine.
type Manager struct {
	cfg    Config
	tables cmap.ConcurrentMap

	listenersLock sync.RWMutex
	listeners     []game.Listener
}

func NewManager(cfg Config) *Manager {
	if cfg.DefaultOptions.GameType == "" {
		cfg.DefaultOptions = game.DefaultTableOptions()
	}
	if cfg.BotChips <= 0 {
		cfg.BotChips = 1000
	}
	return &Manager{
		cfg:    cfg,
		tables: cmap.New(),
	}
}

// AddListener receives the events of every table, current and future.
func (m *Manager) AddListener(l game.Listener) {
	m.listenersLock.Lock()
	defer m.listenersLock.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) tableConfig(id string) game.Config {
	cfg := game.Config{
		Scheduler: m.cfg.Scheduler,
		Evaluator: m.cfg.Evaluator,
		Recorder:  m.cfg.Recorder,
		Ledger:    m.cfg.Ledger,
		Decider:   m.cfg.Decider,
		Delays:    m.cfg.Delays,
	}
	if m.cfg.Decks != nil {
		cfg.Decks = m.cfg.Decks(id)
	}
	return cfg
}

func (m *Manager) newTable(id string, opts game.TableOptions) (*game.Table, error) {
	t, err := game.NewTable(id, opts, m.tableConfig(id))
	if err != nil {
		return nil, err
	}
	t.AddListener(game.ListenerFunc(m.onTableEvent))
	return t, nil
}

// CreateTable fails with ErrTableExists when the id is taken.
func (m *Manager) CreateTable(id string, opts game.TableOptions) (*game.Table, error) {
	t, err := m.newTable(id, opts)
	if err != nil {
		return nil, err
	}
	if !m.tables.SetIfAbsent(id, t) {
		return nil, errors.Wrapf(ErrTableExists, "table %s", id)
	}
	m.tablesChanged()
	managerLogger.Info().
		Str(logging.TableIDKey, id).
		Str("gameType", string(opts.GameType)).
		Bool("tournament", opts.Tournament).
		Msg("Table created")
	return t, nil
}

// GetOrCreateTable reports whether the table was created by this call.
func (m *Manager) GetOrCreateTable(id string, opts game.TableOptions) (*game.Table, bool, error) {
	if t, err := m.GetTable(id); err == nil {
		return t, false, nil
	}
	t, err := m.CreateTable(id, opts)
	if errors.Cause(err) == ErrTableExists {
		// lost a race with another creator
		t, err = m.GetTable(id)
		return t, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (m *Manager) GetTable(id string) (*game.Table, error) {
	v, ok := m.tables.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s", id)
	}
	return v.(*game.Table), nil
}

// RemoveTable destroys a table nobody human is sitting at.
func (m *Manager) RemoveTable(id string) error {
	t, err := m.GetTable(id)
	if err != nil {
		return err
	}
	if t.HasHuman() {
		return errors.Wrapf(ErrTableOccupied, "table %s", id)
	}
	m.destroy(t)
	return nil
}

// DestroyTable destroys a table regardless of who is seated.
func (m *Manager) DestroyTable(id string) error {
	t, err := m.GetTable(id)
	if err != nil {
		return err
	}
	m.destroy(t)
	return nil
}

func (m *Manager) destroy(t *game.Table) {
	t.Destroy()
	m.forget(t)
}

// forget removes t unless another table has taken its id since.
func (m *Manager) forget(t *game.Table) {
	if v, ok := m.tables.Get(t.ID()); ok && v.(*game.Table) == t {
		m.tables.Remove(t.ID())
		m.tablesChanged()
	}
}

// Tables returns the live tables sorted by id.
func (m *Manager) Tables() []*game.Table {
	items := m.tables.Items()
	tables := make([]*game.Table, 0, len(items))
	for _, v := range items {
		tables = append(tables, v.(*game.Table))
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID() < tables[j].ID() })
	return tables
}

func (m *Manager) Count() int {
	return m.tables.Count()
}

// JoinSeat seats a player, creating the table with opts (or the default
// options when opts is nil) if it does not exist yet.
func (m *Manager) JoinSeat(ctx context.Context, tableID string, opts *game.TableOptions, identity game.Identity, buyIn int64) (*game.Table, int, error) {
	tableOpts := m.cfg.DefaultOptions
	if opts != nil {
		tableOpts = *opts
	}
	t, created, err := m.GetOrCreateTable(tableID, tableOpts)
	if err != nil {
		return nil, -1, err
	}
	seat, err := t.Join(ctx, identity, buyIn)
	if err != nil {
		if created && t.NumOccupied() == 0 {
			m.destroy(t)
		}
		return nil, -1, err
	}
	if created && m.cfg.FillBots && !t.Options().Tournament {
		m.fillBots(t)
	}
	return t, seat, nil
}

func (m *Manager) fillBots(t *game.Table) {
	for n := 1; t.NumOccupied() < game.NumSeats; n++ {
		bot := game.Identity{
			ID:    fmt.Sprintf("bot-%s-%d", t.ID(), n),
			Name:  fmt.Sprintf("Bot %d", n),
			IsBot: true,
		}
		if _, err := t.SeatPlayer(bot, m.cfg.BotChips); err != nil {
			managerLogger.Warn().Err(err).Str(logging.TableIDKey, t.ID()).Msg("Could not seat bot")
			return
		}
	}
}

// LeaveSeat returns the chips credited back to the player.
func (m *Manager) LeaveSeat(ctx context.Context, tableID string, playerID string) (int64, error) {
	t, err := m.GetTable(tableID)
	if err != nil {
		return 0, err
	}
	return t.Leave(ctx, playerID)
}

func (m *Manager) MarkAway(tableID string, playerID string) error {
	t, err := m.GetTable(tableID)
	if err != nil {
		return err
	}
	return t.MarkAway(playerID)
}

func (m *Manager) MarkPlaying(tableID string, playerID string) error {
	t, err := m.GetTable(tableID)
	if err != nil {
		return err
	}
	return t.MarkPlaying(playerID)
}

func (m *Manager) Action(tableID string, playerID string, action game.ActionType, amount int64) error {
	t, err := m.GetTable(tableID)
	if err != nil {
		return err
	}
	return t.Act(playerID, action, amount)
}

func (m *Manager) Restart(tableID string) error {
	t, err := m.GetTable(tableID)
	if err != nil {
		return err
	}
	return t.Restart()
}

// FindPlayer returns the table a player is seated at.
func (m *Manager) FindPlayer(playerID string) (*game.Table, bool) {
	for _, t := range m.Tables() {
		if t.SeatOf(playerID) >= 0 {
			return t, true
		}
	}
	return nil, false
}

func (m *Manager) onTableEvent(t *game.Table, ev game.Event) {
	m.listenersLock.RLock()
	listeners := m.listeners
	m.listenersLock.RUnlock()
	for _, l := range listeners {
		l.OnTableEvent(t, ev)
	}

	switch ev.Type {
	case game.EventPlayerLeft:
		if !t.Options().Tournament && !t.HasHuman() && !t.Destroyed() {
			managerLogger.Info().Str(logging.TableIDKey, t.ID()).Msg("No human players left, closing table")
			m.destroy(t)
		}
	case game.EventTableDestroyed:
		m.forget(t)
	}
}

func (m *Manager) tablesChanged() {
	util.Metrics.SetActiveTables(m.tables.Count())
}
