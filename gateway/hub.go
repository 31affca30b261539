package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/tournament"
	"voyager.com/tableserver/util"
)

var hubLogger = log.With().Str("logger_name", "gateway::hub").Logger()

// TableService is what sessions drive. *registry.Manager implements it.
type TableService interface {
	JoinSeat(ctx context.Context, tableID string, opts *game.TableOptions, identity game.Identity, buyIn int64) (*game.Table, int, error)
	LeaveSeat(ctx context.Context, tableID string, playerID string) (int64, error)
	MarkAway(tableID string, playerID string) error
	MarkPlaying(tableID string, playerID string) error
	Action(tableID string, playerID string, action game.ActionType, amount int64) error
	Restart(tableID string) error
	GetTable(id string) (*game.Table, error)
	FindPlayer(playerID string) (*game.Table, bool)
}

type Config struct {
	// DefaultTableID is joined when a join message names no table.
	DefaultTableID string
	// MessagesPerSecond and Burst bound inbound messages per connection.
	MessagesPerSecond float64
	Burst             int
	SendBuffer        int
	WriteTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultTableID:    "main",
		MessagesPerSecond: 5,
		Burst:             10,
		SendBuffer:        64,
		WriteTimeout:      5 * time.Second,
	}
}

// Hub accepts websocket connections and pushes table and tournament updates
// to them. It is a game.Listener and a tournament.Notifier.
type Hub struct {
	cfg    Config
	tables TableService
	ledger ledger.Ledger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(cfg Config, tables TableService, l ledger.Ledger) *Hub {
	d := DefaultConfig()
	if cfg.DefaultTableID == "" {
		cfg.DefaultTableID = d.DefaultTableID
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond, cfg.Burst = d.MessagesPerSecond, d.Burst
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = d.SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	return &Hub{
		cfg:      cfg,
		tables:   tables,
		ledger:   l,
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades /ws?playerId=..&name=.. requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "playerId is required", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = playerID
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		hubLogger.Error().Err(err).Str(logging.PlayerIDKey, playerID).Msg("Websocket upgrade failed")
		return
	}

	s := &Session{
		hub:      h,
		conn:     conn,
		identity: game.Identity{ID: playerID, Name: name},
		send:     make(chan ServerMessage, h.cfg.SendBuffer),
		limiter:  rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.Burst),
		logger:   hubLogger.With().Str(logging.PlayerIDKey, playerID).Logger(),
	}
	h.attach(s)
	defer h.detach(s)
	s.run(r.Context())
}

func (h *Hub) attach(s *Session) {
	h.mu.Lock()
	old := h.sessions[s.identity.ID]
	h.sessions[s.identity.ID] = s
	h.mu.Unlock()
	if old != nil {
		old.logger.Info().Msg("Replaced by a new connection")
		go old.close(websocket.StatusPolicyViolation, "connected elsewhere")
	}
	util.Metrics.SessionConnected()

	// reconnecting players pick up where they were seated
	if t, ok := h.tables.FindPlayer(s.identity.ID); ok {
		s.setTable(t.ID())
		if err := h.tables.MarkPlaying(t.ID(), s.identity.ID); err != nil {
			s.logger.Warn().Err(err).Msg("Could not mark reconnected player as playing")
		}
		s.sendState(t)
	}
	s.sendBalance()
}

func (h *Hub) detach(s *Session) {
	h.mu.Lock()
	current := h.sessions[s.identity.ID] == s
	if current {
		delete(h.sessions, s.identity.ID)
	}
	h.mu.Unlock()
	util.Metrics.SessionDisconnected()
	if !current {
		return
	}
	if tableID := s.table(); tableID != "" {
		if err := h.tables.MarkAway(tableID, s.identity.ID); err != nil {
			s.logger.Debug().Err(err).Msg("Could not mark disconnected player away")
		}
	}
}

func (h *Hub) session(playerID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[playerID]
	return s, ok
}

func (h *Hub) sessionsAt(tableID string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Session
	for _, s := range h.sessions {
		if s.table() == tableID {
			out = append(out, s)
		}
	}
	return out
}

// Sessions returns the number of live connections.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) OnTableEvent(t *game.Table, ev game.Event) {
	switch ev.Type {
	case game.EventStateChanged:
		for _, s := range h.sessionsAt(t.ID()) {
			s.sendState(t)
		}
	case game.EventPlayerJoined:
		// tournament seats are assigned without a join message
		s, ok := h.session(ev.PlayerID)
		if !ok || s.table() != "" {
			return
		}
		s.setTable(t.ID())
		s.sendState(t)
	case game.EventPlayerLeft:
		s, ok := h.session(ev.PlayerID)
		if !ok || s.table() != t.ID() {
			return
		}
		s.setTable("")
		s.sendState(t)
		s.sendBalance()
	case game.EventTableDestroyed:
		for _, s := range h.sessionsAt(t.ID()) {
			s.setTable("")
			s.sendState(t)
		}
	}
}

func (h *Hub) TournamentUpdated(info tournament.Info) {
	for _, p := range info.Registered {
		if s, ok := h.session(p.ID); ok {
			info := info
			s.push(ServerMessage{Type: MsgTournamentUpdate, Tournament: &info})
		}
	}
}

func (h *Hub) TournamentFinished(info tournament.Info) {
	for _, p := range info.Registered {
		if s, ok := h.session(p.ID); ok {
			info := info
			s.push(ServerMessage{Type: MsgTournamentFinished, Tournament: &info, Results: info.Results})
			s.sendBalance()
		}
	}
}

// PlayerMoved points the player's connection at the new table.
func (h *Hub) PlayerMoved(tournamentID string, playerID string, fromTable string, toTable string) {
	s, ok := h.session(playerID)
	if !ok {
		return
	}
	s.setTable(toTable)
	s.push(ServerMessage{Type: MsgMoved, TableID: toTable})
	if t, err := h.tables.GetTable(toTable); err == nil {
		s.sendState(t)
	}
}
