package gateway

import (
	"context"
	"sync"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/logging"
)

const reasonRateLimited = "rate limited"

// Session is one websocket connection of one player.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	identity game.Identity
	send     chan ServerMessage
	limiter  *rate.Limiter
	logger   zerolog.Logger

	mu      sync.Mutex
	tableID string
	closed  bool
}

func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writeLoop(ctx)
	defer s.close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.logger.Info().Msg("Connection closed")
			} else {
				s.logger.Debug().Err(err).Msg("Read failed")
			}
			return
		}
		if !s.limiter.Allow() {
			s.push(ServerMessage{Type: MsgActionRejected, TableID: s.table(), Reason: reasonRateLimited})
			continue
		}
		var msg ClientMessage
		if err := jsoniter.Unmarshal(data, &msg); err != nil {
			s.logger.Warn().Err(err).Msgf("Invalid message: %s", string(data))
			s.push(ServerMessage{Type: MsgActionRejected, TableID: s.table(), Reason: "malformed message"})
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.send:
			data, err := jsoniter.Marshal(msg)
			if err != nil {
				s.logger.Error().Err(err).Str("type", msg.Type).Msg("Could not encode message")
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, s.hub.cfg.WriteTimeout)
			err = s.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug().Err(err).Msg("Write failed")
				s.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// push queues msg without blocking. A client that cannot keep up is dropped.
func (s *Session) push(msg ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
		s.logger.Warn().Msg("Send buffer full, closing connection")
		s.closed = true
		go s.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.conn.Close(code, reason)
}

func (s *Session) table() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableID
}

func (s *Session) setTable(id string) {
	s.mu.Lock()
	s.tableID = id
	s.mu.Unlock()
}

func (s *Session) sendState(t *game.Table) {
	snap := t.Snapshot(s.identity.ID)
	s.push(ServerMessage{Type: MsgTableState, TableID: t.ID(), Snapshot: &snap})
}

func (s *Session) sendBalance() {
	if s.hub.ledger == nil {
		return
	}
	balance, err := s.hub.ledger.Balance(context.Background(), s.identity.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Could not read balance")
		return
	}
	s.push(ServerMessage{Type: MsgBalanceUpdate, Balance: &balance})
}

func (s *Session) handle(ctx context.Context, msg ClientMessage) {
	tables := s.hub.tables
	switch msg.Type {
	case MsgJoin:
		s.join(ctx, msg)

	case MsgAction:
		tableID := s.table()
		action, ok := game.ParseAction(msg.Action)
		if !ok {
			s.reject(tableID, string(game.ReasonInvalidAction))
			return
		}
		if tableID == "" {
			s.reject("", game.ErrNotSeated.Error())
			return
		}
		if err := tables.Action(tableID, s.identity.ID, action, msg.Amount); err != nil {
			s.reject(tableID, reasonOf(err))
		}

	case MsgRestart:
		tableID := s.table()
		if tableID == "" {
			s.reject("", game.ErrNotSeated.Error())
			return
		}
		if err := tables.Restart(tableID); err != nil {
			s.reject(tableID, reasonOf(err))
		}

	case MsgChat:
		tableID := s.table()
		if tableID == "" || msg.Text == "" {
			return
		}
		text := msg.Text
		if utf8.RuneCountInString(text) > maxChatLength {
			text = string([]rune(text)[:maxChatLength])
		}
		out := ServerMessage{Type: MsgChat, TableID: tableID, From: s.identity.Name, Text: text}
		for _, other := range s.hub.sessionsAt(tableID) {
			other.push(out)
		}

	case MsgLeave:
		tableID := s.table()
		if tableID == "" {
			return
		}
		// the PlayerLeft event clears the binding and pushes the balance
		if _, err := tables.LeaveSeat(ctx, tableID, s.identity.ID); err != nil {
			s.reject(tableID, reasonOf(err))
		}

	case MsgAway, MsgBack:
		tableID := s.table()
		if tableID == "" {
			return
		}
		var err error
		if msg.Type == MsgAway {
			err = tables.MarkAway(tableID, s.identity.ID)
		} else {
			err = tables.MarkPlaying(tableID, s.identity.ID)
		}
		if err != nil {
			s.reject(tableID, reasonOf(err))
		}

	default:
		s.reject(s.table(), "unknown message type "+msg.Type)
	}
}

func (s *Session) join(ctx context.Context, msg ClientMessage) {
	tableID := msg.TableID
	if tableID == "" {
		tableID = s.hub.cfg.DefaultTableID
	}
	if current := s.table(); current != "" && current != tableID {
		s.push(ServerMessage{Type: MsgErrorJoining, TableID: tableID, Reason: "already seated at table " + current})
		return
	}
	t, seat, err := s.hub.tables.JoinSeat(ctx, tableID, msg.Options, s.identity, msg.BuyIn)
	if err != nil {
		s.logger.Info().Err(err).Str(logging.TableIDKey, tableID).Msg("Join failed")
		s.push(ServerMessage{Type: MsgErrorJoining, TableID: tableID, Reason: err.Error()})
		return
	}
	s.setTable(t.ID())
	s.logger.Info().Str(logging.TableIDKey, t.ID()).Int(logging.SeatNumKey, seat).Msg("Joined table")
	s.sendBalance()
	s.sendState(t)
}

func (s *Session) reject(tableID string, reason string) {
	s.push(ServerMessage{Type: MsgActionRejected, TableID: tableID, Reason: reason})
}

func reasonOf(err error) string {
	if rejected, ok := game.IsActionRejected(err); ok {
		return string(rejected.Reason)
	}
	return err.Error()
}
