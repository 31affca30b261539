package nats

import (
	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/logging"
)

var subscriberLogger = log.With().Str("logger_name", "nats::subscriber").Logger()

// ActionMessage is what players send on table.<id>.action.
type ActionMessage struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
	// Amount is the raise-to total.
	Amount int64 `json:"amount"`
}

// ActionReply is sent to the reply subject of a request, when there is one.
type ActionReply struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type ActionHandler interface {
	Action(tableID string, playerID string, action game.ActionType, amount int64) error
}

type ActionSubscriber struct {
	nc      Conn
	handler ActionHandler
	sub     *natsgo.Subscription
}

// SubscribeActions routes actions from every table subject to handler.
func SubscribeActions(nc Conn, handler ActionHandler) (*ActionSubscriber, error) {
	s := &ActionSubscriber{nc: nc, handler: handler}
	sub, err := nc.Subscribe(TableActionSubjects, s.onMessage)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribing to %s", TableActionSubjects)
	}
	s.sub = sub
	subscriberLogger.Info().Msgf("Listening for player actions on %s", TableActionSubjects)
	return s, nil
}

func (s *ActionSubscriber) Close() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

func (s *ActionSubscriber) onMessage(msg *natsgo.Msg) {
	tableID, ok := tableIDFromSubject(msg.Subject)
	if !ok {
		subscriberLogger.Warn().Str("subject", msg.Subject).Msg("Unexpected action subject")
		return
	}
	var am ActionMessage
	if err := jsoniter.Unmarshal(msg.Data, &am); err != nil {
		subscriberLogger.Error().Err(err).Str(logging.TableIDKey, tableID).Msgf("Invalid action message: %s", string(msg.Data))
		s.reply(msg, "malformed message")
		return
	}
	action, ok := game.ParseAction(am.Action)
	if !ok {
		s.reject(msg, tableID, am.PlayerID, string(game.ReasonInvalidAction))
		return
	}
	if err := s.handler.Action(tableID, am.PlayerID, action, am.Amount); err != nil {
		reason := err.Error()
		if rejected, ok := game.IsActionRejected(err); ok {
			reason = string(rejected.Reason)
		}
		subscriberLogger.Info().
			Str(logging.TableIDKey, tableID).
			Str(logging.PlayerIDKey, am.PlayerID).
			Str("action", am.Action).
			Str("reason", reason).
			Msg("Action from bus rejected")
		s.reject(msg, tableID, am.PlayerID, reason)
		return
	}
	s.reply(msg, "")
}

func (s *ActionSubscriber) reject(msg *natsgo.Msg, tableID string, playerID string, reason string) {
	if playerID != "" {
		data, err := jsoniter.Marshal(TableMessage{Type: MsgActionRejected, TableID: tableID, Reason: reason})
		if err == nil {
			s.nc.Publish(GetTablePlayerSubject(tableID, playerID), data)
		}
	}
	s.reply(msg, reason)
}

func (s *ActionSubscriber) reply(msg *natsgo.Msg, reason string) {
	if msg.Reply == "" {
		return
	}
	data, err := jsoniter.Marshal(ActionReply{OK: reason == "", Reason: reason})
	if err != nil {
		return
	}
	if err := s.nc.Publish(msg.Reply, data); err != nil {
		subscriberLogger.Warn().Err(err).Str("reply", msg.Reply).Msg("Could not reply to action request")
	}
}
