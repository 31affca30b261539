package nats

import (
	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/tournament"
)

var natsLogger = log.With().Str("logger_name", "nats::publisher").Logger()

// Conn is the part of *natsgo.Conn the adapters use.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb natsgo.MsgHandler) (*natsgo.Subscription, error)
}

const (
	MsgTableState         = "tableState"
	MsgActionRejected     = "actionRejected"
	MsgTournamentUpdate   = "tournamentUpdate"
	MsgTournamentFinished = "tournamentFinished"
	MsgMoved              = "moved"
)

// TableMessage is published on the table subjects.
type TableMessage struct {
	Type     string              `json:"type"`
	TableID  string              `json:"tableId"`
	Snapshot *game.TableSnapshot `json:"snapshot,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

type TournamentMessage struct {
	Type       string              `json:"type"`
	Tournament tournament.Info     `json:"tournament"`
	Results    []tournament.Result `json:"results,omitempty"`
}

// Publisher mirrors table and tournament changes onto the bus. It is a
// game.Listener and a tournament.Notifier.
type Publisher struct {
	nc Conn
}

func NewPublisher(nc Conn) *Publisher {
	return &Publisher{nc: nc}
}

func (p *Publisher) publish(subject string, v interface{}) {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		natsLogger.Error().Err(err).Str("subject", subject).Msg("Could not encode message")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		natsLogger.Error().Err(err).Str("subject", subject).Msg("Could not publish message")
	}
}

func (p *Publisher) OnTableEvent(t *game.Table, ev game.Event) {
	switch ev.Type {
	case game.EventStateChanged, game.EventTableDestroyed:
	default:
		return
	}
	public := t.Snapshot("")
	p.publish(GetTableStateSubject(t.ID()), TableMessage{Type: MsgTableState, TableID: t.ID(), Snapshot: &public})
	for _, id := range t.Occupants() {
		if id.IsBot {
			continue
		}
		private := t.Snapshot(id.ID)
		p.publish(GetTablePlayerSubject(t.ID(), id.ID), TableMessage{Type: MsgTableState, TableID: t.ID(), Snapshot: &private})
	}
}

func (p *Publisher) TournamentUpdated(info tournament.Info) {
	p.publish(GetTournamentUpdateSubject(info.ID), TournamentMessage{Type: MsgTournamentUpdate, Tournament: info})
}

func (p *Publisher) TournamentFinished(info tournament.Info) {
	natsLogger.Info().Str(logging.TournamentIDKey, info.ID).Msg("Publishing tournament results")
	p.publish(GetTournamentFinishedSubject(info.ID), TournamentMessage{
		Type:       MsgTournamentFinished,
		Tournament: info,
		Results:    info.Results,
	})
}

// PlayerMoved tells the player, on their old table subject, where they sit now.
func (p *Publisher) PlayerMoved(tournamentID string, playerID string, fromTable string, toTable string) {
	p.publish(GetTablePlayerSubject(fromTable, playerID), TableMessage{Type: MsgMoved, TableID: toTable})
}
