package gateway

import (
	"voyager.com/tableserver/game"
	"voyager.com/tableserver/tournament"
)

// inbound
const (
	MsgJoin    = "join"
	MsgAction  = "action"
	MsgRestart = "restart"
	MsgChat    = "chat"
	MsgLeave   = "leave"
	MsgAway    = "away"
	MsgBack    = "back"
)

// outbound
const (
	MsgTableState         = "tableState"
	MsgErrorJoining       = "errorJoining"
	MsgActionRejected     = "actionRejected"
	MsgBalanceUpdate      = "balanceUpdate"
	MsgTournamentUpdate   = "tournamentUpdate"
	MsgTournamentFinished = "tournamentFinished"
	MsgMoved              = "moved"
)

const maxChatLength = 500

type ClientMessage struct {
	Type    string             `json:"type"`
	TableID string             `json:"tableId,omitempty"`
	BuyIn   int64              `json:"buyIn,omitempty"`
	Options *game.TableOptions `json:"options,omitempty"`
	Action  string             `json:"action,omitempty"`
	// Amount is the raise-to total.
	Amount int64  `json:"amount,omitempty"`
	Text   string `json:"text,omitempty"`
}

type ServerMessage struct {
	Type       string              `json:"type"`
	TableID    string              `json:"tableId,omitempty"`
	Snapshot   *game.TableSnapshot `json:"snapshot,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Balance    *int64              `json:"balance,omitempty"`
	From       string              `json:"from,omitempty"`
	Text       string              `json:"text,omitempty"`
	Tournament *tournament.Info    `json:"tournament,omitempty"`
	Results    []tournament.Result `json:"results,omitempty"`
}
