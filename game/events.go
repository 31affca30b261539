package game

type EventType int

const (
	EventStateChanged EventType = iota
	EventHandStarted
	EventHandEnded
	EventPlayerJoined
	EventPlayerLeft
	EventPlayerBusted
	EventTableDestroyed
)

var eventNames = [...]string{
	"STATE_CHANGED",
	"HAND_STARTED",
	"HAND_ENDED",
	"PLAYER_JOINED",
	"PLAYER_LEFT",
	"PLAYER_BUSTED",
	"TABLE_DESTROYED",
}

func (e EventType) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "UNKNOWN"
	}
	return eventNames[e]
}

type Event struct {
	Type     EventType
	TableID  string
	HandID   string
	Seat     int
	PlayerID string
	// Chips returned to the player on EventPlayerLeft.
	Chips      int64
	Reason     string
	Settlement *Settlement
}

// Listener receives table events after the table lock is released, in the
// order they were produced. Listeners may call back into the table.
type Listener interface {
	OnTableEvent(t *Table, ev Event)
}

type ListenerFunc func(t *Table, ev Event)

func (f ListenerFunc) OnTableEvent(t *Table, ev Event) {
	f(t, ev)
}

// PotResult is one main or side pot after showdown.
type PotResult struct {
	Amount   int64   `json:"amount"`
	Eligible []int   `json:"eligible"`
	Winners  []int   `json:"winners"`
	Shares   []int64 `json:"shares"`
}

type Settlement struct {
	HandID  string `json:"handId"`
	FoldWin bool   `json:"foldWin"`
	// Fallback is set when the evaluator failed and pots went to the first live seat.
	Fallback bool           `json:"fallback"`
	Pots     []PotResult    `json:"pots"`
	Payouts  map[int]int64  `json:"payouts"`
	Hands    map[int]string `json:"hands,omitempty"`
}

func (s *Settlement) Winners() []int {
	if s == nil {
		return nil
	}
	seen := make(map[int]bool)
	var winners []int
	for _, p := range s.Pots {
		for _, w := range p.Winners {
			if !seen[w] {
				seen[w] = true
				winners = append(winners, w)
			}
		}
	}
	return winners
}
