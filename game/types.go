package game

// NumSeats is the fixed number of seats at every table.
const NumSeats = 6

type Phase int

const (
	Lobby Phase = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
)

var phaseNames = [...]string{"LOBBY", "PREFLOP", "FLOP", "TURN", "RIVER", "SHOWDOWN"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "UNKNOWN"
	}
	return phaseNames[p]
}

// Betting reports whether a betting round can be in progress.
func (p Phase) Betting() bool {
	return p >= PreFlop && p <= River
}

func (p Phase) communityCards() int {
	switch p {
	case Flop:
		return 3
	case Turn:
		return 4
	case River, Showdown:
		return 5
	}
	return 0
}

type GameType string

const (
	NLH GameType = "NLH"
	PLO GameType = "PLO"
)

func (g GameType) Valid() bool {
	return g == NLH || g == PLO
}

func (g GameType) holeCards() int {
	if g == PLO {
		return 4
	}
	return 2
}

type ActionType string

const (
	Fold  ActionType = "fold"
	Call  ActionType = "call"
	Raise ActionType = "raise"
	Check ActionType = "check"
)

func ParseAction(s string) (ActionType, bool) {
	switch ActionType(s) {
	case Fold, Call, Raise, Check:
		return ActionType(s), true
	}
	return "", false
}

type PlayerStatus string

const (
	Playing    PlayerStatus = "PLAYING"
	Away       PlayerStatus = "AWAY"
	SittingOut PlayerStatus = "SITTING_OUT"
)

// Identity is supplied by the caller; authentication happens outside the engine.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"isBot"`
}

// Decision is what a bot policy returns for its turn. Amount is the raise-to total.
type Decision struct {
	Action ActionType
	Amount int64
}

// Decider picks actions for bot seats.
type Decider interface {
	Decide(view DecisionView) Decision
}
