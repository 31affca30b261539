package tournament

import (
	"math"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"

	"voyager.com/tableserver/game"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrAlreadyRegistered  = errors.New("player is already registered")
	ErrNotRegistered      = errors.New("player is not registered")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrInvalidTournament  = errors.New("invalid tournament configuration")
)

const (
	StateRegistering = "REGISTERING"
	StateRunning     = "RUNNING"
	StateFinished    = "FINISHED"
	StateCancelled   = "CANCELLED"

	eventStart  = "start"
	eventFinish = "finish"
	eventCancel = "cancel"
)

type BlindLevel struct {
	SmallBlind int64 `json:"smallBlind" yaml:"smallBlind"`
	BigBlind   int64 `json:"bigBlind" yaml:"bigBlind"`
}

type Config struct {
	Name          string        `json:"name"`
	GameType      game.GameType `json:"gameType"`
	BuyIn         int64         `json:"buyIn"`
	MaxPlayers    int           `json:"maxPlayers"`
	StartingChips int64         `json:"startingChips"`
	BlindLevels   []BlindLevel  `json:"blindLevels"`
	// LevelDuration is how long each blind level lasts.
	LevelDuration time.Duration `json:"levelDuration"`
	// PrizeStructure[i] is the share of the prize pool paid to place i+1.
	PrizeStructure []float64 `json:"prizeStructure"`
}

func (c *Config) withDefaults() {
	if c.GameType == "" {
		c.GameType = game.NLH
	}
	if len(c.BlindLevels) == 0 {
		d := game.DefaultTableOptions()
		c.BlindLevels = []BlindLevel{{SmallBlind: d.SmallBlind, BigBlind: d.BigBlind}}
	}
	if c.LevelDuration <= 0 {
		c.LevelDuration = 5 * time.Minute
	}
	if len(c.PrizeStructure) == 0 {
		c.PrizeStructure = []float64{1}
	}
}

func (c Config) validate() error {
	if !c.GameType.Valid() {
		return errors.Wrapf(ErrInvalidTournament, "game type %s", c.GameType)
	}
	if c.MaxPlayers < 2 {
		return errors.Wrapf(ErrInvalidTournament, "max players %d", c.MaxPlayers)
	}
	if c.BuyIn < 0 || c.StartingChips <= 0 {
		return errors.Wrapf(ErrInvalidTournament, "buy-in %d starting chips %d", c.BuyIn, c.StartingChips)
	}
	for i, l := range c.BlindLevels {
		if l.SmallBlind <= 0 || l.BigBlind < l.SmallBlind {
			return errors.Wrapf(ErrInvalidTournament, "blind level %d: %d/%d", i, l.SmallBlind, l.BigBlind)
		}
	}
	sum := 0.0
	for i, f := range c.PrizeStructure {
		if f < 0 {
			return errors.Wrapf(ErrInvalidTournament, "prize fraction %d is negative", i)
		}
		sum += f
	}
	if sum > 1+1e-9 {
		return errors.Wrapf(ErrInvalidTournament, "prize fractions sum to %.3f", sum)
	}
	return nil
}

// Result is one final standing. Place 1 is the winner.
type Result struct {
	Place    int    `json:"place"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Prize    int64  `json:"prize"`
}

// Info is a read-only copy of a tournament.
type Info struct {
	ID                string          `json:"id"`
	State             string          `json:"state"`
	Config            Config          `json:"config"`
	Registered        []game.Identity `json:"registered"`
	Tables            []string        `json:"tables"`
	CurrentBlindLevel int             `json:"currentBlindLevel"`
	Remaining         int             `json:"remaining"`
	PrizePool         int64           `json:"prizePool"`
	// FinishOrder lists players in the order they were eliminated, the winner last.
	FinishOrder []string `json:"finishOrder"`
	Results     []Result `json:"results,omitempty"`
}

type Tournament struct {
	id  string
	cfg Config
	sm  *fsm.FSM

	registered []game.Identity
	ids        mapset.Set
	tables     []string
	level      int

	finishOrder []game.Identity
	results     []Result
	// rebalance is set when a table had to finish its hand before it could be drained.
	rebalance bool
}

func newTournament(id string, cfg Config) *Tournament {
	return &Tournament{
		id:  id,
		cfg: cfg,
		ids: mapset.NewSet(),
		sm: fsm.NewFSM(
			StateRegistering,
			fsm.Events{
				{Name: eventStart, Src: []string{StateRegistering}, Dst: StateRunning},
				{Name: eventFinish, Src: []string{StateRunning}, Dst: StateFinished},
				{Name: eventCancel, Src: []string{StateRegistering}, Dst: StateCancelled},
			},
			fsm.Callbacks{},
		),
	}
}

func (tr *Tournament) remaining() int {
	if !tr.sm.Is(StateRunning) && !tr.sm.Is(StateFinished) {
		return len(tr.registered)
	}
	return len(tr.registered) - len(tr.finishOrder)
}

func (tr *Tournament) prizePool() int64 {
	return tr.cfg.BuyIn * int64(len(tr.registered))
}

func (tr *Tournament) hasTable(tableID string) bool {
	for _, id := range tr.tables {
		if id == tableID {
			return true
		}
	}
	return false
}

func (tr *Tournament) dropTable(tableID string) {
	for i, id := range tr.tables {
		if id == tableID {
			tr.tables = append(tr.tables[:i], tr.tables[i+1:]...)
			return
		}
	}
}

func (tr *Tournament) blinds() BlindLevel {
	return tr.cfg.BlindLevels[tr.level]
}

func (tr *Tournament) info() Info {
	info := Info{
		ID:                tr.id,
		State:             tr.sm.Current(),
		Config:            tr.cfg,
		Registered:        append([]game.Identity(nil), tr.registered...),
		Tables:            append([]string(nil), tr.tables...),
		CurrentBlindLevel: tr.level,
		Remaining:         tr.remaining(),
		PrizePool:         tr.prizePool(),
		Results:           append([]Result(nil), tr.results...),
	}
	info.FinishOrder = make([]string, len(tr.finishOrder))
	for i, p := range tr.finishOrder {
		info.FinishOrder[i] = p.ID
	}
	return info
}

// computePrizes pays PrizeStructure[i] of the pool to place i+1. What rounding
// and unassigned fractions leave goes to the winner.
func computePrizes(pool int64, structure []float64, standings []game.Identity) []Result {
	results := make([]Result, len(standings))
	var paid int64
	for i, p := range standings {
		results[i] = Result{Place: i + 1, PlayerID: p.ID, Name: p.Name}
		if i < len(structure) {
			results[i].Prize = int64(math.Floor(float64(pool)*structure[i] + 1e-6))
			paid += results[i].Prize
		}
	}
	if len(results) > 0 {
		results[0].Prize += pool - paid
	}
	return results
}
