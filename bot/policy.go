package bot

import (
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/logging"
	"voyager.com/tableserver/poker"
	"voyager.com/tableserver/util/random"
)

var botLogger = log.With().Str("logger_name", "bot::policy").Logger()

type Config struct {
	// RaiseMultiple times the big blind is the preflop open size.
	RaiseMultiple int64
	// PreflopRaiseStrength is the hole card strength needed to open.
	PreflopRaiseStrength float64
	// ValueBetStrength is the made hand strength needed to bet or raise postflop.
	ValueBetStrength float64
}

func DefaultConfig() Config {
	return Config{
		RaiseMultiple:        3,
		PreflopRaiseStrength: 0.7,
		ValueBetStrength:     0.8,
	}
}

// Policy is a coarse heuristic player. It is safe for concurrent use.
type Policy struct {
	cfg  Config
	eval poker.HandEvaluator

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPolicy creates a policy. A nil source seeds from crypto/rand.
func NewPolicy(cfg Config, eval poker.HandEvaluator, source rand.Source) *Policy {
	if source == nil {
		source = random.NewSource()
	}
	if eval == nil {
		eval = poker.NewEvaluator()
	}
	if cfg.RaiseMultiple <= 0 {
		cfg.RaiseMultiple = DefaultConfig().RaiseMultiple
	}
	return &Policy{cfg: cfg, eval: eval, rnd: rand.New(source)}
}

func (p *Policy) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Float64()
}

// Decide picks an action the table will accept for the view.
func (p *Policy) Decide(v game.DecisionView) game.Decision {
	strength := p.strength(v)
	d := p.decide(v, strength)
	botLogger.Debug().
		Str(logging.TableIDKey, v.TableID).
		Int(logging.SeatNumKey, v.Seat).
		Str("phase", v.Phase.String()).
		Float64("strength", strength).
		Str("action", string(d.Action)).
		Int64("amount", d.Amount).
		Msg("Bot decided")
	return d
}

func (p *Policy) decide(v game.DecisionView, strength float64) game.Decision {
	if v.ToCall == 0 {
		if v.Phase != game.PreFlop && strength >= p.cfg.ValueBetStrength && v.CanRaise {
			return raiseTo(v, v.MinRaiseTo)
		}
		return game.Decision{Action: game.Check}
	}

	if v.Phase == game.PreFlop && strength >= p.cfg.PreflopRaiseStrength && v.CanRaise && v.TableBet <= v.BigBlind {
		return raiseTo(v, p.cfg.RaiseMultiple*v.BigBlind)
	}
	if v.Phase != game.PreFlop && strength >= p.cfg.ValueBetStrength && v.CanRaise && p.roll() < 0.5 {
		return raiseTo(v, v.MinRaiseTo)
	}

	callProb := 0.35 + 0.6*strength
	if strength < 0.5 && v.ToCall*2 > v.Pot {
		// weak hand facing a big bet
		callProb -= 0.25
	}
	if p.roll() < callProb {
		return game.Decision{Action: game.Call}
	}
	return game.Decision{Action: game.Fold}
}

// raiseTo clamps amount into the legal raise range.
func raiseTo(v game.DecisionView, amount int64) game.Decision {
	if amount < v.MinRaiseTo {
		amount = v.MinRaiseTo
	}
	if amount > v.MaxRaiseTo {
		amount = v.MaxRaiseTo
	}
	return game.Decision{Action: game.Raise, Amount: amount}
}

func (p *Policy) strength(v game.DecisionView) float64 {
	if v.Phase == game.PreFlop || len(v.Community) < 3 {
		return preflopStrength(v.Hole)
	}
	var hand poker.RankedHand
	var err error
	if v.GameType == game.PLO {
		hand, err = p.eval.SolveOmaha(v.Hole, v.Community)
	} else {
		cards := append(append([]poker.Card(nil), v.Hole...), v.Community...)
		hand, err = p.eval.Solve(cards)
	}
	if err != nil {
		botLogger.Warn().Err(err).Str(logging.TableIDKey, v.TableID).Msg("Could not evaluate bot hand")
		return 0.3
	}
	return categoryStrength[hand.Category]
}

var categoryStrength = map[poker.HandCategory]float64{
	poker.HighCard:      0.15,
	poker.OnePair:       0.4,
	poker.TwoPair:       0.6,
	poker.ThreeOfAKind:  0.7,
	poker.Straight:      0.8,
	poker.Flush:         0.85,
	poker.FullHouse:     0.9,
	poker.FourOfAKind:   0.97,
	poker.StraightFlush: 1,
}

// preflopStrength scores hole cards in [0, 1]. Omaha hands score their best pair
// of hole cards, slightly discounted.
func preflopStrength(hole []poker.Card) float64 {
	if len(hole) < 2 {
		return 0
	}
	if len(hole) == 2 {
		return twoCardStrength(hole[0], hole[1])
	}
	best := 0.0
	for i := 0; i < len(hole); i++ {
		for j := i + 1; j < len(hole); j++ {
			if s := twoCardStrength(hole[i], hole[j]); s > best {
				best = s
			}
		}
	}
	return best * 0.9
}

func twoCardStrength(a, b poker.Card) float64 {
	hi, lo := float64(a.Rank()), float64(b.Rank())
	if lo > hi {
		hi, lo = lo, hi
	}
	top := float64(poker.NumRanks - 1)
	if hi == lo {
		return 0.5 + 0.5*hi/top
	}
	s := 0.6 * (hi + lo) / (2 * top)
	if a.Suit() == b.Suit() {
		s += 0.05
	}
	if hi-lo == 1 {
		s += 0.03
	}
	return s
}
