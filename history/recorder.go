package history

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var recorderLogger = log.With().Str("logger_name", "history::recorder").Logger()

type openHand struct {
	hand   *HandHistory
	closed bool
}

// Recorder keeps the append-only log of every hand in progress and hands it to
// the store when the hand ends.
type Recorder struct {
	mu    sync.Mutex
	store Store
	open  map[string]*openHand
	stats map[string]*PlayerStats
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Recorder{
		store: store,
		open:  make(map[string]*openHand),
		stats: make(map[string]*PlayerStats),
		now:   time.Now,
	}
}

func (r *Recorder) Open(h HandHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[h.HandID]; ok {
		return errors.Wrapf(ErrHandExists, "hand %s", h.HandID)
	}
	if h.StartedAt.IsZero() {
		h.StartedAt = r.now()
	}
	r.open[h.HandID] = &openHand{hand: h.copy()}
	return nil
}

func (r *Recorder) Append(handID string, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oh, ok := r.open[handID]
	if !ok {
		return errors.Wrapf(ErrHandNotFound, "hand %s", handID)
	}
	if oh.closed {
		return errors.Wrapf(ErrHandClosed, "hand %s", handID)
	}
	e.Seq = len(oh.hand.Entries) + 1
	if e.At.IsZero() {
		e.At = r.now()
	}
	oh.hand.Entries = append(oh.hand.Entries, e)
	if e.Type == EntryCommunity {
		oh.hand.Board = append(oh.hand.Board, e.Cards...)
	}
	return nil
}

// Close persists the hand and folds it into player stats. A hand whose save
// fails stays readable from memory.
func (r *Recorder) Close(handID string) (*HandHistory, error) {
	r.mu.Lock()
	oh, ok := r.open[handID]
	if !ok {
		r.mu.Unlock()
		return nil, errors.Wrapf(ErrHandNotFound, "hand %s", handID)
	}
	if oh.closed {
		r.mu.Unlock()
		return nil, errors.Wrapf(ErrHandClosed, "hand %s", handID)
	}
	oh.closed = true
	oh.hand.EndedAt = r.now()
	r.updateStats(oh.hand)
	h := oh.hand.copy()
	r.mu.Unlock()

	if err := r.store.Save(h); err != nil {
		recorderLogger.Error().
			Str("handID", handID).
			Err(err).
			Msg("Could not persist hand history. Keeping it in memory")
		return h, errors.Wrapf(err, "saving hand %s", handID)
	}

	r.mu.Lock()
	delete(r.open, handID)
	r.mu.Unlock()
	return h, nil
}

func (r *Recorder) Get(handID string) (*HandHistory, error) {
	r.mu.Lock()
	if oh, ok := r.open[handID]; ok {
		h := oh.hand.copy()
		r.mu.Unlock()
		return h, nil
	}
	r.mu.Unlock()
	return r.store.Load(handID)
}

func (r *Recorder) TableHands(tableID string, limit int) ([]string, error) {
	return r.store.TableHands(tableID, limit)
}

func (r *Recorder) Stats(playerID string) PlayerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[playerID]
	if !ok {
		return PlayerStats{PlayerID: playerID}
	}
	ret := *s
	ret.computePercentages()
	return ret
}

func (r *Recorder) statsFor(playerID string) *PlayerStats {
	s, ok := r.stats[playerID]
	if !ok {
		s = &PlayerStats{PlayerID: playerID}
		r.stats[playerID] = s
	}
	return s
}
