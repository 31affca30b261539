package history

import (
	"sync"

	"github.com/pkg/errors"
)

type MemoryStore struct {
	mu         sync.RWMutex
	hands      map[string]*HandHistory
	tableHands map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hands:      make(map[string]*HandHistory),
		tableHands: make(map[string][]string),
	}
}

func (m *MemoryStore) Save(h *HandHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.hands[h.HandID]; !exists {
		m.tableHands[h.TableID] = append(m.tableHands[h.TableID], h.HandID)
	}
	m.hands[h.HandID] = h.copy()
	return nil
}

func (m *MemoryStore) Load(handID string) (*HandHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hands[handID]
	if !ok {
		return nil, errors.Wrapf(ErrHandNotFound, "hand %s", handID)
	}
	return h.copy(), nil
}

func (m *MemoryStore) TableHands(tableID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.tableHands[tableID]
	ret := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(ret) == limit {
			break
		}
		ret = append(ret, ids[i])
	}
	return ret, nil
}
