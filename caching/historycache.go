package caching

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"voyager.com/tableserver/history"
)

// HistoryCache is a read-through LRU cache in front of a hand history store.
type HistoryCache struct {
	store history.Store
	hands *lru.Cache
}

func NewHistoryCache(store history.Store, size int) (*HistoryCache, error) {
	if size <= 0 {
		size = 1000
	}
	hands, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to initialize hand history cache")
	}
	return &HistoryCache{
		store: store,
		hands: hands,
	}, nil
}

func (c *HistoryCache) Save(h *history.HandHistory) error {
	if err := c.store.Save(h); err != nil {
		c.hands.Remove(h.HandID)
		return err
	}
	c.hands.Add(h.HandID, h)
	return nil
}

func (c *HistoryCache) Load(handID string) (*history.HandHistory, error) {
	if v, exists := c.hands.Get(handID); exists {
		return v.(*history.HandHistory), nil
	}
	h, err := c.store.Load(handID)
	if err != nil {
		return nil, err
	}
	c.hands.Add(handID, h)
	return h, nil
}

func (c *HistoryCache) TableHands(tableID string, limit int) ([]string, error) {
	return c.store.TableHands(tableID, limit)
}

func (c *HistoryCache) Len() int {
	return c.hands.Len()
}
