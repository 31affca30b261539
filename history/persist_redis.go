package history

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxTableHands = 1000

type RedisStore struct {
	rdclient *redis.Client
}

func NewRedisStore(redisURL string, redisPW string, redisDB int) *RedisStore {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisStore{
		rdclient: rdclient,
	}
}

func handKey(handID string) string {
	return fmt.Sprintf("handhistory|%s", handID)
}

func tableHandsKey(tableID string) string {
	return fmt.Sprintf("table|%s|hands", tableID)
}

func (r *RedisStore) Save(h *HandHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return errors.Wrap(err, "encoding hand history")
	}
	ctx := context.Background()
	pipe := r.rdclient.TxPipeline()
	pipe.Set(ctx, handKey(h.HandID), data, 0)
	pipe.LPush(ctx, tableHandsKey(h.TableID), h.HandID)
	pipe.LTrim(ctx, tableHandsKey(h.TableID), 0, maxTableHands-1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "saving hand %s to redis", h.HandID)
	}
	return nil
}

func (r *RedisStore) Load(handID string) (*HandHistory, error) {
	data, err := r.rdclient.Get(context.Background(), handKey(handID)).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(ErrHandNotFound, "hand %s", handID)
	} else if err != nil {
		return nil, err
	}
	h := &HandHistory{}
	err = json.Unmarshal([]byte(data), h)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding hand %s", handID)
	}
	return h, nil
}

func (r *RedisStore) TableHands(tableID string, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.rdclient.LRange(context.Background(), tableHandsKey(tableID), 0, stop).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "listing hands of table %s", tableID)
	}
	return ids, nil
}

func (r *RedisStore) Close() error {
	return r.rdclient.Close()
}
