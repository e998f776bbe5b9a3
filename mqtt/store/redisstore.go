package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/go-mqtt/session/internal/wire"
)

// RedisStore is a distributed Store backed by Redis, for a client process
// pool that must share in-flight session state across instances.
// Grounded on bromq-dev-broker's use of github.com/redis/go-redis/v9.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	orderKey string
	ctx    context.Context
}

// NewRedisStore wraps an existing *redis.Client. keyPrefix namespaces this
// store's keys so multiple stores (incoming/outgoing, multiple sessions)
// can share one Redis instance.
func NewRedisStore(rdb *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		rdb:      rdb,
		prefix:   keyPrefix + ":pkt:",
		orderKey: keyPrefix + ":order",
		ctx:      context.Background(),
	}
}

func (s *RedisStore) key(id uint16) string {
	return s.prefix + strconv.Itoa(int(id))
}

func (s *RedisStore) Put(p wire.Packet) error {
	raw, err := marshalPacket(p)
	if err != nil {
		return err
	}
	id := p.PacketIdentifier()
	k := s.key(id)
	existed, err := s.rdb.Exists(s.ctx, k).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(s.ctx, k, raw, 0)
	if existed == 0 {
		pipe.RPush(s.ctx, s.orderKey, id)
	}
	_, err = pipe.Exec(s.ctx)
	return err
}

func (s *RedisStore) Get(id uint16) (wire.Packet, error) {
	raw, err := s.rdb.Get(s.ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return wire.Packet{}, ErrNotFound
	}
	if err != nil {
		return wire.Packet{}, err
	}
	return unmarshalPacket(raw)
}

func (s *RedisStore) Del(id uint16) error {
	return s.rdb.Del(s.ctx, s.key(id)).Err()
}

func (s *RedisStore) snapshotOrder() ([]uint16, error) {
	vals, err := s.rdb.LRange(s.ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint16, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		ids = append(ids, uint16(n))
	}
	return ids, nil
}

func (s *RedisStore) CreateStream() (Sequence, error) {
	return newMemSequence(s.snapshotOrder, s.Get)
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
