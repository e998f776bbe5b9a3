package store

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"github.com/go-mqtt/session/internal/wire"
)

var storeBucket = []byte("mqtt-store")

// BoltStore is a file-backed Store for processes that must survive a
// restart without losing in-flight QoS>=1 state. Grounded on
// mochi-mqtt-server's use of go.etcd.io/bbolt for its persistent packet
// store. Stored packet bytes are zstd-compressed (klauspost/compress),
// grounded on the same broker's and life-stream-dev's use of that
// library for wire payload compression.
type BoltStore struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path
// and prepares the single bucket this store uses.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(storeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, enc: enc, dec: dec}, nil
}

func idKey(id uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], id)
	return b[:]
}

func (s *BoltStore) Put(p wire.Packet) error {
	raw, err := marshalPacket(p)
	if err != nil {
		return err
	}
	compressed := s.enc.EncodeAll(raw, nil)
	id := p.PacketIdentifier()
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(storeBucket).Put(idKey(id), compressed)
	})
}

func (s *BoltStore) Get(id uint16) (wire.Packet, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(storeBucket).Get(idKey(id))
		if v == nil {
			return ErrNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return wire.Packet{}, err
	}
	decompressed, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return wire.Packet{}, err
	}
	return unmarshalPacket(decompressed)
}

func (s *BoltStore) Del(id uint16) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(storeBucket).Delete(idKey(id))
	})
}

func (s *BoltStore) snapshotOrder() ([]uint16, error) {
	var ids []uint16
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(storeBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, binary.BigEndian.Uint16(k))
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) CreateStream() (Sequence, error) {
	return newMemSequence(s.snapshotOrder, s.Get)
}

func (s *BoltStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
