package checkpoints

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	bolt "go.etcd.io/bbolt"

	"tablekv/lib/changelog"
)

var offsetsBucket = []byte("offsets")

// Bolt is a Store backed by a single bbolt file. One bucket holds one entry
// per partition: key "<topic>/<partition>", value the offset as 8 big-endian
// bytes. bbolt gives the registry crash-safe single-file durability without
// running a second engine next to the table stores.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt creates or opens the checkpoint file at the given path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint db: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) GetOffset(tp changelog.TopicPartition) (int64, bool, error) {
	var (
		offset int64
		found  bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(offsetsBucket)
		if bkt == nil {
			return nil
		}
		v := bkt.Get(partitionKey(tp))
		if len(v) == 8 {
			offset = int64(binary.BigEndian.Uint64(v))
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("reading offset for %s: %w", tp, err)
	}
	return offset, found, nil
}

func (b *Bolt) SetOffset(tp changelog.TopicPartition, offset int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(offset))
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(offsetsBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return bkt.Put(partitionKey(tp), buf[:])
	})
	if err != nil {
		return fmt.Errorf("recording offset for %s: %w", tp, err)
	}
	return nil
}

func (b *Bolt) Offsets() (map[changelog.TopicPartition]int64, error) {
	result := make(map[changelog.TopicPartition]int64)
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(offsetsBucket)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			tp, ok := parsePartitionKey(k)
			if !ok || len(v) != 8 {
				return nil
			}
			result[tp] = int64(binary.BigEndian.Uint64(v))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing offsets: %w", err)
	}
	return result, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

// partitionKey encodes a partition as "<topic>/<partition>". The slash
// separator cannot appear in a topic name, so the encoding is unambiguous.
func partitionKey(tp changelog.TopicPartition) []byte {
	return []byte(tp.Topic + "/" + strconv.FormatInt(int64(tp.Partition), 10))
}

func parsePartitionKey(k []byte) (changelog.TopicPartition, bool) {
	s := string(k)
	i := strings.LastIndexByte(s, '/')
	if i < 0 {
		return changelog.TopicPartition{}, false
	}
	p, err := strconv.ParseInt(s[i+1:], 10, 32)
	if err != nil {
		return changelog.TopicPartition{}, false
	}
	return changelog.TopicPartition{Topic: s[:i], Partition: int32(p)}, true
}
