// Package recency orders cache keys by when they were last touched.
//
// An Index hands out a strictly increasing logical timestamp on every touch and
// files the key under that timestamp in an OrderedMultimap. The least recently
// used key is the one filed under the smallest timestamp. A reverse map from key
// to timestamp lets a key be moved or removed without scanning.
//
// Index is not safe for concurrent use.
package recency

import (
	"fmt"
	"iter"
	"time"
)

// Index tracks the recency of a set of string keys.
type Index struct {
	clock   uint64
	buckets OrderedMultimap
	stamps  map[string]uint64
}

// New returns an empty index backed by a treap.
func New() *Index {
	return NewWithMap(NewTreap(uint64(time.Now().UnixNano())))
}

// NewWithMap returns an empty index backed by m. m must be empty.
func NewWithMap(m OrderedMultimap) *Index {
	return &Index{
		buckets: m,
		stamps:  make(map[string]uint64),
	}
}

// Touch marks key as the most recently used and returns its new timestamp.
// An *IntegrityError means the index is corrupt.
func (x *Index) Touch(key string) (uint64, error) {
	x.clock++
	t := x.clock

	if old, ok := x.stamps[key]; ok {
		if err := x.unfile(key, old); err != nil {
			return 0, err
		}
	}

	b, ok := x.buckets.Get(t)
	if !ok {
		b = &Bucket{}
		x.buckets.Put(t, b)
	}
	b.push(key)
	x.stamps[key] = t
	return t, nil
}

// PopLeastRecent removes and returns the key with the smallest timestamp.
// Within a bucket the last pushed key goes first.
func (x *Index) PopLeastRecent() (string, error) {
	ts, b, ok := x.buckets.Min()
	if !ok {
		return "", ErrEmptyIndex
	}
	key, ok := b.pop()
	if !ok {
		x.buckets.Delete(ts)
		return "", &IntegrityError{Timestamp: ts, Reason: "empty bucket left in index"}
	}
	if b.Len() == 0 {
		x.buckets.Delete(ts)
	}
	delete(x.stamps, key)
	return key, nil
}

// Remove drops key from the index.
func (x *Index) Remove(key string) error {
	ts, ok := x.stamps[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotIndexed, key)
	}
	if err := x.unfile(key, ts); err != nil {
		return err
	}
	delete(x.stamps, key)
	return nil
}

// Lookup returns the timestamp key was last touched at.
func (x *Index) Lookup(key string) (uint64, bool) {
	ts, ok := x.stamps[key]
	return ts, ok
}

// Len returns the number of indexed keys.
func (x *Index) Len() int { return len(x.stamps) }

// Clock returns the last timestamp handed out.
func (x *Index) Clock() uint64 { return x.clock }

// Ascend yields (timestamp, key) pairs from least to most recently touched.
// The pairs are captured when Ascend is called, so later mutations are not
// observed and the sequence can be ranged over more than once.
func (x *Index) Ascend() iter.Seq2[uint64, string] {
	snap := x.snapshot(true)
	return func(yield func(uint64, string) bool) {
		for _, p := range snap {
			if !yield(p.ts, p.key) {
				return
			}
		}
	}
}

// Descend is Ascend from most to least recently touched.
func (x *Index) Descend() iter.Seq2[uint64, string] {
	snap := x.snapshot(false)
	return func(yield func(uint64, string) bool) {
		for _, p := range snap {
			if !yield(p.ts, p.key) {
				return
			}
		}
	}
}

// Verify checks that every indexed key sits in exactly the bucket its
// timestamp names and that no bucket is empty.
func (x *Index) Verify() error {
	seen := make(map[string]uint64, len(x.stamps))
	var err error
	x.buckets.Ascend(func(ts uint64, b *Bucket) bool {
		if b.Len() == 0 {
			err = &IntegrityError{Timestamp: ts, Reason: "empty bucket left in index"}
			return false
		}
		for _, k := range b.keys {
			if prev, dup := seen[k]; dup {
				err = &IntegrityError{Key: k, Timestamp: ts, Reason: fmt.Sprintf("also filed at t=%d", prev)}
				return false
			}
			seen[k] = ts
			if x.stamps[k] != ts {
				err = &IntegrityError{Key: k, Timestamp: ts, Reason: "reverse index disagrees with bucket"}
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	if len(seen) != len(x.stamps) {
		return &IntegrityError{Reason: fmt.Sprintf("%d keys in buckets, %d in reverse index", len(seen), len(x.stamps))}
	}
	return nil
}

// unfile takes key out of the bucket at ts, dropping the bucket once empty.
func (x *Index) unfile(key string, ts uint64) error {
	b, ok := x.buckets.Get(ts)
	if !ok {
		return &IntegrityError{Key: key, Timestamp: ts, Reason: "bucket missing"}
	}
	if !b.remove(key) {
		return &IntegrityError{Key: key, Timestamp: ts, Reason: "key missing from bucket"}
	}
	if b.Len() == 0 {
		x.buckets.Delete(ts)
	}
	return nil
}

type stamped struct {
	ts  uint64
	key string
}

func (x *Index) snapshot(ascending bool) []stamped {
	out := make([]stamped, 0, len(x.stamps))
	if ascending {
		x.buckets.Ascend(func(ts uint64, b *Bucket) bool {
			// pop order: last pushed is treated as the oldest
			for i := len(b.keys) - 1; i >= 0; i-- {
				out = append(out, stamped{ts: ts, key: b.keys[i]})
			}
			return true
		})
		return out
	}
	x.buckets.Descend(func(ts uint64, b *Bucket) bool {
		for _, k := range b.keys {
			out = append(out, stamped{ts: ts, key: k})
		}
		return true
	})
	return out
}
