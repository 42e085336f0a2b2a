package recency

import "math/rand/v2"

// OrderedMultimap maps logical timestamps to buckets of keys, ordered by timestamp.
// Implementations must give O(log n) Put, Delete, Get and Min.
type OrderedMultimap interface {
	Get(ts uint64) (*Bucket, bool)
	Put(ts uint64, b *Bucket)
	Delete(ts uint64) bool
	Min() (uint64, *Bucket, bool)
	Ascend(fn func(ts uint64, b *Bucket) bool)
	Descend(fn func(ts uint64, b *Bucket) bool)
	Len() int
}

type treapNode struct {
	ts          uint64
	bucket      *Bucket
	prio        uint64
	left, right *treapNode
}

// Treap is a randomized balanced search tree keyed by timestamp.
// Node priorities form a max-heap, which keeps the expected depth logarithmic.
type Treap struct {
	root *treapNode
	size int
	rng  *rand.Rand
}

// NewTreap returns an empty treap whose priorities are drawn from a PCG source
// seeded with seed. Equal seeds give equal tree shapes.
func NewTreap(seed uint64) *Treap {
	return &Treap{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (t *Treap) Len() int { return t.size }

func (t *Treap) Get(ts uint64) (*Bucket, bool) {
	n := t.root
	for n != nil {
		switch {
		case ts < n.ts:
			n = n.left
		case ts > n.ts:
			n = n.right
		default:
			return n.bucket, true
		}
	}
	return nil, false
}

// Put stores b under ts, replacing any bucket already there.
func (t *Treap) Put(ts uint64, b *Bucket) {
	if n := t.find(ts); n != nil {
		n.bucket = b
		return
	}
	left, right := split(t.root, ts)
	n := &treapNode{ts: ts, bucket: b, prio: t.rng.Uint64()}
	t.root = merge(merge(left, n), right)
	t.size++
}

func (t *Treap) Delete(ts uint64) bool {
	var deleted bool
	t.root = remove(t.root, ts, &deleted)
	if deleted {
		t.size--
	}
	return deleted
}

func (t *Treap) Min() (uint64, *Bucket, bool) {
	n := t.root
	if n == nil {
		return 0, nil, false
	}
	for n.left != nil {
		n = n.left
	}
	return n.ts, n.bucket, true
}

// Ascend calls fn for every bucket in increasing timestamp order until fn returns false.
func (t *Treap) Ascend(fn func(ts uint64, b *Bucket) bool) {
	var stack []*treapNode
	n := t.root
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n.ts, n.bucket) {
			return
		}
		n = n.right
	}
}

// Descend is Ascend in decreasing timestamp order.
func (t *Treap) Descend(fn func(ts uint64, b *Bucket) bool) {
	var stack []*treapNode
	n := t.root
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, n)
			n = n.right
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n.ts, n.bucket) {
			return
		}
		n = n.left
	}
}

func (t *Treap) find(ts uint64) *treapNode {
	n := t.root
	for n != nil && n.ts != ts {
		if ts < n.ts {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// split partitions n into nodes with ts < key and nodes with ts >= key.
func split(n *treapNode, key uint64) (*treapNode, *treapNode) {
	if n == nil {
		return nil, nil
	}
	if n.ts < key {
		l, r := split(n.right, key)
		n.right = l
		return n, r
	}
	l, r := split(n.left, key)
	n.left = r
	return l, n
}

// merge joins two treaps where every ts in a is smaller than every ts in b.
func merge(a, b *treapNode) *treapNode {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.prio > b.prio {
		a.right = merge(a.right, b)
		return a
	}
	b.left = merge(a, b.left)
	return b
}

func remove(n *treapNode, ts uint64, deleted *bool) *treapNode {
	if n == nil {
		return nil
	}
	switch {
	case ts < n.ts:
		n.left = remove(n.left, ts, deleted)
	case ts > n.ts:
		n.right = remove(n.right, ts, deleted)
	default:
		*deleted = true
		return merge(n.left, n.right)
	}
	return n
}

var _ OrderedMultimap = (*Treap)(nil)
