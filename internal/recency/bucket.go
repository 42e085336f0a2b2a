package recency

// Bucket is a stack of keys that share one timestamp.
type Bucket struct {
	keys []string
}

func (b *Bucket) Len() int { return len(b.keys) }

// Keys returns a copy of the bucket contents in insertion order.
func (b *Bucket) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

func (b *Bucket) push(key string) {
	b.keys = append(b.keys, key)
}

// pop removes and returns the most recently pushed key.
func (b *Bucket) pop() (string, bool) {
	if len(b.keys) == 0 {
		return "", false
	}
	last := len(b.keys) - 1
	key := b.keys[last]
	b.keys[last] = ""
	b.keys = b.keys[:last]
	return key, true
}

func (b *Bucket) remove(key string) bool {
	for i, k := range b.keys {
		if k == key {
			copy(b.keys[i:], b.keys[i+1:])
			b.keys[len(b.keys)-1] = ""
			b.keys = b.keys[:len(b.keys)-1]
			return true
		}
	}
	return false
}
