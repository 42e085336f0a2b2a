package recency

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned by PopLeastRecent when no key is indexed.
	ErrEmptyIndex = errors.New("recency: index is empty")

	// ErrNotIndexed is returned by Remove for a key the index does not hold.
	ErrNotIndexed = errors.New("recency: key not indexed")
)

// IntegrityError reports that the reverse index and the buckets disagree.
// It means the index itself is broken and must not be retried.
type IntegrityError struct {
	Key       string
	Timestamp uint64
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("recency: integrity violation for key %q at t=%d: %s", e.Key, e.Timestamp, e.Reason)
}
