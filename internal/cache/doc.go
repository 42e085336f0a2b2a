// Package cache keeps a bounded set of open resource handles keyed by name.
//
// Recency is tracked by a recency.Index rather than a linked list: every Get
// or Set stamps the key with a fresh logical timestamp, and eviction pops the
// smallest one. Evicted handles are closed exactly once; Remove hands a handle
// back unclosed.
//
// Maintenance is lazy. Get and Set check whether MaintenanceInterval has
// passed since the last sweep and, if so, sync every handle idle for longer
// than StalenessThreshold before returning. No goroutines are started.
package cache
