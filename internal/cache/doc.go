// Package cache keeps downloaded audio assets so a story replayed by the
// content server does not download its clips again. It layers an in-memory
// LRU (L1) over a zstd-compressed disk cache (L2) with TTL pruning.
package cache
