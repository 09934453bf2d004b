package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned when the cache was closed
	ErrCacheClosed = errors.New("cache is closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the L1 memory cache
	LevelMemory Level = iota

	// LevelDisk is the L2 persistent disk cache
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds cache metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 without lookups
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Config holds configuration for an asset store
type Config struct {
	MemoryCapacity   int64  // Bytes
	DiskCapacity     int64  // Bytes
	DiskPath         string // Directory for cache files, empty disables L2
	CompressionLevel int    // zstd level (1-22), 0 disables compression
	TTL              time.Duration
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,  // 64MB
		DiskCapacity:     512 * 1024 * 1024, // 512MB
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
	}
}

// Cache defines the operations shared by both levels
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Size() int64
	Stats() Stats
}

// KeyFor derives a stable cache key from an asset URL.
func KeyFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
