package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store coordinates the memory and disk levels for downloaded assets.
// Values found on disk are promoted to memory. Writes go to both levels.
type Store struct {
	memory *MemoryCache
	disk   *DiskCache // nil when no DiskPath is configured
	config Config

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats StoreStats
}

// StoreStats summarises both cache levels.
type StoreStats struct {
	Memory     Stats
	Disk       Stats
	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Promotions int64
	Pruned     int64
}

// NewStore creates an asset store. A zero DiskPath keeps the store
// memory-only.
func NewStore(config Config) (*Store, error) {
	s := &Store{
		memory:      NewMemoryCache(config.MemoryCapacity),
		config:      config,
		cleanupStop: make(chan struct{}),
	}

	if config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		s.disk = disk
	}

	if config.TTL > 0 {
		s.startCleanup(cleanupInterval(config.TTL))
	}
	return s, nil
}

// Get returns the cached bytes for an asset URL.
func (s *Store) Get(url string) ([]byte, bool) {
	key := KeyFor(url)

	if data, ok := s.memory.Get(key); ok {
		s.mu.Lock()
		s.stats.MemoryHits++
		s.mu.Unlock()
		return data, true
	}

	if s.disk != nil {
		if data, ok := s.disk.Get(key); ok {
			promoted := s.memory.Put(key, data) == nil
			s.mu.Lock()
			s.stats.DiskHits++
			if promoted {
				s.stats.Promotions++
			}
			s.mu.Unlock()
			return data, true
		}
	}

	s.mu.Lock()
	s.stats.Misses++
	s.mu.Unlock()
	return nil, false
}

// Put stores asset bytes under url. An item too large for one level is
// still kept by the other.
func (s *Store) Put(url string, data []byte) error {
	key := KeyFor(url)

	memErr := s.memory.Put(key, data)
	if memErr != nil && !errors.Is(memErr, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", memErr)
	}
	if s.disk == nil {
		return memErr
	}

	diskErr := s.disk.Put(key, data)
	if diskErr == nil || (errors.Is(diskErr, ErrItemTooLarge) && memErr == nil) {
		return nil
	}
	return fmt.Errorf("disk cache: %w", diskErr)
}

// Prune drops entries older than the configured TTL from both levels.
func (s *Store) Prune() int {
	if s.config.TTL <= 0 {
		return 0
	}
	removed := s.memory.Prune(s.config.TTL)
	if s.disk != nil {
		removed += s.disk.RemoveOlderThan(time.Now().Add(-s.config.TTL))
	}

	s.mu.Lock()
	s.stats.Pruned += int64(removed)
	s.mu.Unlock()
	return removed
}

// Clear empties both levels.
func (s *Store) Clear() error {
	if err := s.memory.Clear(); err != nil {
		return err
	}
	if s.disk != nil {
		return s.disk.Clear()
	}
	return nil
}

// Stats returns a snapshot of both levels.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()

	stats.Memory = s.memory.Stats()
	if s.disk != nil {
		stats.Disk = s.disk.Stats()
	}
	return stats
}

// Close stops the cleanup routine and persists the disk index.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.cleanupStop)
		s.cleanupWg.Wait()
		if s.disk != nil {
			err = s.disk.Close()
		}
	})
	return err
}

func (s *Store) startCleanup(interval time.Duration) {
	s.cleanupWg.Add(1)
	go func() {
		defer s.cleanupWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Prune()
			case <-s.cleanupStop:
				return
			}
		}
	}()
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > time.Hour {
		interval = time.Hour
	}
	return interval
}
