package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "assets.index"

// DiskCache is the L2 cache. Asset bytes are stored one file per key,
// optionally zstd-compressed, with a gob index persisted on Close.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index  map[string]*diskEntry
	closed bool

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	Key        string
	File       string
	DiskSize   int64
	RawSize    int64
	Stored     time.Time
	LastAccess time.Time
	Compressed bool
}

// NewDiskCache opens (or creates) a disk cache rooted at dir.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so entries written with
	// compression stay readable after it is turned off.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = dec

	if err := dc.loadIndex(); err != nil {
		// A corrupt index only costs a cold cache.
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.DiskSize
	}

	return dc, nil
}

// Get reads and decompresses a cached value.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok || dc.closed {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		dc.drop(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put writes a value, evicting the least recently accessed entries when full.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return ErrCacheClosed
	}

	data := value
	compressed := false
	if dc.encoder != nil && len(value) > 1024 {
		if packed := dc.encoder.EncodeAll(value, nil); len(packed) < len(value) {
			data = packed
			compressed = true
		}
	}

	diskSize := int64(len(data))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		dc.drop(key, existing)
	}
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	name := key + ".zst"
	if !compressed {
		name = key + ".bin"
	}
	if err := writeAtomic(filepath.Join(dc.dir, name), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		File:       name,
		DiskSize:   diskSize,
		RawSize:    int64(len(value)),
		Stored:     now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += diskSize
	return nil
}

// Delete removes an entry and its file.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.drop(key, entry)
	}
	return nil
}

// Clear removes every cached file and persists an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key, entry := range dc.index {
		dc.drop(key, entry)
	}
	dc.size = 0
	return dc.saveIndex()
}

// Size returns bytes used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns cache statistics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	return stats
}

// RemoveOlderThan removes entries stored before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.Stored.Before(cutoff) {
			dc.drop(key, entry)
			removed++
		}
	}
	return removed
}

// Close persists the index. Further writes return ErrCacheClosed.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return nil
	}
	dc.closed = true
	if dc.encoder != nil {
		dc.encoder.Close()
	}
	dc.decoder.Close()
	return dc.saveIndex()
}

func (dc *DiskCache) drop(key string, entry *diskEntry) {
	os.Remove(filepath.Join(dc.dir, entry.File))
	delete(dc.index, key)
	dc.size -= entry.DiskSize
}

func (dc *DiskCache) evictOldest() {
	var oldest *diskEntry
	for _, entry := range dc.index {
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldest = entry
		}
	}
	if oldest != nil {
		dc.drop(oldest.Key, oldest)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&dc.index); err != nil {
		return err
	}
	// Forget entries whose files went missing.
	for key, entry := range dc.index {
		if _, err := os.Stat(filepath.Join(dc.dir, entry.File)); err != nil {
			delete(dc.index, key)
		}
	}
	return nil
}

func (dc *DiskCache) saveIndex() error {
	return writeAtomic(filepath.Join(dc.dir, indexFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(dc.index)
	})
}

// writeAtomic writes through a temp file and renames it into place.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = write(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
