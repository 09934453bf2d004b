package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		level int
		value []byte
	}{
		{"uncompressed", 0, bytes.Repeat([]byte("pcm"), 1000)},
		{"compressed", 3, bytes.Repeat([]byte("pcm"), 1000)},
		{"small stays raw", 3, []byte("tiny")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, err := NewDiskCache(t.TempDir(), 1<<20, tt.level)
			if err != nil {
				t.Fatalf("NewDiskCache: %v", err)
			}
			defer dc.Close()

			if err := dc.Put("k", tt.value); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok := dc.Get("k")
			if !ok {
				t.Fatal("Get missed")
			}
			if !bytes.Equal(got, tt.value) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestDiskCache_CompressionShrinks(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	value := make([]byte, 64*1024)
	dc.Put("silence", value)
	if dc.Size() >= int64(len(value)) {
		t.Errorf("disk size %d not smaller than %d", dc.Size(), len(value))
	}
}

func TestDiskCache_PersistsIndex(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	dc.Put("k", []byte("hello"))
	if err := dc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dc.Put("after", []byte("x")); err != ErrCacheClosed {
		t.Errorf("Put after close = %v, want ErrCacheClosed", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("k")
	if !ok || string(got) != "hello" {
		t.Errorf("reopened Get = %q, %v", got, ok)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("k", []byte("hello"))
	os.Remove(filepath.Join(dir, "k.bin"))

	if _, ok := dc.Get("k"); ok {
		t.Error("Get should miss when the file is gone")
	}
	if dc.Size() != 0 {
		t.Errorf("Size = %d, want 0", dc.Size())
	}
}

func TestDiskCache_EvictsOldest(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("a", make([]byte, 40))
	time.Sleep(2 * time.Millisecond)
	dc.Put("b", make([]byte, 40))
	time.Sleep(2 * time.Millisecond)
	dc.Put("c", make([]byte, 40))

	if _, ok := dc.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if _, ok := dc.Get("c"); !ok {
		t.Error("c should be cached")
	}
	if dc.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", dc.Stats().Evictions)
	}
}

func TestDiskCache_RemoveOlderThanAndClear(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("a", []byte("1"))
	dc.Put("b", []byte("2"))

	if n := dc.RemoveOlderThan(time.Now().Add(time.Hour)); n != 2 {
		t.Errorf("RemoveOlderThan = %d, want 2", n)
	}

	dc.Put("c", []byte("3"))
	if err := dc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if dc.Stats().ItemCount != 0 || dc.Size() != 0 {
		t.Error("Clear left entries behind")
	}
}
