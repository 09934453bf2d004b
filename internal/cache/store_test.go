package cache

import (
	"testing"
	"time"
)

func TestStore_MemoryOnly(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 1024})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	url := "https://example.com/audio/1.wav"
	if _, ok := s.Get(url); ok {
		t.Fatal("empty store should miss")
	}
	if err := s.Put(url, []byte("RIFF")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get(url)
	if !ok || string(got) != "RIFF" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	stats := s.Stats()
	if stats.MemoryHits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStore_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	config := Config{MemoryCapacity: 1024, DiskCapacity: 1 << 20, DiskPath: dir, CompressionLevel: 3}

	first, err := NewStore(config)
	if err != nil {
		t.Fatal(err)
	}
	first.Put("u", []byte("clip"))
	first.Close()

	second, err := NewStore(config)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if _, ok := second.Get("u"); !ok {
		t.Fatal("expected disk hit after reopen")
	}
	if _, ok := second.Get("u"); !ok {
		t.Fatal("expected memory hit after promotion")
	}

	stats := second.Stats()
	if stats.DiskHits != 1 || stats.MemoryHits != 1 || stats.Promotions != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStore_TooLargeForMemoryStillOnDisk(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 4, DiskCapacity: 1 << 20, DiskPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Put("u", []byte("longer than four")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := s.Get("u"); !ok {
		t.Error("expected disk hit")
	}
}

func TestStore_PruneAndClear(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 1024, DiskCapacity: 1 << 20, DiskPath: t.TempDir(), TTL: time.Nanosecond})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Put("u", []byte("clip"))
	time.Sleep(time.Millisecond)
	if n := s.Prune(); n != 2 {
		t.Errorf("Prune = %d, want 2 (one per level)", n)
	}

	s.Put("v", []byte("clip"))
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("v"); ok {
		t.Error("Get after Clear should miss")
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 16, TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestKeyFor(t *testing.T) {
	if KeyFor("a") == KeyFor("b") {
		t.Error("distinct URLs share a key")
	}
	if len(KeyFor("a")) != 64 {
		t.Errorf("key length = %d", len(KeyFor("a")))
	}
}
