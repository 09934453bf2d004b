package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/storycast/internal/cache"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the downloaded audio cache",
		Args:  cobra.NoArgs,
	}

	cacheInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show where the audio cache lives and how full it is",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			dc, dir, err := openDiskCache()
			if err != nil {
				return err
			}
			defer func() { _ = dc.Close() }()

			st := dc.Stats()
			fmt.Println(keyword("Audio cache"))
			fmt.Printf("  path:     %s\n", dir)
			fmt.Printf("  files:    %d\n", st.ItemCount)
			fmt.Printf("  size:     %s of %s\n", humanize.Bytes(uint64(st.Size)), humanize.Bytes(uint64(st.Capacity))) //nolint:gosec
			fmt.Printf("  lifetime: %s\n", time.Duration(settings.CacheTTLDays)*24*time.Hour)
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached audio file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			dc, dir, err := openDiskCache()
			if err != nil {
				return err
			}
			defer func() { _ = dc.Close() }()

			st := dc.Stats()
			if err := dc.Clear(); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Printf("Removed %d files (%s) from %s\n", st.ItemCount, humanize.Bytes(uint64(st.Size)), dir) //nolint:gosec
			return nil
		},
	}
)

func openDiskCache() (*cache.DiskCache, string, error) {
	cc, err := settings.Cache()
	if err != nil {
		return nil, "", err
	}
	if cc.DiskPath == "" {
		return nil, "", fmt.Errorf("disk cache is disabled (cache.disk_mb is 0)")
	}
	dc, err := cache.NewDiskCache(cc.DiskPath, cc.DiskCapacity, cc.CompressionLevel)
	if err != nil {
		return nil, "", fmt.Errorf("unable to open cache: %w", err)
	}
	return dc, cc.DiskPath, nil
}
