package main

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/cache"
	"github.com/dgnsrekt/storycast/internal/config"
	"github.com/dgnsrekt/storycast/internal/engine"
	"github.com/dgnsrekt/storycast/internal/fetch"
)

// station bundles the parts shared by the stream and the preview: the asset
// cache, the fetcher, the playback channel and the engine driving them.
type station struct {
	store   *cache.Store // nil when caching is off
	fetcher *fetch.Fetcher
	player  *audio.Player // nil when no audio device is used
	engine  *engine.Engine
}

func openStation(s config.Settings, ec engine.Config, logger *log.Logger) (_ *station, err error) {
	st := &station{}
	defer func() {
		if err != nil {
			_ = st.Close()
		}
	}()

	opts := []fetch.Option{fetch.WithLogger(newLogger(logger, "fetch"))}
	if s.CacheEnabled {
		cc, err := s.Cache()
		if err != nil {
			return nil, err
		}
		store, err := cache.NewStore(cc)
		if err != nil {
			logger.Warn("Asset cache disabled", "err", err)
		} else {
			st.store = store
			opts = append(opts, fetch.WithCache(store))
			logger.Debug("Asset cache ready", "dir", cc.DiskPath)
		}
	}

	st.fetcher, err = fetch.New(s.Fetch(), opts...)
	if err != nil {
		return nil, err
	}

	var channel engine.Channel = audio.NewTimedChannel(time.Now)
	if s.AudioEnabled {
		pc := audio.DefaultPlayerConfig()
		pc.Format = s.AudioFormat()
		p, err := audio.NewPlayer(pc)
		if err != nil {
			logger.Warn("Audio output unavailable, clips will be timed silently", "err", err)
		} else {
			st.player = p
			channel = p
		}
	}

	st.engine, err = engine.New(ec, st.fetcher, channel,
		engine.WithLogger(newLogger(logger, "engine")))
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Close releases everything the station opened. The fetcher goes first so
// a late result is discarded before the cache closes.
func (st *station) Close() error {
	var errs []error
	if st.fetcher != nil {
		errs = append(errs, st.fetcher.Close())
	}
	if st.player != nil {
		errs = append(errs, st.player.Close())
	}
	if st.store != nil {
		errs = append(errs, st.store.Close())
	}
	return errors.Join(errs...)
}
