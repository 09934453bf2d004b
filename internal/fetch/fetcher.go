package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/broadcast"
)

const (
	// DefaultStoryTimeout bounds the story request.
	DefaultStoryTimeout = 15 * time.Second
	// DefaultAssetTimeout bounds each audio download.
	DefaultAssetTimeout = 10 * time.Second
	// DefaultShutdownGrace bounds how long Close waits for the worker.
	DefaultShutdownGrace = 2 * time.Second

	// maxBodySize caps any single response body.
	maxBodySize = 64 << 20
)

// AssetCache stores downloaded asset bytes keyed by absolute URL.
type AssetCache interface {
	Get(url string) ([]byte, bool)
	Put(url string, data []byte) error
}

// Config configures a Fetcher.
type Config struct {
	BaseURL       string
	Endpoint      string // path of the story resource, default "/story"
	StoryTimeout  time.Duration
	AssetTimeout  time.Duration
	ShutdownGrace time.Duration
	Format        audio.Format // target format for decoded clips
}

// DefaultConfig returns the default fetch settings for base.
func DefaultConfig(base string) Config {
	return Config{
		BaseURL:       base,
		Endpoint:      "/story",
		StoryTimeout:  DefaultStoryTimeout,
		AssetTimeout:  DefaultAssetTimeout,
		ShutdownGrace: DefaultShutdownGrace,
		Format:        audio.DefaultFormat(),
	}
}

// Fetcher runs at most one fetch cycle at a time.
type Fetcher struct {
	config Config
	base   *url.URL
	client *http.Client
	cache  AssetCache
	logger *log.Logger

	mailbox  *broadcast.Mailbox
	inFlight atomic.Bool
	maxBody  int64

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. Timeouts from Config still apply
// per request.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithCache enables the asset cache.
func WithCache(c AssetCache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher. The base URL must be absolute.
func New(config Config, opts ...Option) (*Fetcher, error) {
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, broadcast.ConfigError("invalid api base url", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, broadcast.ConfigError("api base url must be absolute", fmt.Errorf("got %q", config.BaseURL))
	}
	if config.Endpoint == "" {
		config.Endpoint = "/story"
	}
	if config.StoryTimeout <= 0 {
		config.StoryTimeout = DefaultStoryTimeout
	}
	if config.AssetTimeout <= 0 {
		config.AssetTimeout = DefaultAssetTimeout
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultShutdownGrace
	}
	if config.Format.SampleRate == 0 {
		config.Format = audio.DefaultFormat()
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Fetcher{
		config:  config,
		base:    base,
		client:  &http.Client{},
		logger:  log.Default().WithPrefix("fetch"),
		mailbox: broadcast.NewMailbox(),
		maxBody: maxBodySize,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Start begins a fetch cycle in the background. It is a no-op while a
// cycle is running or after Close.
func (f *Fetcher) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || !f.inFlight.CompareAndSwap(false, true) {
		return
	}

	f.wg.Add(1)
	go f.run(f.ctx)
}

// Busy reports whether a fetch cycle is running.
func (f *Fetcher) Busy() bool {
	return f.inFlight.Load()
}

// Poll returns the published outcome, at most once per cycle.
func (f *Fetcher) Poll() (broadcast.FetchOutcome, bool) {
	return f.mailbox.Take()
}

// Close cancels a running cycle and waits up to the shutdown grace for the
// worker to exit. Any outcome it produces afterwards is discarded.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.cancel()
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(f.config.ShutdownGrace):
		return fmt.Errorf("fetch worker did not exit within %s", f.config.ShutdownGrace)
	}
}

func (f *Fetcher) run(ctx context.Context) {
	defer f.wg.Done()

	var outcome broadcast.FetchOutcome
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("fetch worker panicked", "panic", r)
			outcome = broadcast.FetchOutcome{Err: fmt.Errorf("fetch worker panicked: %v", r)}
		}
		// Publish before clearing the flag so a second cycle can never
		// race this outcome for the slot.
		if ctx.Err() == nil {
			if !f.mailbox.Publish(outcome) {
				f.logger.Warn("dropping fetch outcome, previous one not consumed")
			}
		}
		f.inFlight.Store(false)
	}()

	outcome = f.fetch(ctx)
}

// fetch performs one cycle and always returns an outcome.
func (f *Fetcher) fetch(ctx context.Context) broadcast.FetchOutcome {
	started := time.Now()
	storyURL := f.resolve(f.config.Endpoint)

	body, err := f.get(ctx, storyURL, f.config.StoryTimeout)
	if err != nil {
		f.logger.Warn("story request failed", "url", storyURL, "err", err)
		return broadcast.FetchOutcome{Err: broadcast.NetworkError("story request failed", err)}
	}

	packet, err := broadcast.DecodePacket(body)
	if err != nil {
		f.logger.Warn("story payload rejected", "err", err)
		return broadcast.FetchOutcome{Err: err}
	}
	f.logger.Info("received story", "title", packet.Title(), "lines", packet.LineCount())

	clips := make([]broadcast.Clip, len(packet.Dialogue))
	for i, line := range packet.Dialogue {
		if ctx.Err() != nil {
			return broadcast.FetchOutcome{Err: broadcast.NetworkError("fetch cancelled", ctx.Err())}
		}
		if !line.HasAudio() {
			continue
		}
		clip, err := f.loadClip(ctx, line.AudioURL)
		if err != nil {
			f.logger.Warn("audio unavailable for line", "line", i, "err", err)
			continue
		}
		clips[i] = clip
	}

	f.logger.Debug("fetch complete", "elapsed", time.Since(started).Round(time.Millisecond))
	return broadcast.FetchOutcome{Packet: packet, Clips: clips}
}

// loadClip fetches (or reads from cache) and decodes one audio asset.
func (f *Fetcher) loadClip(ctx context.Context, ref string) (broadcast.Clip, error) {
	assetURL := f.resolve(ref)

	data, cached := f.cached(assetURL)
	if !cached {
		var err error
		data, err = f.get(ctx, assetURL, f.config.AssetTimeout)
		if err != nil {
			return nil, broadcast.AssetError("download failed", err)
		}
		f.logger.Debug("downloaded audio", "url", assetURL, "size", humanize.Bytes(uint64(len(data))))
	}

	clip, err := audio.DecodeWAV(data, f.config.Format)
	if err != nil {
		return nil, broadcast.AssetError("decode failed", err)
	}

	if !cached && f.cache != nil {
		if err := f.cache.Put(assetURL, data); err != nil {
			f.logger.Debug("asset not cached", "url", assetURL, "err", err)
		}
	}
	return clip, nil
}

func (f *Fetcher) cached(assetURL string) ([]byte, bool) {
	if f.cache == nil {
		return nil, false
	}
	return f.cache.Get(assetURL)
}

// resolve turns ref into an absolute URL against the base. Unparseable
// references are returned unchanged and fail at request time.
func (f *Fetcher) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	base := *f.base
	if base.Path != "" && base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}
	if len(u.Path) > 0 && u.Path[0] == '/' {
		// Root-relative references keep any base path prefix.
		u.Path = u.Path[1:]
	}
	return base.ResolveReference(u).String()
}

var (
	errStatus   = errors.New("unexpected status")
	errTooLarge = errors.New("response too large")
)

func (f *Fetcher) get(ctx context.Context, target string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d from %s", errStatus, resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", errTooLarge, target, f.maxBody)
	}
	return body, nil
}
