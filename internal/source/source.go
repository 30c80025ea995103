// =============================================================================
// mercado - Table Source Module
// =============================================================================
//
// This module loads the three input tables from wherever the configuration
// says they live:
//
//   path  ->  read from disk and parsed in place
//   url   ->  downloaded with retries, cached on disk for cache_ttl, parsed
//
// A failed download falls back to the cached copy, however old, so a flaky
// connection does not prevent planning. The fallback is logged.
//
// =============================================================================

package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ginjaninja78/mercado/internal/config"
	"github.com/ginjaninja78/mercado/internal/csvparser"
	"github.com/ginjaninja78/mercado/internal/ingest"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/internal/xlsxparser"
	"github.com/ginjaninja78/mercado/pkg/utils"
	"github.com/hashicorp/go-retryablehttp"
)

const cacheExt = ".cache"

// Logger is the logging surface the fetcher needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Options configures a Fetcher.
type Options struct {
	// CacheDir holds downloaded tables. Empty disables caching.
	CacheDir string

	// TTL is how long a cached download is served without refetching.
	// Zero always refetches (the cache is still used as a fallback).
	TTL time.Duration

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Logger Logger
}

// OptionsFromConfig derives fetcher options from the main configuration.
func OptionsFromConfig(cfg *config.MainConfig, logger Logger) Options {
	return Options{
		CacheDir: cfg.CacheDir,
		TTL:      cfg.TTL(),
		Timeout:  cfg.Timeout(),
		RetryMax: cfg.RetryMax,
		Logger:   logger,
	}
}

// Fetcher loads tables from local files and URLs.
type Fetcher struct {
	client *retryablehttp.Client
	opts   Options
	now    func() time.Time
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	client := retryablehttp.NewClient()
	client.Logger = leveledLogger{opts.Logger}
	client.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}

	return &Fetcher{client: client, opts: opts, now: time.Now}
}

// =============================================================================
// DOWNLOADS
// =============================================================================

// Fetch returns the body at url, serving it from the cache while it is
// fresh. When the download fails and a cached copy exists, the cached copy
// is returned instead.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	path := f.cachePath(url)

	if path != "" && f.opts.TTL > 0 {
		if age, ok := utils.FileAge(path, f.now()); ok && age < f.opts.TTL {
			data, err := os.ReadFile(path)
			if err == nil {
				f.opts.Logger.Debugf("Using cached copy of %s (age %s)", url, age.Round(time.Second))
				return data, nil
			}
		}
	}

	data, err := f.download(ctx, url)
	if err != nil {
		if path != "" && utils.FileExists(path) {
			cached, readErr := os.ReadFile(path)
			if readErr == nil {
				f.opts.Logger.Warnf("Download of %s failed, using cached copy: %v", url, err)
				return cached, nil
			}
		}
		return nil, err
	}

	if path != "" {
		if err := utils.WriteFileAtomic(path, data); err != nil {
			f.opts.Logger.Warnf("Failed to cache %s: %v", url, err)
		}
	}
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	f.opts.Logger.Debugf("Downloading %s", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}

// cachePath maps a URL to its cache file, or "" when caching is off.
func (f *Fetcher) cachePath(url string) string {
	if f.opts.CacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.opts.CacheDir, hex.EncodeToString(sum[:])+cacheExt)
}

// Invalidate removes every cached download and returns how many were removed.
func (f *Fetcher) Invalidate() (int, error) {
	if f.opts.CacheDir == "" {
		return 0, nil
	}
	return utils.CleanOldFiles(f.opts.CacheDir, "*"+cacheExt, 0)
}

// =============================================================================
// TABLE LOADING
// =============================================================================

// LoadTable reads one table described by src.
func (f *Fetcher) LoadTable(ctx context.Context, name string, src config.TableSource) (*types.Table, error) {
	if !src.Configured() {
		return nil, fmt.Errorf("no source configured for the %s table", name)
	}

	if !src.IsRemote() {
		f.opts.Logger.Debugf("Reading %s table from %s", name, src.Path)
		switch src.Format {
		case config.FormatXLSX:
			return xlsxparser.ParseFile(src.Path, name, src)
		default:
			return csvparser.ParseFile(src.Path, name, src)
		}
	}

	data, err := f.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	switch src.Format {
	case config.FormatXLSX:
		return xlsxparser.Parse(bytes.NewReader(data), name, src)
	default:
		return csvparser.Parse(bytes.NewReader(data), name, src)
	}
}

// LoadTables reads the requirements, prices and equivalences tables
// concurrently. The first error in table order is returned.
func (f *Fetcher) LoadTables(ctx context.Context, cfg *config.MainConfig) (ingest.Tables, error) {
	type loaded struct {
		index int
		table *types.Table
		err   error
	}

	jobs := []struct {
		name string
		src  config.TableSource
	}{
		{ingest.TableRequirements, cfg.Sources.Requirements},
		{ingest.TablePrices, cfg.Sources.Prices},
		{ingest.TableEquivalences, cfg.Sources.Equivalences},
	}

	var wg sync.WaitGroup
	results := make(chan loaded, len(jobs))
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, name string, src config.TableSource) {
			defer wg.Done()
			table, err := f.LoadTable(ctx, name, src)
			results <- loaded{index: i, table: table, err: err}
		}(i, job.name, job.src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]*types.Table, len(jobs))
	errs := make([]error, len(jobs))
	for r := range results {
		out[r.index], errs[r.index] = r.table, r.err
	}

	tables := ingest.Tables{Requirements: out[0], Prices: out[1], Equivalences: out[2]}
	for _, err := range errs {
		if err != nil {
			return tables, err
		}
	}
	return tables, nil
}

// =============================================================================
// LOGGING ADAPTERS
// =============================================================================

// leveledLogger satisfies retryablehttp.LeveledLogger.
type leveledLogger struct {
	l Logger
}

func (a leveledLogger) Error(msg string, kv ...interface{}) { a.l.Errorf("%s %v", msg, kv) }
func (a leveledLogger) Info(msg string, kv ...interface{})  { a.l.Debugf("%s %v", msg, kv) }
func (a leveledLogger) Debug(msg string, kv ...interface{}) { a.l.Debugf("%s %v", msg, kv) }
func (a leveledLogger) Warn(msg string, kv ...interface{})  { a.l.Warnf("%s %v", msg, kv) }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
