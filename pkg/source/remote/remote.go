// Package remote reads the published manifest feed: a JSON array of module
// manifests served over HTTP(S) or stored in a local file.
//
// HTTP feeds go through [httputil.Client], so transient failures are retried
// with backoff and successful payloads are cached for the configured TTL.
// Only payloads that decode cleanly are cached.
//
//	feed := remote.New(fileCache, remote.Options{TTL: time.Hour})
//	records, err := feed.FetchRemote(ctx, "https://modules.example.com/modules.json")
//
// A context marked with [source.WithRefresh] skips the cached payload for
// that call, as [Options.Refresh] does for every call.
package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modcat/pkg/cache"
	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/httputil"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/source"
)

// DefaultTTL is how long a fetched feed stays cached.
const DefaultTTL = time.Hour

// Options configures a Feed.
type Options struct {
	TTL        time.Duration     // Cache lifetime; defaults to DefaultTTL
	Refresh    bool              // Skip cached payloads (still stores fresh ones)
	Backoff    httputil.Backoff  // Retry schedule; defaults to httputil.DefaultBackoff
	Keyer      cache.Keyer       // Defaults to cache.NewDefaultKeyer()
	Headers    map[string]string // Sent with every request
	HTTPClient *http.Client      // Defaults to httputil.NewHTTPClient()
	Logger     *log.Logger       // Optional
}

// WithDefaults returns a copy of o with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Backoff.Attempts == 0 {
		o.Backoff = httputil.DefaultBackoff
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = httputil.NewHTTPClient()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Feed is a source.Remote for manifest feeds.
type Feed struct {
	client *httputil.Client
	opts   Options
}

// New creates a Feed that caches payloads in c (nil disables caching).
func New(c cache.Cache, opts Options) *Feed {
	opts = opts.WithDefaults()
	client := httputil.NewClient(c, "", opts.TTL, opts.Headers).
		WithHTTPClient(opts.HTTPClient).
		WithBackoff(opts.Backoff)
	return &Feed{client: client, opts: opts}
}

// FetchRemote implements source.Remote. Every failure is a
// *errors.ManifestFetchError naming the location.
func (f *Feed) FetchRemote(ctx context.Context, location string) ([]*module.Record, error) {
	records, err := f.fetch(ctx, location)
	if err != nil {
		err = classify(err)
		f.opts.Logger.Error("fetch manifest feed failed", "feed", location, "err", err)
		return nil, &errors.ManifestFetchError{Location: location, Cause: err}
	}
	f.opts.Logger.Debug("fetched manifest feed", "feed", location, "modules", len(records))
	return records, nil
}

func (f *Feed) fetch(ctx context.Context, location string) ([]*module.Record, error) {
	switch {
	case location == "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "feed location is empty")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return f.fetchHTTP(ctx, location)
	default:
		return readFile(ctx, strings.TrimPrefix(location, "file://"))
	}
}

func (f *Feed) fetchHTTP(ctx context.Context, location string) ([]*module.Record, error) {
	var records []*module.Record
	data, err := f.client.Cached(ctx, f.opts.Keyer.FeedKey(location), f.opts.Refresh || source.RefreshRequested(ctx), func() ([]byte, error) {
		body, err := f.client.Get(ctx, location)
		if err != nil {
			return nil, err
		}
		records, err = module.DecodeFeed(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	if records != nil {
		return records, nil
	}
	return module.DecodeFeed(bytes.NewReader(data))
}

// classify attaches an error code to transport failures.
func classify(err error) error {
	switch {
	case stderrors.Is(err, httputil.ErrNotFound):
		return errors.Wrap(errors.ErrCodeNotFound, err, "feed not found")
	case stderrors.Is(err, httputil.ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, "feed request failed")
	}
	return err
}

func readFile(ctx context.Context, path string) ([]*module.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return module.DecodeFeed(fh)
}

var _ source.Remote = (*Feed)(nil)
