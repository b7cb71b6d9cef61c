package catalog

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/observability"
	"github.com/matzehuels/modcat/pkg/source"
)

// loadCall is one in-flight load. done is closed once snap/err are set.
type loadCall struct {
	done      chan struct{}
	snap      *Snapshot
	err       error
	cancelled bool         // the loader's own context ended
	waiters   atomic.Int32 // callers blocked on done
}

// load runs or joins a load. Without force, an already published snapshot
// is returned as is.
func (c *Catalog) load(ctx context.Context, force bool) (*Snapshot, error) {
	for {
		c.mu.Lock()
		if !force {
			if s := c.snap.Load(); s != nil {
				c.mu.Unlock()
				return s, nil
			}
		}
		call := c.inflight
		if call == nil {
			call = &loadCall{done: make(chan struct{})}
			c.inflight = call
			c.state = Loading
			c.mu.Unlock()
			if force {
				ctx = source.WithRefresh(ctx)
			}
			return c.lead(ctx, call)
		}
		call.waiters.Add(1)
		c.mu.Unlock()

		select {
		case <-call.done:
		case <-ctx.Done():
			call.waiters.Add(-1)
			return nil, ctx.Err()
		}
		call.waiters.Add(-1)
		// The loader gave up because its caller went away. That says nothing
		// about this caller, so try again.
		if call.cancelled && ctx.Err() == nil {
			continue
		}
		return call.snap, call.err
	}
}

// lead builds a snapshot for call and always settles it, even when the
// source panics, so waiters are released and the catalog leaves Loading.
func (c *Catalog) lead(ctx context.Context, call *loadCall) (*Snapshot, error) {
	settled := false
	defer func() {
		if !settled {
			c.finish(ctx, call, nil, errors.New(errors.ErrCodeInternal, "catalog load aborted by panic"))
		}
	}()

	snap, err := c.build(ctx)
	c.finish(ctx, call, snap, err)
	settled = true
	return snap, err
}

func (c *Catalog) finish(ctx context.Context, call *loadCall, snap *Snapshot, err error) {
	c.mu.Lock()
	call.snap, call.err = snap, err
	call.cancelled = err != nil && ctx.Err() != nil
	if err == nil {
		c.snap.Store(snap)
	}
	if c.snap.Load() != nil {
		c.state = Loaded
	} else {
		c.state = Unloaded
	}
	c.inflight = nil
	c.mu.Unlock()

	close(call.done)
}

// build fetches, merges and validates a new snapshot without publishing it.
func (c *Catalog) build(ctx context.Context) (*Snapshot, error) {
	feed := c.opts.FeedLocation
	logger := c.opts.Logger
	hooks := observability.Catalog()
	start := time.Now()

	hooks.OnLoadStart(ctx, feed)
	logger.Debug("loading module catalog", "feed", feed)

	snap, err := c.fetchAndMerge(ctx, feed)
	elapsed := time.Since(start)
	if err != nil {
		hooks.OnLoadComplete(ctx, feed, 0, elapsed, err)
		logger.Error("module catalog load failed", "feed", feed, "err", err)
		return nil, err
	}

	hooks.OnLoadComplete(ctx, feed, snap.Len(), elapsed, nil)
	logger.Info("module catalog loaded",
		"snapshot", snap.ID,
		"modules", snap.Len(),
		"installed", snap.Stats.Installed,
		"remote", snap.Stats.Remote,
		"orphans", snap.Stats.Orphans,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return snap, nil
}

func (c *Catalog) fetchAndMerge(ctx context.Context, feed string) (*Snapshot, error) {
	var installed, remote []*module.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := c.src.FetchInstalled(gctx)
		if err != nil {
			if errors.GetCode(err) != errors.ErrCodeInstalledSource {
				err = errors.Wrap(errors.ErrCodeInstalledSource, err, "discover installed modules")
			}
			return err
		}
		installed = records
		return nil
	})
	g.Go(func() error {
		records, err := c.src.FetchRemote(gctx, feed)
		if err != nil {
			var fetchErr *errors.ManifestFetchError
			if !stderrors.As(err, &fetchErr) {
				err = &errors.ManifestFetchError{Location: feed, Cause: err}
			}
			return err
		}
		remote = records
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validateUnique(installed); err != nil {
		return nil, err
	}
	merged, stats := merge(installed, remote)
	if err := validateUnique(merged); err != nil {
		return nil, err
	}
	return newSnapshot(uuid.NewString(), feed, merged, stats), nil
}
