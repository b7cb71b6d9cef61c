// Package httputil provides the HTTP plumbing used to fetch manifest feeds.
//
// # Overview
//
//   - [Client]: GET requests with default headers, response caching and retry
//   - [Retry]: Automatic retry with exponential backoff
//
// # Caching
//
// [Client.Cached] checks a [cache.Cache] before calling the fetch function
// and stores successful results with the client's TTL. Keys are namespaced
// with the client's prefix.
//
// # Retry
//
// Transient failures (transport errors and 5xx responses) are wrapped in
// [RetryableError]; [Retry] retries only those:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    _, err := client.Get(ctx, url)
//	    return err
//	})
//
// Defaults: 3 attempts, 1 second initial delay doubling on each retry,
// 10 second request timeout.
package httputil
