// Package httputil provides the HTTP client used for remote collaborators.
//
// # Overview
//
//   - [Client]: JSON POST with retries and observability hooks
//   - [Retry]: automatic retry with capped exponential backoff
//
// The remote generator and the HTTP draft store both talk to their
// endpoints through [Client.PostJSON]. Transient failures (transport
// errors, 429 and 5xx responses) are wrapped in [RetryableError] and
// retried, honouring a Retry-After header up to [MaxDelay]; other statuses
// fail immediately with a [StatusError].
//
// Usage:
//
//	c := httputil.NewClient(10 * time.Second)
//	body, err := c.PostJSON(ctx, "https://api.example.com/v1/generate", req)
//
// Callers decide what a failure means. Both collaborators hand the error
// to the fallback combinator, which serves a local result instead.
package httputil
