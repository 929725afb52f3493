/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides a fixed-window admission gate for outbound operations.
//
// FixedWindowLimiter admits at most Capacity operations per Window. A permit is taken with Acquire
// (blocking, cancellable through context.Context) or TryAcquire, and is given back with Release.
// Independently of releases, a background job owned by the limiter resets the number of available
// permits to Capacity at the start of every window. The reset does not wait for in-flight operations,
// so the limiter bounds admissions per window rather than concurrency.
//
// Shutdown stops the background job. Acquire and Release keep working after Shutdown,
// but permits are no longer replenished.
package ratelimit
