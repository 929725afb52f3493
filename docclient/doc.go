/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package docclient provides a client for the document registration API.
//
// Every Submit call takes a permit from a fixed-window rate limiter owned by the client,
// so no more than the configured number of requests is sent per window regardless of how many
// goroutines share the client. A rejected submission (non-2xx response) is reported
// through Result and is never retried.
package docclient
