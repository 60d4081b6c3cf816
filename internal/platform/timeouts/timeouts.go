// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// RemoteRequest caps one call to the remote system of record. The remote
// contract names no timeout, so this only guards against a hung peer.
const RemoteRequest = 30 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// SessionTTL bounds admin and evaluator session tokens.
const SessionTTL = 12 * time.Hour
