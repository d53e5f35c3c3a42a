// Package timeouts defines shared timeout constants for the gallery process.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StoreInit caps connecting to and migrating a relational store.
const StoreInit = 10 * time.Second

// StatusProbe caps one store availability probe.
const StatusProbe = 3 * time.Second

// HealthRefresh is the interval between gRPC health status refreshes.
const HealthRefresh = 30 * time.Second
