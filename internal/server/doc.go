// Package server exposes the monitoring HTTP API and the live transcript
// WebSocket feed. The HTTP surface is read-only; the pipeline is controlled
// from the command line, not over the network.
package server
