// Package server implements the HTTP server and room lifecycle core for
// droproom. It wires together the in-memory room registry, the blob store
// backends, the background expiration sweeper, and the HTTP handlers used
// by tests and the production binary.
package server
