// Package domain contains the core entities of a fragship transfer.
//
// It has no dependencies on transports, the file system or logging.
//
// # Entities
//
//   - [Session]: negotiated parameters and counters of one transfer
//   - [TransferReport]: the outcome of a transfer as seen by one endpoint
//
// Sessions are created when a handshake is accepted and discarded when the
// transfer completes or times out. Nothing is carried across transfers.
package domain
