// Package ports defines the interfaces that connect the transfer engines in
// internal/app to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: sends and receives datagrams with bounded waits
//   - [Source]: yields the fragment payloads of an outgoing transfer
//   - [PathResolver]: picks a collision-free destination path for files
//   - [Journal]: persistent (event, metadata) log of transfers
//   - [ReportRepository]: persists the last transfer report
//   - [Logger]: structured logging abstraction
//
// Adapters live in internal/adapters: udp and memnet implement Transport,
// fs implements PathResolver and ReportRepository, journal implements
// Journal.
package ports
