// Package store provides SQLite-backed row storage for data services.
//
// Each registered service gets its own table, with one column per service
// column in declaration order. Alongside the service tables the store keeps:
//   - services: the registry, holding canonical JSON of each definition
//   - queries: a log of executed queries keyed by query ID
//
// # Ordering
//
// Query log reads order by seq INTEGER (a logical clock), never by wall
// time, with id ASC COLLATE BINARY as the tiebreak.
//
// # REGEXP
//
// SQLite parses the REGEXP operator but ships no implementation. Open uses
// a go-sqlite3 driver whose ConnectHook registers regexp() backed by Go's
// regexp package, so compiled conditions can use REGEXP directly.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
