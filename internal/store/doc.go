// Package store provides SQL-backed persistence for shopping lists.
//
// The store owns three relations:
//   - lists: id, active, created
//   - items: id, name (unique), img, recurring
//   - item_allocation: id, list_id, item_id, added, active
//
// Every exported method is a single-table primitive (or a few statements that
// must commit together) run inside one transaction. Compound behaviour such as
// rolling a list over lives in package lifecycle, not here.
//
// # Errors
//
// Methods return nil or a *shop.Error. Backend failures are logged where they
// happen and surfaced as shop.KindStorage with no driver detail in the message.
//
// # Database Configuration
//
// SQLite (default, github.com/mattn/go-sqlite3):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: SQLite serializes writers anyway
//
// PostgreSQL (github.com/lib/pq) uses the same queries with $n placeholders.
package store
