// Package store provides SQLite-backed durable storage for ledgerbook records.
//
// The store is a keyed record store with three independent collections:
//   - customers: Customer documents, indexed by updated_at
//   - invoices: Invoice documents, indexed by (customer_id, date)
//   - images: StoredImage metadata plus the binary payload
//
// A fourth table, backup_slots, holds one opaque backup blob per owner and is
// only used by the remote slot server.
//
// # Contract
//
//   - Put upserts by identity (ON CONFLICT(id) DO UPDATE).
//   - Get returns a NOT_FOUND ledgererr when the identity is absent.
//   - List returns every record ordered by id; callers apply domain ordering.
//   - Delete of an absent identity is a no-op.
//   - Clear removes every record of one collection.
//
// There are no foreign keys between collections. Referential integrity is the
// repository's job, and imports may legitimately persist orphaned records.
//
// Every driver failure is wrapped as STORAGE_UNAVAILABLE. The store never
// retries.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
