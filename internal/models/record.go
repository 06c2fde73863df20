// Package models defines the data types shared by the cache façade, the
// sync engine and the storage repositories.
package models

import "time"

// SyncStatus tracks whether a locally cached inventory record has been
// pushed to the shared durable store.
type SyncStatus string

const (
	// SyncPending marks a record created or modified locally and not yet
	// pushed. Every record starts out pending.
	SyncPending SyncStatus = "pending"

	// SyncSynced marks a record that exists remotely; RemoteID is set.
	SyncSynced SyncStatus = "synced"
)

// Record is a serialized inventory item held in the local persistent cache.
//
// ID is the local auto-assigned row id; RemoteID is the durable store's row
// id, assigned exactly once when the sync engine pushes the record. The
// serial number is the join key used to match the same logical item across
// local and remote tables; the two id spaces are independent.
type Record struct {
	ID           int64
	ItemSKU      string
	SerialNumber string
	LPN          string
	Location     string
	RepairState  string
	EnteredBy    string
	CreatedAt    time.Time
	OrderNumber  string
	SyncStatus   SyncStatus
	RemoteID     *int64
	LastModified time.Time
}

// ArchivedRecord is an inventory item moved out of the active set by an
// export. The local copy is a read-only mirror, repopulated wholesale from
// the remote archive on each pull and capped to the most recent window.
type ArchivedRecord struct {
	ID           int64
	ItemSKU      string
	SerialNumber string
	LPN          string
	Location     string
	RepairState  string
	EnteredBy    string
	CreatedAt    time.Time
	ImportedAt   time.Time
	OrderNumber  string
}

// User is a row of the shared users table. Authentication itself lives
// outside this subsystem; the cache layer only serves user lists to the UI.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}
