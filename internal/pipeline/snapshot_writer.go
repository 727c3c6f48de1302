package pipeline

import "sentinel/pkg/models"

// SnapshotWriter publishes dashboard snapshots.
type SnapshotWriter interface {
	WriteSnapshot(snapshot *models.Snapshot) error
	Close() error
}
