package domain

import "time"

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusSkipped SyncStatus = "skipped" // fetch or format failure, state untouched
	SyncStatusFailed  SyncStatus = "failed"  // storage failure, rolled back
)

// FeedSyncResult describes one feed's synchronization.
type FeedSyncResult struct {
	FeedID   int64
	Status   SyncStatus
	Fetched  int
	New      int
	Skipped  int
	Err      error
	Duration time.Duration
}

// SyncStats holds statistics about a pass over the whole feed set.
type SyncStats struct {
	Feeds    int
	Synced   int
	Skipped  int
	Failed   int
	New      int
	Duration time.Duration
}

func (s *SyncStats) Add(r FeedSyncResult) {
	s.Feeds++
	s.New += r.New
	switch r.Status {
	case SyncStatusSynced:
		s.Synced++
	case SyncStatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}
