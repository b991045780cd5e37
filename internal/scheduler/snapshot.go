package scheduler

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// snapshotKey is the part of a lot that a cascade result depends on.
type snapshotKey struct {
	LotID string
	Tasks []taskKey
}

type taskKey struct {
	ID           string
	Start        string
	End          string
	Pinned       string
	Duration     int
	Track        Track
	SortOrder    int
	Complete     bool
	BlocksFinal  bool
	Dependencies []Dependency
}

// Fingerprint hashes the schedule-relevant state of a lot. Two snapshots with
// the same fingerprint produce identical cascade results.
func Fingerprint(lot *Lot) (uint64, error) {
	key := snapshotKey{LotID: lot.ID, Tasks: make([]taskKey, 0, len(lot.Tasks))}
	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		key.Tasks = append(key.Tasks, taskKey{
			ID:           t.ID,
			Start:        t.ScheduledStart.String(),
			End:          t.ScheduledEnd.String(),
			Pinned:       t.PinnedStart.String(),
			Duration:     t.DurationDays,
			Track:        t.Track,
			SortOrder:    t.SortOrder,
			Complete:     t.IsComplete(),
			BlocksFinal:  t.BlocksFinal,
			Dependencies: t.Dependencies,
		})
	}

	hash, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("fingerprinting lot %q: %w", lot.ID, err)
	}
	return hash, nil
}
