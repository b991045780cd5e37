package scheduler

import "testing"

func TestFingerprint(t *testing.T) {
	base, err := Fingerprint(abLot())
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Lot)
		same   bool
	}{
		{"identical copy", func(*Lot) {}, true},
		{"status overlay is ignored", func(l *Lot) { l.Tasks[1].Status = TaskReady }, true},
		{"delay notes are ignored", func(l *Lot) { l.Tasks[0].Delay.Notes = "rain" }, true},
		{"moved start", func(l *Lot) { l.Tasks[1].ScheduledStart = jan(5) }, false},
		{"completion", func(l *Lot) { l.Tasks[0].ActualEnd = jan(3) }, false},
		{"new edge", func(l *Lot) { l.Tasks[0].Dependencies = append(l.Tasks[0].Dependencies, dep("B", StartToStart, 0)) }, false},
		{"pinned start", func(l *Lot) { l.Tasks[1].PinnedStart = jan(4) }, false},
		{"lot identity", func(l *Lot) { l.ID = "other" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := abLot()
			tt.mutate(lot)
			got, err := Fingerprint(lot)
			if err != nil {
				t.Fatalf("Fingerprint: %v", err)
			}
			if (got == base) != tt.same {
				t.Errorf("fingerprint equal = %v, want %v", got == base, tt.same)
			}
		})
	}
}
