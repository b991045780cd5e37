package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/scheduler"
)

// testStore creates an in-memory store for testing and registers cleanup.
func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: d}
}

func fixtureLot(id string) *scheduler.Lot {
	logged := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	return &scheduler.Lot{
		ID:                   id,
		Name:                 "Lot " + id,
		StartDate:            day(4),
		TargetCompletionDate: day(29),
		ManualMilestones:     map[string]bool{"permit_issued": true},
		Status:               scheduler.LotInProgress,
		Tasks: []scheduler.Task{
			{
				ID:              "slab",
				Name:            "Foundation Pour",
				Trade:           "concrete",
				SubcontractorID: "sub-concrete",
				DurationDays:    3,
				ScheduledStart:  day(4),
				ScheduledEnd:    day(6),
				ActualStart:     day(4),
				ActualEnd:       day(6),
				Track:           scheduler.TrackFoundation,
				SortOrder:       1,
				Status:          scheduler.TaskComplete,
				IsCriticalPath:  true,
			},
			{
				ID:                 "frame",
				Name:               "Framing",
				Trade:              "framing",
				DurationDays:       5,
				ScheduledStart:     day(7),
				ScheduledEnd:       day(13),
				Track:              scheduler.TrackStructure,
				SortOrder:          1,
				Status:             scheduler.TaskDelayed,
				BlocksFinal:        true,
				RequiresInspection: true,
				Dependencies: []scheduler.Dependency{
					{PredecessorID: "slab", Relation: scheduler.FinishToStart, LagDays: 0},
				},
				Delay: scheduler.DelayInfo{Days: 1, Reason: "rain", Notes: "site flooded", LoggedAt: logged},
			},
			{
				ID:             "paint",
				Name:           "Paint",
				DurationDays:   2,
				ScheduledStart: day(14),
				ScheduledEnd:   day(15),
				PinnedStart:    day(14),
				Track:          scheduler.TrackFinal,
				SortOrder:      1,
				Dependencies: []scheduler.Dependency{
					{PredecessorID: "frame", Relation: scheduler.FinishToStart, LagDays: 0},
					{PredecessorID: "slab", Relation: scheduler.StartToStart, LagDays: 2},
				},
			},
		},
		History: []scheduler.ScheduleChange{
			{
				ID:         "chg-1",
				LotID:      id,
				TaskID:     "frame",
				OldStart:   day(6),
				NewStart:   day(7),
				Shift:      1,
				Reason:     "rain",
				Notes:      "site flooded",
				RecordedAt: logged,
			},
		},
	}
}

func TestSaveAndGetLot(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	lot := fixtureLot("lot-1")
	if err := store.SaveLot(ctx, lot); err != nil {
		t.Fatalf("failed to save lot: %v", err)
	}

	retrieved, err := store.GetLot(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to get lot: %v", err)
	}

	if !reflect.DeepEqual(retrieved, lot) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", retrieved, lot)
	}
}

func TestSaveLotIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	lot := fixtureLot("lot-1")
	for i := 0; i < 3; i++ {
		if err := store.SaveLot(ctx, lot); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	retrieved, err := store.GetLot(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to get lot: %v", err)
	}
	if len(retrieved.Tasks) != 3 {
		t.Errorf("tasks = %d, want 3", len(retrieved.Tasks))
	}
	if len(retrieved.History) != 1 {
		t.Errorf("history entries = %d, want 1", len(retrieved.History))
	}
	if got := len(retrieved.Task("paint").Dependencies); got != 2 {
		t.Errorf("paint dependencies = %d, want 2", got)
	}
}

func TestSaveLotKeepsEdgePairsToOnePredecessor(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	lot := fixtureLot("lot-1")
	frame := lot.Task("frame")
	frame.Dependencies = []scheduler.Dependency{
		{PredecessorID: "slab", Relation: scheduler.StartToStart, LagDays: 2},
		{PredecessorID: "slab", Relation: scheduler.FinishToFinish, LagDays: 1},
	}

	// Saved twice so the replace path sees the pair as well
	for i := 0; i < 2; i++ {
		if err := store.SaveLot(ctx, lot); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	retrieved, err := store.GetLot(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to get lot: %v", err)
	}
	if got := retrieved.Task("frame").Dependencies; !reflect.DeepEqual(got, frame.Dependencies) {
		t.Errorf("frame dependencies = %+v, want %+v", got, frame.Dependencies)
	}
}

func TestSaveLotReplacesSnapshot(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	lot := fixtureLot("lot-1")
	if err := store.SaveLot(ctx, lot); err != nil {
		t.Fatalf("failed to save lot: %v", err)
	}

	next := lot.Clone()
	next.Task("frame").ScheduledStart = day(11)
	next.Task("frame").ScheduledEnd = day(15)
	next.History = append(next.History, scheduler.ScheduleChange{
		ID: "chg-2", LotID: "lot-1", TaskID: "frame", OldStart: day(7), NewStart: day(11), Shift: 4,
		RecordedAt: time.Date(2024, time.March, 6, 8, 0, 0, 0, time.UTC),
	})
	if err := store.SaveLot(ctx, next); err != nil {
		t.Fatalf("failed to save updated lot: %v", err)
	}

	retrieved, err := store.GetLot(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to get lot: %v", err)
	}
	if got := retrieved.Task("frame").ScheduledStart; got != day(11) {
		t.Errorf("frame start = %s, want 2024-03-11", got)
	}
	if len(retrieved.History) != 2 || retrieved.History[1].ID != "chg-2" {
		t.Errorf("history = %+v", retrieved.History)
	}
}

func TestSaveLotRequiresChangeID(t *testing.T) {
	store := testStore(t)
	lot := fixtureLot("lot-1")
	lot.History[0].ID = ""

	if err := store.SaveLot(context.Background(), lot); err == nil {
		t.Fatal("expected an error for a change without ID")
	}
	if _, err := store.GetLot(context.Background(), "lot-1"); !errors.Is(err, ErrLotNotFound) {
		t.Errorf("failed save left a lot behind: %v", err)
	}
}

func TestGetLotNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetLot(context.Background(), "missing")
	if !errors.Is(err, ErrLotNotFound) {
		t.Errorf("error = %v, want ErrLotNotFound", err)
	}
}

func TestListLots(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	active := fixtureLot("lot-a")
	done := fixtureLot("lot-b")
	done.Status = scheduler.LotComplete
	for _, lot := range []*scheduler.Lot{active, done} {
		if err := store.SaveLot(ctx, lot); err != nil {
			t.Fatalf("failed to save %s: %v", lot.ID, err)
		}
	}

	lots, err := store.ListLots(ctx)
	if err != nil {
		t.Fatalf("failed to list lots: %v", err)
	}
	if len(lots) != 2 || lots[0].ID != "lot-a" || lots[1].Status != scheduler.LotComplete {
		t.Errorf("lots = %+v", lots)
	}
	if lots[0].TargetCompletionDate != day(29) {
		t.Errorf("target = %s, want 2024-03-29", lots[0].TargetCompletionDate)
	}

	all, err := store.ListLotIDs(ctx, false)
	if err != nil {
		t.Fatalf("failed to list ids: %v", err)
	}
	if !reflect.DeepEqual(all, []string{"lot-a", "lot-b"}) {
		t.Errorf("all ids = %v", all)
	}

	activeIDs, err := store.ListLotIDs(ctx, true)
	if err != nil {
		t.Fatalf("failed to list active ids: %v", err)
	}
	if !reflect.DeepEqual(activeIDs, []string{"lot-a"}) {
		t.Errorf("active ids = %v", activeIDs)
	}
}

func TestDeleteLot(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveLot(ctx, fixtureLot("lot-1")); err != nil {
		t.Fatalf("failed to save lot: %v", err)
	}
	if err := store.SaveInspection(ctx, "lot-1", scheduler.Inspection{ID: "i-1", TaskID: "frame", Result: scheduler.InspectionPass}); err != nil {
		t.Fatalf("failed to save inspection: %v", err)
	}

	if err := store.DeleteLot(ctx, "lot-1"); err != nil {
		t.Fatalf("failed to delete lot: %v", err)
	}
	if _, err := store.GetLot(ctx, "lot-1"); !errors.Is(err, ErrLotNotFound) {
		t.Errorf("lot still present: %v", err)
	}
	inspections, err := store.ListInspections(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to list inspections: %v", err)
	}
	if len(inspections) != 0 {
		t.Errorf("inspections left behind: %+v", inspections)
	}

	if err := store.DeleteLot(ctx, "lot-1"); !errors.Is(err, ErrLotNotFound) {
		t.Errorf("second delete error = %v, want ErrLotNotFound", err)
	}
}

func TestMarkNotified(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveLot(ctx, fixtureLot("lot-1")); err != nil {
		t.Fatalf("failed to save lot: %v", err)
	}
	if err := store.MarkNotified(ctx, "chg-1"); err != nil {
		t.Fatalf("failed to mark notified: %v", err)
	}

	changes, err := store.ListScheduleChanges(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to list changes: %v", err)
	}
	if len(changes) != 1 || !changes[0].Notified {
		t.Errorf("changes = %+v", changes)
	}

	if err := store.MarkNotified(ctx, "nope"); err == nil {
		t.Error("expected an error for an unknown change")
	}
}

func TestInspections(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveLot(ctx, fixtureLot("lot-1")); err != nil {
		t.Fatalf("failed to save lot: %v", err)
	}

	first := scheduler.Inspection{ID: "i-1", TaskID: "frame", Result: scheduler.InspectionFail, Status: "scheduled"}
	if err := store.SaveInspection(ctx, "lot-1", first); err != nil {
		t.Fatalf("failed to save inspection: %v", err)
	}
	first.Result = scheduler.InspectionPass
	first.Status = "closed"
	if err := store.SaveInspection(ctx, "lot-1", first); err != nil {
		t.Fatalf("failed to update inspection: %v", err)
	}

	inspections, err := store.ListInspections(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to list inspections: %v", err)
	}
	if len(inspections) != 1 || inspections[0] != first {
		t.Errorf("inspections = %+v, want [%+v]", inspections, first)
	}
}

func TestSubcontractors(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	subs := []scheduler.Subcontractor{
		{ID: "zeta", Name: "Zeta Paint", Trade: "paint", MaxConcurrentLots: 3},
		{ID: "acme", Name: "Acme Framing", Trade: "framing", MaxConcurrentLots: 1},
	}
	for _, sub := range subs {
		if err := store.SaveSubcontractor(ctx, sub); err != nil {
			t.Fatalf("failed to save %s: %v", sub.ID, err)
		}
	}
	subs[1].MaxConcurrentLots = 2
	if err := store.SaveSubcontractor(ctx, subs[1]); err != nil {
		t.Fatalf("failed to update acme: %v", err)
	}

	got, err := store.ListSubcontractors(ctx)
	if err != nil {
		t.Fatalf("failed to list subcontractors: %v", err)
	}
	want := []scheduler.Subcontractor{subs[1], subs[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("subcontractors = %+v, want %+v", got, want)
	}
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "lotsched.db")

	store, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.SaveLot(ctx, fixtureLot("lot-1")); err != nil {
		t.Fatalf("failed to save lot: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	lot, err := reopened.GetLot(ctx, "lot-1")
	if err != nil {
		t.Fatalf("failed to get lot after reopen: %v", err)
	}
	if len(lot.Tasks) != 3 {
		t.Errorf("tasks = %d, want 3", len(lot.Tasks))
	}
}

func TestIsConstraintViolation(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	lot := fixtureLot("lot-1")
	lot.Tasks = append(lot.Tasks, lot.Tasks[0])

	err := store.SaveLot(ctx, lot)
	if err == nil {
		t.Fatal("expected duplicate task IDs to fail")
	}
	if !IsConstraintViolation(err) {
		t.Errorf("IsConstraintViolation(%v) = false, want true", err)
	}
	if IsConstraintViolation(ErrLotNotFound) || IsConstraintViolation(nil) {
		t.Error("IsConstraintViolation matched a non-SQLite error")
	}

	if _, err := store.GetLot(ctx, "lot-1"); !errors.Is(err, ErrLotNotFound) {
		t.Errorf("failed save left a lot behind: %v", err)
	}
}
