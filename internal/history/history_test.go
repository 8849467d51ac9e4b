package history

import (
	"fmt"
	"testing"
	"time"

	"fwt-go/internal/fwt"
)

// stubClock returns a fixed time.
type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

// stubIDs returns sequential IDs: "id-1", "id-2", etc.
type stubIDs struct {
	counter int
}

func (g *stubIDs) New() string {
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	clock := stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	s, err := Open(":memory:", clock, &stubIDs{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInvocationLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.RecordInvocation("Dedup", "myworld")
	if err != nil {
		t.Fatalf("RecordInvocation() error = %v", err)
	}
	if id == "" {
		t.Fatal("RecordInvocation() returned empty id")
	}

	if err := s.FinishInvocation(id, "session.0", "success"); err != nil {
		t.Fatalf("FinishInvocation() error = %v", err)
	}

	invocations, err := s.ListInvocations(10)
	if err != nil {
		t.Fatalf("ListInvocations() error = %v", err)
	}
	if len(invocations) != 1 {
		t.Fatalf("ListInvocations() = %d entries, want 1", len(invocations))
	}

	inv := invocations[0]
	if inv.ID != id {
		t.Errorf("ID = %q, want %q", inv.ID, id)
	}
	if inv.Command != "Dedup" || inv.Project != "myworld" {
		t.Errorf("invocation = %+v", inv)
	}
	if inv.Session != "session.0" || inv.Status != "success" {
		t.Errorf("invocation = %+v", inv)
	}
	if !inv.FinishedAt.Valid {
		t.Errorf("FinishedAt not set")
	}
}

func TestRecordMapping(t *testing.T) {
	s := newTestStore(t)

	id, err := s.RecordInvocation("RenameAll", "myworld")
	if err != nil {
		t.Fatalf("RecordInvocation() error = %v", err)
	}

	records := []MappingRecord{
		{InvocationID: id, Source: "a.png", Dest: "b.png", Documents: 1, Occurrences: 2},
		{InvocationID: id, Source: "dup.png", Dest: "keep.png", Trashed: true},
		{InvocationID: id, Source: "x.png", Dest: "y.png", Error: "destination exists"},
	}
	for _, rec := range records {
		if err := s.RecordMapping(rec); err != nil {
			t.Fatalf("RecordMapping() error = %v", err)
		}
	}

	got, err := s.ListMappings(id)
	if err != nil {
		t.Fatalf("ListMappings() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListMappings() = %d entries, want 3", len(got))
	}
	if got[0].Source != "a.png" || got[0].Occurrences != 2 {
		t.Errorf("mapping 0 = %+v", got[0])
	}
	if !got[1].Trashed {
		t.Errorf("mapping 1 not trashed: %+v", got[1])
	}
	if got[2].Error != "destination exists" {
		t.Errorf("mapping 2 error = %q", got[2].Error)
	}
}

func TestListInvocationsOrder(t *testing.T) {
	clock := &advancingClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	s, err := Open(":memory:", clock, &stubIDs{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := s.RecordInvocation("First", "w"); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(time.Minute)
	if _, err := s.RecordInvocation("Second", "w"); err != nil {
		t.Fatal(err)
	}

	invocations, err := s.ListInvocations(10)
	if err != nil {
		t.Fatalf("ListInvocations() error = %v", err)
	}
	if invocations[0].Command != "Second" {
		t.Errorf("newest first, got %q", invocations[0].Command)
	}

	limited, err := s.ListInvocations(1)
	if err != nil {
		t.Fatalf("ListInvocations() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListInvocations(1) = %d entries, want 1", len(limited))
	}
}

type advancingClock struct {
	now time.Time
}

func (c *advancingClock) Now() time.Time { return c.now }

var _ fwt.Clock = (*advancingClock)(nil)
