package sermonimport

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

func TestPlanCollectionSync(t *testing.T) {
	existing := []CollectionRecord{
		{ID: "c1", Name: "Zending"},
		{ID: "c2", Name: "Kerk", Description: sp("old")},
		{ID: "c3", Name: "Bouw"},
		{ID: "", Name: "ignored"},
	}
	desired := []Collection{
		{Name: "zending"},
		{Name: "Kerk", Description: "new"},
		{Name: "Diaconie", Description: " x "},
		{Name: "  "},
	}

	ops := planCollectionSync(existing, desired)
	if len(ops) != 3 {
		t.Fatalf("ops = %+v, want 3", ops)
	}

	if ops[0].kind != "update" || ops[0].id != "c2" || ops[0].description == nil || *ops[0].description != "new" {
		t.Errorf("ops[0] = %+v, want update c2 -> new", ops[0])
	}
	if ops[1].kind != "insert" || ops[1].name != "Diaconie" || ops[1].description == nil || *ops[1].description != "x" {
		t.Errorf("ops[1] = %+v, want insert Diaconie", ops[1])
	}
	if ops[2].kind != "delete" || ops[2].id != "c3" {
		t.Errorf("ops[2] = %+v, want delete c3", ops[2])
	}
}

func TestPlanCollectionSync_RepeatedNamesPairUp(t *testing.T) {
	tests := []struct {
		name     string
		existing []CollectionRecord
		desired  []Collection
		want     []string
	}{
		{
			name:     "second occurrence is inserted",
			existing: []CollectionRecord{{ID: "c1", Name: "Zending"}},
			desired:  []Collection{{Name: "Zending"}, {Name: "zending"}},
			want:     []string{"insert zending"},
		},
		{
			name:     "both occurrences persisted",
			existing: []CollectionRecord{{ID: "c1", Name: "Zending"}, {ID: "c2", Name: "zending"}},
			desired:  []Collection{{Name: "Zending"}, {Name: "zending"}},
			want:     nil,
		},
		{
			name:     "surplus persisted copy is deleted",
			existing: []CollectionRecord{{ID: "c1", Name: "Zending"}, {ID: "c2", Name: "zending", Description: sp("x")}},
			desired:  []Collection{{Name: "ZENDING", Description: "y"}},
			want:     []string{"update c1", "delete c2"},
		},
		{
			name:     "no description fan-out to one id",
			existing: []CollectionRecord{{ID: "c1", Name: "Zending"}},
			desired:  []Collection{{Name: "Zending", Description: "a"}, {Name: "zending", Description: "b"}},
			want:     []string{"update c1", "insert zending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, op := range planCollectionSync(tt.existing, tt.desired) {
				switch op.kind {
				case "insert":
					got = append(got, "insert "+op.name)
				default:
					got = append(got, op.kind+" "+op.id)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ops = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ops[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPlanCollectionSync_NoChanges(t *testing.T) {
	ops := planCollectionSync(
		[]CollectionRecord{{ID: "c1", Name: "Zending", Description: sp("x")}},
		[]Collection{{Name: "ZENDING", Description: "x"}},
	)
	if len(ops) != 0 {
		t.Errorf("ops = %+v, want none", ops)
	}
}

// fakeCollections records collection mutations.
type fakeCollections struct {
	mu        sync.Mutex
	existing  []CollectionRecord
	calls     []string
	failKind  string
	listError error
}

func (f *fakeCollections) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failKind != "" && len(call) >= len(f.failKind) && call[:len(f.failKind)] == f.failKind {
		return errors.New(f.failKind + " refused")
	}
	return nil
}

func (f *fakeCollections) InsertCollections(ctx context.Context, sermonID string, in []CollectionInput) error {
	return f.record("insertMany")
}

func (f *fakeCollections) ListCollections(ctx context.Context, sermonID string) ([]CollectionRecord, error) {
	return f.existing, f.listError
}

func (f *fakeCollections) InsertCollection(ctx context.Context, sermonID string, in CollectionInput) error {
	return f.record("insert:" + in.Name)
}

func (f *fakeCollections) UpdateCollection(ctx context.Context, id string, description *string) error {
	return f.record("update:" + id)
}

func (f *fakeCollections) DeleteCollection(ctx context.Context, id string) error {
	return f.record("delete:" + id)
}

func TestSyncCollections(t *testing.T) {
	store := &fakeCollections{existing: []CollectionRecord{
		{ID: "c1", Name: "Zending", Description: sp("a")},
		{ID: "c2", Name: "Bouw"},
	}}

	err := SyncCollections(context.Background(), store, "se-1", []Collection{
		{Name: "Zending", Description: "b"},
		{Name: "Diaconie"},
	})
	if err != nil {
		t.Fatalf("SyncCollections() error = %v", err)
	}

	sort.Strings(store.calls)
	want := []string{"delete:c2", "insert:Diaconie", "update:c1"}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	for i := range want {
		if store.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, store.calls[i], want[i])
		}
	}
}

func TestSyncCollections_FailureFailsSync(t *testing.T) {
	store := &fakeCollections{
		existing: []CollectionRecord{{ID: "c1", Name: "Bouw"}},
		failKind: "delete",
	}

	err := SyncCollections(context.Background(), store, "se-1", []Collection{{Name: "Diaconie"}})
	if err == nil {
		t.Fatal("expected error when a delete fails")
	}
}

func TestSyncCollections_ListFailure(t *testing.T) {
	listErr := errors.New("connection reset")
	store := &fakeCollections{listError: listErr}

	err := SyncCollections(context.Background(), store, "se-1", nil)
	if !errors.Is(err, listErr) {
		t.Fatalf("error = %v, want wrapped %v", err, listErr)
	}
	if len(store.calls) != 0 {
		t.Errorf("no mutations expected, got %v", store.calls)
	}
}
