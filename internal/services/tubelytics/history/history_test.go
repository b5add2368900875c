package history

import (
	"strconv"
	"testing"

	"tubelytics/internal/services/tubelytics/domain"
)

func batch(q string, ids ...string) domain.SearchBatch {
	b := domain.SearchBatch{Query: q}
	for _, id := range ids {
		b.Results = append(b.Results, domain.VideoRecord{ID: id})
	}
	return b
}

func TestStoreLifecycle(t *testing.T) {
	s := New(0)
	if _, ok := s.Get("s1"); ok {
		t.Fatalf("unknown session should not be found")
	}

	s.Create("s1")
	got, ok := s.Get("s1")
	if !ok || got == nil || len(got) != 0 {
		t.Fatalf("new session history = %v, %v", got, ok)
	}

	s.Record("s1", batch("cats", "v1"))
	s.Record("s1", batch("dogs", "v2"))
	got, _ = s.Get("s1")
	if len(got) != 2 || got[0].Query != "dogs" || got[1].Query != "cats" {
		t.Fatalf("history not newest first: %+v", got)
	}

	s.Drop("s1")
	if _, ok := s.Get("s1"); ok {
		t.Fatalf("dropped session still readable")
	}
	if s.Len() != 0 {
		t.Fatalf("Len after drop = %d", s.Len())
	}
}

func TestStoreCapsAtSize(t *testing.T) {
	s := New(3)
	s.Create("s")
	for i := range 5 {
		s.Record("s", batch("q"+strconv.Itoa(i)))
	}
	got, _ := s.Get("s")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"q4", "q3", "q2"} {
		if got[i].Query != want {
			t.Fatalf("got[%d] = %q, want %q", i, got[i].Query, want)
		}
	}
}

func TestRecordUnknownSessionIgnored(t *testing.T) {
	s := New(2)
	s.Record("ghost", batch("cats", "v1"))
	if _, ok := s.Get("ghost"); ok {
		t.Fatalf("record must not create sessions")
	}
}

func TestStoreCopies(t *testing.T) {
	s := New(2)
	s.Create("s")
	b := batch("cats", "v1")
	s.Record("s", b)
	b.Results[0].ID = "mutated"

	got, _ := s.Get("s")
	if got[0].Results[0].ID != "v1" {
		t.Fatalf("store aliased the caller's slice")
	}
	got[0].Query = "changed"
	again, _ := s.Get("s")
	if again[0].Query != "cats" {
		t.Fatalf("Get returned internal state")
	}
}

func TestCreateKeepsExisting(t *testing.T) {
	s := New(2)
	s.Create("s")
	s.Record("s", batch("cats"))
	s.Create("s")
	if got, _ := s.Get("s"); len(got) != 1 {
		t.Fatalf("Create reset history: %+v", got)
	}
}
