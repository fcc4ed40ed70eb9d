package pipeline

import (
	"strings"
	"testing"
	"time"

	"skripsiforge/internal/merge"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusProfiling, "profiling"},
		{StatusSectioning, "sectioning"},
		{StatusPlanning, "planning"},
		{StatusMerging, "merging"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("profile: no heading styles")
	job.AddError("section: empty content")

	snap := job.Snapshot()
	if len(snap.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Errors))
	}
	if snap.Errors[0] != "profile: no heading styles" {
		t.Errorf("unexpected first error %q", snap.Errors[0])
	}
}

func TestJob_AddWarnings(t *testing.T) {
	job := &Job{ID: "warn-test", UpdatedAt: time.Now()}
	job.AddWarnings([]string{"low confidence: MOTO"})
	job.AddWarnings([]string{"heading level 4 demoted", "classifier unavailable"})

	snap := job.Snapshot()
	if len(snap.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(snap.Warnings))
	}
}

func TestJob_InputsRoundTrip(t *testing.T) {
	job := &Job{ID: "input-test"}
	meta := merge.Metadata{Title: "Sistem Informasi", Author: "Budi"}
	job.SetInputs([]byte("template"), []byte("content"), meta)

	tmpl, content, gotMeta := job.Inputs()
	if string(tmpl) != "template" || string(content) != "content" {
		t.Errorf("unexpected inputs %q / %q", tmpl, content)
	}
	if gotMeta.Title != "Sistem Informasi" || gotMeta.Author != "Budi" {
		t.Errorf("unexpected metadata %+v", gotMeta)
	}
}

func TestJob_SetOutputReleasesInputs(t *testing.T) {
	job := &Job{ID: "out-test", UpdatedAt: time.Now()}
	job.SetInputs([]byte("template"), []byte("content"), merge.Metadata{})
	job.SetOutput([]byte("docx bytes"), &merge.Result{Substitutions: 2})

	if string(job.Output()) != "docx bytes" {
		t.Errorf("unexpected output %q", job.Output())
	}
	tmpl, content, _ := job.Inputs()
	if tmpl != nil || content != nil {
		t.Error("expected inputs released after SetOutput")
	}
	snap := job.Snapshot()
	if snap.Result == nil || snap.Result.Substitutions != 2 {
		t.Errorf("expected result in snapshot, got %+v", snap.Result)
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Warnings == nil {
		t.Error("expected non-nil warnings slice in snapshot")
	}
	if snap.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJob_SetContentHashVisibleInSnapshot(t *testing.T) {
	job := &Job{ID: "hash-test", UpdatedAt: time.Now()}
	want := ContentHashHex([]byte("isi dokumen"))
	job.SetContentHash(want)
	if got := job.Snapshot().ContentHash; got != want {
		t.Errorf("expected hash %q in snapshot, got %q", want, got)
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}

func TestNewJobID_Format(t *testing.T) {
	id := newJobID()
	if len(id) != 26 {
		t.Fatalf("expected 26-character ID, got %d (%q)", len(id), id)
	}
	for _, c := range id {
		if !strings.ContainsRune(crockford, c) {
			t.Errorf("unexpected character %q in ID %q", c, id)
		}
	}
}

func TestNewJobID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newJobID()
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestNewJobID_SortsByTime(t *testing.T) {
	a := newJobID()
	time.Sleep(2 * time.Millisecond)
	b := newJobID()
	if !(a < b) {
		t.Errorf("expected IDs to sort by time: %q then %q", a, b)
	}
}
