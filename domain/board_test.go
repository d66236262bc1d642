package domain

import (
	"context"
	"errors"
	"testing"
)

func newTestBoard() (*Board, *fakeStore, *fakeVault) {
	fs := &fakeStore{}
	fv := &fakeVault{}
	return NewBoard(fs, fv), fs, fv
}

func TestCreatePendingWithoutEvidence(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	for w := 1; w <= 10; w++ {
		task, err := b.Create(ctx, "Edit intro", "Bob", w, "")
		if err != nil {
			t.Fatalf("create weight %d: %v", w, err)
		}
		if task.Status != StatusPending || task.Evidence != nil {
			t.Fatalf("unexpected new task state: %#v", task)
		}
		if task.ID == "" || task.CreatedAt.IsZero() {
			t.Fatalf("store should assign id and createdAt: %#v", task)
		}
	}
	if len(fs.tasks) != 10 {
		t.Fatalf("expected 10 stored tasks, got %d", len(fs.tasks))
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	cases := []struct {
		name     string
		title    string
		member   string
		weight   int
		deadline string
	}{
		{"empty title", "", "Bob", 3, ""},
		{"blank title", "   ", "Bob", 3, ""},
		{"empty member", "Edit", "", 3, ""},
		{"weight too low", "Edit", "Bob", 0, ""},
		{"weight too high", "Edit", "Bob", 11, ""},
		{"bad deadline", "Edit", "Bob", 3, "someday"},
	}
	for _, tc := range cases {
		_, err := b.Create(ctx, tc.title, tc.member, tc.weight, tc.deadline)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
	if len(fs.tasks) != 0 {
		t.Fatalf("rejected creates must not write, got %d tasks", len(fs.tasks))
	}
}

func TestCreateTrimsTitleAndMember(t *testing.T) {
	b, _, _ := newTestBoard()
	task, err := b.Create(context.Background(), "  Edit  ", " Bob ", 3, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "Edit" || task.Member != "Bob" {
		t.Fatalf("expected trimmed fields, got %q / %q", task.Title, task.Member)
	}
}

func TestTogglePendingAwaitsEvidence(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	task, err := b.Create(ctx, "Edit", "Bob", 3, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := b.Toggle(ctx, task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.AwaitingEvidence {
		t.Fatalf("toggling a pending task must request evidence capture")
	}
	if fs.updates != 0 {
		t.Fatalf("toggling a pending task must not write, got %d updates", fs.updates)
	}
	if got := fs.tasks[task.ID]; got.Status != StatusPending {
		t.Fatalf("task mutated: %#v", got)
	}
}

func TestToggleCompletedReopensAndClearsEvidence(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	if _, err := b.CompleteWithEvidence(ctx, task.ID, EvidenceInput{Link: "https://x"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	res, err := b.Toggle(ctx, task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res.AwaitingEvidence {
		t.Fatalf("reopen must not request evidence")
	}
	if res.Task.Status != StatusPending || res.Task.Evidence != nil {
		t.Fatalf("expected pending task with no evidence: %#v", res.Task)
	}
	if got := fs.tasks[task.ID]; got.Status != StatusPending || got.Evidence != nil {
		t.Fatalf("stored task not reopened: %#v", got)
	}
}

func TestCompleteWithLinkEvidence(t *testing.T) {
	b, _, fv := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	done, err := b.CompleteWithEvidence(ctx, task.ID, EvidenceInput{Link: "https://x"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", done.Status)
	}
	if done.Evidence == nil || done.Evidence.Type != EvidenceLink || done.Evidence.URL != "https://x" {
		t.Fatalf("unexpected evidence: %#v", done.Evidence)
	}
	if len(fv.stored) != 0 {
		t.Fatalf("link evidence must bypass the vault")
	}
}

func TestCompleteFileWinsOverLink(t *testing.T) {
	b, _, fv := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	in := EvidenceInput{
		Link: "https://ignored",
		File: &FileUpload{Name: "proof.pdf", MimeType: "application/pdf", Size: 4, Data: []byte("1234")},
	}
	done, err := b.CompleteWithEvidence(ctx, task.ID, in)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	ev := done.Evidence
	if ev == nil || ev.Type != EvidenceFile || ev.Name != "proof.pdf" {
		t.Fatalf("expected file evidence, got %#v", ev)
	}
	if ev.URL != "https://vault.example/proof.pdf" {
		t.Fatalf("expected vault reference, got %q", ev.URL)
	}
	if ev.MimeType != "application/pdf" || ev.Size != 4 {
		t.Fatalf("file metadata lost: %#v", ev)
	}
	if len(fv.stored) != 1 {
		t.Fatalf("expected one vault upload, got %d", len(fv.stored))
	}
}

func TestCompleteWithoutEvidenceIsSkip(t *testing.T) {
	b, _, _ := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	done, err := b.CompleteWithEvidence(ctx, task.ID, EvidenceInput{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted || done.Evidence != nil {
		t.Fatalf("expected evidence-free completion: %#v", done)
	}
}

func TestSkipTwiceIsNoOp(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	first, err := b.SkipWithoutEvidence(ctx, task.ID)
	if err != nil {
		t.Fatalf("first skip: %v", err)
	}
	writes := fs.updates
	second, err := b.SkipWithoutEvidence(ctx, task.ID)
	if err != nil {
		t.Fatalf("second skip: %v", err)
	}
	if fs.updates != writes {
		t.Fatalf("second skip must not write")
	}
	if second.Status != first.Status || second.Evidence != nil {
		t.Fatalf("state changed on repeated skip: %#v", second)
	}
}

func TestCompleteThenReopenRoundTrip(t *testing.T) {
	b, _, _ := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	if _, err := b.CompleteWithEvidence(ctx, task.ID, EvidenceInput{Link: "https://x"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	res, err := b.Toggle(ctx, task.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res.Task.Status != StatusPending || res.Task.Evidence != nil {
		t.Fatalf("round trip should land on pending with no evidence: %#v", res.Task)
	}
}

func TestOperationsOnMissingTask(t *testing.T) {
	b, _, _ := newTestBoard()
	ctx := context.Background()
	if _, err := b.Toggle(ctx, "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("toggle: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := b.CompleteWithEvidence(ctx, "nope", EvidenceInput{}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("complete: expected ErrTaskNotFound, got %v", err)
	}
	if err := b.Delete(ctx, "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("delete: expected ErrTaskNotFound, got %v", err)
	}
}

func TestStoreFailureLeavesTaskUntouched(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	fs.updateErr = errors.New("table down")
	_, err := b.CompleteWithEvidence(ctx, task.ID, EvidenceInput{Link: "https://x"})
	var serr *StoreUnavailableError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
	if got := fs.tasks[task.ID]; got.Status != StatusPending || got.Evidence != nil {
		t.Fatalf("failed write must not leave partial state: %#v", got)
	}
}

func TestVaultFailureDoesNotCompleteTask(t *testing.T) {
	b, fs, fv := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	fv.storeErr = errors.New("blob down")
	in := EvidenceInput{File: &FileUpload{Name: "proof.pdf", Data: []byte("x"), Size: 1}}
	_, err := b.CompleteWithEvidence(ctx, task.ID, in)
	var serr *StoreUnavailableError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
	if got := fs.tasks[task.ID]; got.Status != StatusPending {
		t.Fatalf("task must stay pending when upload fails: %#v", got)
	}
}

func TestDeleteRemovesTask(t *testing.T) {
	b, fs, _ := newTestBoard()
	ctx := context.Background()
	task, _ := b.Create(ctx, "Edit", "Bob", 3, "")
	if err := b.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := fs.tasks[task.ID]; ok {
		t.Fatalf("task still present after delete")
	}
}
