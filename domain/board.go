package domain

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// TaskStore defines the persistence gateway operations the board needs.
// Implementations assign ID and CreatedAt on insert.
type TaskStore interface {
	InsertTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, upd TaskUpdate) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// EvidenceVault stores uploaded evidence bytes and returns a retrievable
// reference.
type EvidenceVault interface {
	Store(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// TaskUpdate carries a partial update for a task. Nil pointer fields are
// left untouched; ClearEvidence removes the attachment.
type TaskUpdate struct {
	ID            string
	Status        *string
	Evidence      *Evidence
	ClearEvidence bool
}

// FileUpload is raw evidence content captured from the caller.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// EvidenceInput is the polymorphic evidence supplied when completing a
// task: a file, a link, both, or neither.
type EvidenceInput struct {
	Link string
	File *FileUpload
}

// Empty reports whether no evidence was supplied.
func (in EvidenceInput) Empty() bool {
	return in.File == nil && in.Link == ""
}

// ToggleResult is the outcome of toggling a task. Toggling a pending task
// never completes it directly; it signals that evidence capture should
// begin.
type ToggleResult struct {
	AwaitingEvidence bool `json:"awaitingEvidence"`
	Task             Task `json:"task"`
}

// Board owns the task lifecycle. Every mutation goes to the store first and
// nothing is reported as done until the store confirms, so a failed write
// leaves no half-applied state behind.
type Board struct {
	store TaskStore
	vault EvidenceVault
}

// NewBoard creates a Board over the given gateway and evidence vault.
func NewBoard(store TaskStore, vault EvidenceVault) *Board {
	return &Board{store: store, vault: vault}
}

// Create validates input and persists a new pending task.
func (b *Board) Create(ctx context.Context, title, member string, weight int, deadline string) (Task, error) {
	t, err := NewTask(title, member, weight, deadline)
	if err != nil {
		return Task{}, err
	}
	created, err := b.store.InsertTask(ctx, t)
	if err != nil {
		return Task{}, &StoreUnavailableError{Op: "create task", Err: err}
	}
	return created, nil
}

// Toggle flips a task's direction. A pending task is not completed here;
// the caller gets an awaiting-evidence result and nothing is written. A
// completed task is reopened and its evidence cleared.
func (b *Board) Toggle(ctx context.Context, id string) (ToggleResult, error) {
	t, err := b.getTask(ctx, id)
	if err != nil {
		return ToggleResult{}, err
	}
	if t.Status == StatusPending {
		return ToggleResult{AwaitingEvidence: true, Task: *t}, nil
	}
	status := StatusPending
	reopened, err := b.store.UpdateTask(ctx, TaskUpdate{ID: id, Status: &status, ClearEvidence: true})
	if err != nil {
		return ToggleResult{}, &StoreUnavailableError{Op: "reopen task", Err: err}
	}
	return ToggleResult{Task: reopened}, nil
}

// CompleteWithEvidence marks a task completed, recording the supplied
// evidence. When both a file and a link are present the file wins and the
// link is discarded. With no evidence at all this is SkipWithoutEvidence.
// Completing an already completed task without new evidence is a no-op.
func (b *Board) CompleteWithEvidence(ctx context.Context, id string, in EvidenceInput) (Task, error) {
	t, err := b.getTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.Status == StatusCompleted && in.Empty() {
		return *t, nil
	}

	ev, err := b.buildEvidence(ctx, in)
	if err != nil {
		return Task{}, err
	}
	status := StatusCompleted
	upd := TaskUpdate{ID: id, Status: &status, Evidence: ev, ClearEvidence: ev == nil}
	completed, err := b.store.UpdateTask(ctx, upd)
	if err != nil {
		return Task{}, &StoreUnavailableError{Op: "complete task", Err: err}
	}
	return completed, nil
}

// SkipWithoutEvidence completes a task with no attachment.
func (b *Board) SkipWithoutEvidence(ctx context.Context, id string) (Task, error) {
	return b.CompleteWithEvidence(ctx, id, EvidenceInput{})
}

// Delete removes a task permanently.
func (b *Board) Delete(ctx context.Context, id string) error {
	if _, err := b.getTask(ctx, id); err != nil {
		return err
	}
	if err := b.store.DeleteTask(ctx, id); err != nil {
		return &StoreUnavailableError{Op: "delete task", Err: err}
	}
	return nil
}

func (b *Board) getTask(ctx context.Context, id string) (*Task, error) {
	t, err := b.store.GetTask(ctx, id)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "load task", Err: err}
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// buildEvidence turns raw input into a persisted evidence record. File
// uploads are handed to the vault first; the task record only ever carries
// the returned reference.
func (b *Board) buildEvidence(ctx context.Context, in EvidenceInput) (*Evidence, error) {
	if in.File != nil {
		ref, err := b.vault.Store(ctx, in.File.Name, in.File.MimeType, in.File.Data)
		if err != nil {
			log.WithError(err).WithField("name", in.File.Name).Error("evidence upload failed")
			return nil, &StoreUnavailableError{Op: "store evidence", Err: err}
		}
		return &Evidence{
			Type:     EvidenceFile,
			URL:      ref,
			Name:     in.File.Name,
			MimeType: in.File.MimeType,
			Size:     in.File.Size,
		}, nil
	}
	if in.Link != "" {
		return &Evidence{Type: EvidenceLink, URL: in.Link}, nil
	}
	return nil, nil
}
