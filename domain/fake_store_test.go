package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type fakeStore struct {
	tasks   map[string]Task
	nextID  int
	updates int

	insertErr error
	updateErr error
	deleteErr error
	getErr    error
}

func (f *fakeStore) InsertTask(ctx context.Context, t Task) (Task, error) {
	if f.insertErr != nil {
		return Task{}, f.insertErr
	}
	if f.tasks == nil {
		f.tasks = map[string]Task{}
	}
	f.nextID++
	t.ID = fmt.Sprintf("t%d", f.nextID)
	t.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.nextID) * time.Minute)
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*Task, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, upd TaskUpdate) (Task, error) {
	if f.updateErr != nil {
		return Task{}, f.updateErr
	}
	t, ok := f.tasks[upd.ID]
	if !ok {
		return Task{}, errors.New("update of missing task")
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Evidence != nil {
		t.Evidence = upd.Evidence
	} else if upd.ClearEvidence {
		t.Evidence = nil
	}
	f.tasks[upd.ID] = t
	f.updates++
	return t, nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.tasks, id)
	return nil
}

type fakeVault struct {
	stored   []string
	storeErr error
}

func (f *fakeVault) Store(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored = append(f.stored, name)
	return "https://vault.example/" + name, nil
}
