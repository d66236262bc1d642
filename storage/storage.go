package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"teambalance/domain"
)

// Storage is the persistence gateway for board tasks, backed by an Azure
// table. After every confirmed mutation it publishes a change notification
// so snapshot subscribers can refresh.
type Storage struct {
	taskTable *aztables.Client
	redis     *redis.Client
	boardID   string
	channel   string
	now       func() time.Time
}

// New creates a Storage instance from the given connection string. The
// redis client may be nil, in which case change notifications are skipped.
func New(connStr, tasksTable, boardID string, rc *redis.Client, channel string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		taskTable: svc.NewClient(tasksTable),
		redis:     rc,
		boardID:   boardID,
		channel:   channel,
		now:       time.Now,
	}, nil
}

type taskEntity struct {
	aztables.Entity
	Title         string `json:"Title"`
	Member        string `json:"Member"`
	Weight        int    `json:"Weight"`
	Deadline      string `json:"Deadline,omitempty"`
	Status        string `json:"Status"`
	Evidence      string `json:"Evidence,omitempty"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
}

const edmInt64 = "Edm.Int64"

func toEntity(boardID string, t domain.Task) (taskEntity, error) {
	ent := taskEntity{
		Entity:        aztables.Entity{PartitionKey: boardID, RowKey: t.ID},
		Title:         t.Title,
		Member:        t.Member,
		Weight:        t.Weight,
		Deadline:      t.Deadline,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt.UnixNano(),
		CreatedAtType: edmInt64,
	}
	if t.Evidence != nil {
		data, err := json.Marshal(t.Evidence)
		if err != nil {
			return taskEntity{}, err
		}
		ent.Evidence = string(data)
	}
	return ent, nil
}

func fromEntity(ent taskEntity) (domain.Task, error) {
	t := domain.Task{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Member:    ent.Member,
		Weight:    ent.Weight,
		Deadline:  ent.Deadline,
		Status:    ent.Status,
		CreatedAt: time.Unix(0, ent.CreatedAt).UTC(),
	}
	if ent.Evidence != "" {
		var ev domain.Evidence
		if err := json.Unmarshal([]byte(ent.Evidence), &ev); err != nil {
			return domain.Task{}, err
		}
		t.Evidence = &ev
	}
	return t, nil
}

// InsertTask persists a new task, assigning its id and creation timestamp.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	ent, err := toEntity(s.boardID, t)
	if err != nil {
		return domain.Task{}, err
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, data, nil); err != nil {
		return domain.Task{}, err
	}
	s.publishChange(ctx)
	return t, nil
}

// GetTask loads a task by id. A missing task is reported as (nil, nil).
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, s.boardID, id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil, nil
		}
		return nil, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	t, err := fromEntity(ent)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial update and returns the stored result. The
// replace is unconditional: the board has a single writer per commit, so
// last write wins and no ETag check is made.
func (s *Storage) UpdateTask(ctx context.Context, upd domain.TaskUpdate) (domain.Task, error) {
	current, err := s.GetTask(ctx, upd.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if current == nil {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	t := *current
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Evidence != nil {
		t.Evidence = upd.Evidence
	} else if upd.ClearEvidence {
		t.Evidence = nil
	}
	ent, err := toEntity(s.boardID, t)
	if err != nil {
		return domain.Task{}, err
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return domain.Task{}, err
	}
	opts := &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}
	if _, err := s.taskTable.UpdateEntity(ctx, data, opts); err != nil {
		return domain.Task{}, err
	}
	s.publishChange(ctx)
	return t, nil
}

// DeleteTask removes a task permanently.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.taskTable.DeleteEntity(ctx, s.boardID, id, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return domain.ErrTaskNotFound
		}
		return err
	}
	s.publishChange(ctx)
	return nil
}

// FetchTasks retrieves the full board snapshot, newest first.
func (s *Storage) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + s.boardID + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			t, err := fromEntity(ent)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

// publishChange is best-effort: the write already succeeded, a missed
// notification only delays the next snapshot push.
func (s *Storage) publishChange(ctx context.Context) {
	if s.redis == nil || s.channel == "" {
		return
	}
	payload, err := json.Marshal(map[string]string{"boardId": s.boardID})
	if err != nil {
		return
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		log.WithError(err).WithField("channel", s.channel).Warn("change notification failed")
	}
}
