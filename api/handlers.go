package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"teambalance/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, board *domain.Board, store Storage, deduper Deduper, broker *UpdateBroker, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(store, logger))
	e.GET("/api/stats", getStats(store))
	e.POST("/api/tasks", createTask(board, deduper))
	e.POST("/api/tasks/:id/toggle", toggleTask(board, deduper))
	e.POST("/api/tasks/:id/complete", completeTask(board, deduper))
	e.POST("/api/tasks/:id/skip", skipTask(board, deduper))
	e.DELETE("/api/tasks/:id", deleteTask(board, deduper))
	e.GET("/stream", streamTasks(store, broker))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func buildTaskViews(tasks []domain.Task, now time.Time) []taskView {
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView{
			Task:           t,
			DeadlineStatus: domain.ClassifyDeadline(t.Deadline, t.Status == domain.StatusCompleted, now),
		})
	}
	return views
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		tasks, fetchErr := store.FetchTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusBadGateway, fetchErr.Error())
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: buildTaskViews(tasks, time.Now().UTC())})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getStats(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		tasks, err := store.FetchTasks(ctx)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, err.Error())
		}
		stats := domain.MemberStats(tasks)
		members := make([]memberView, 0, len(stats))
		for _, s := range stats {
			members = append(members, memberView{MemberStat: s, CompletionRate: s.CompletionRate()})
		}
		return c.JSON(http.StatusOK, statsResponse{
			Members:     members,
			Split:       domain.ContributionSplit(tasks),
			TotalPoints: domain.TotalGroupPoints(tasks),
		})
	}
}

func createTask(board *domain.Board, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		lr := io.LimitReader(c.Request().Body, createTaskMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req createTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		key, proceed, err := claimIdempotencyKey(c, deduper)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		if !proceed {
			return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
		}
		task, err := board.Create(c.Request().Context(), req.Title, req.Member, req.Weight, req.Deadline)
		if err != nil {
			releaseIdempotencyKey(c, deduper, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func toggleTask(board *domain.Board, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		key, proceed, err := claimIdempotencyKey(c, deduper)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		if !proceed {
			return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
		}
		res, err := board.Toggle(ctx, c.Param("id"))
		if err != nil {
			releaseIdempotencyKey(c, deduper, key)
			return writeError(c, err)
		}
		if res.AwaitingEvidence {
			// Nothing was written; the caller is expected to retry with
			// evidence, so the key must stay claimable.
			releaseIdempotencyKey(c, deduper, key)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func completeTask(board *domain.Board, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		in, err := readEvidenceInput(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		key, proceed, err := claimIdempotencyKey(c, deduper)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		if !proceed {
			return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
		}
		task, err := board.CompleteWithEvidence(ctx, c.Param("id"), in)
		if err != nil {
			releaseIdempotencyKey(c, deduper, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func skipTask(board *domain.Board, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		key, proceed, err := claimIdempotencyKey(c, deduper)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		if !proceed {
			return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
		}
		task, err := board.SkipWithoutEvidence(ctx, c.Param("id"))
		if err != nil {
			releaseIdempotencyKey(c, deduper, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(board *domain.Board, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		key, proceed, err := claimIdempotencyKey(c, deduper)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		if !proceed {
			return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
		}
		if err := board.Delete(c.Request().Context(), c.Param("id")); err != nil {
			releaseIdempotencyKey(c, deduper, key)
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// readEvidenceInput accepts either a multipart form with an optional file
// part and link field, or a plain JSON body with a link. An empty input is
// valid and means completion without evidence.
func readEvidenceInput(c echo.Context) (domain.EvidenceInput, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		in := domain.EvidenceInput{Link: strings.TrimSpace(c.FormValue("link"))}
		fh, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return in, nil
			}
			return domain.EvidenceInput{}, errors.New("invalid multipart body")
		}
		if fh.Size > evidenceMaxSize {
			return domain.EvidenceInput{}, errors.New("evidence file too large")
		}
		f, err := fh.Open()
		if err != nil {
			return domain.EvidenceInput{}, errors.New("unreadable evidence file")
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, evidenceMaxSize))
		if err != nil {
			return domain.EvidenceInput{}, errors.New("unreadable evidence file")
		}
		in.File = &domain.FileUpload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get(echo.HeaderContentType),
			Size:     fh.Size,
			Data:     data,
		}
		return in, nil
	}

	if c.Request().ContentLength == 0 {
		return domain.EvidenceInput{}, nil
	}
	var req completeTaskRequest
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, createTaskMaxSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.EvidenceInput{}, errors.New("invalid body")
	}
	return domain.EvidenceInput{Link: strings.TrimSpace(req.Link)}, nil
}

// claimIdempotencyKey honors an optional Idempotency-Key header. Requests
// without the header always proceed.
func claimIdempotencyKey(c echo.Context, deduper Deduper) (string, bool, error) {
	key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
	if key == "" || deduper == nil {
		return "", true, nil
	}
	added, err := deduper.Add(c.Request().Context(), key)
	if err != nil {
		return "", false, err
	}
	return key, added, nil
}

func releaseIdempotencyKey(c echo.Context, deduper Deduper, key string) {
	if key == "" || deduper == nil {
		return
	}
	if err := deduper.Remove(c.Request().Context(), key); err != nil {
		c.Logger().Errorf("dedupe rollback failed: %v, key: %s", err, key)
	}
}

func writeError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.String(http.StatusBadRequest, verr.Error())
	}
	if errors.Is(err, domain.ErrTaskNotFound) {
		return c.String(http.StatusNotFound, "task not found")
	}
	var serr *domain.StoreUnavailableError
	if errors.As(err, &serr) {
		c.Logger().Error(serr)
		return c.String(http.StatusBadGateway, serr.Error())
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}
