package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Swapnanilmanna1701/tracker/domain"
)

var now = time.Now

var errTitleRequired = errors.New("title is required")

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, tasks TaskService, sessions SessionStore, logger *log.Logger) {
	e.Use(RequestMetricsMiddleware(logger))

	e.GET("/healthz", healthz())
	e.POST("/api/session", login(sessions, logger))
	e.GET("/api/session", getSession(sessions))
	e.DELETE("/api/session", logout(sessions, logger))

	g := e.Group("/api", requireSession(sessions))
	g.GET("/tasks", listTasks(tasks))
	g.POST("/tasks", createTask(tasks))
	g.PUT("/tasks/:id", updateTask(tasks))
	g.POST("/tasks/:id/toggle", toggleTask(tasks))
	g.DELETE("/tasks/:id", deleteTask(tasks))
	g.GET("/stats", getStats(tasks))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func listTasks(tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter, err := domain.ParseFilter(c.QueryParam("filter"))
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid_filter", err.Error())
		}
		view := tasks.ComputeView(filter, c.QueryParam("q"))
		ts := now()
		resp := tasksResponse{Tasks: make([]taskView, len(view)), Stats: tasks.ComputeStats()}
		for i, t := range view {
			resp.Tasks[i] = taskView{Task: t, Overdue: t.Overdue(ts)}
		}
		metricsFrom(c).SetTasksReturned(len(view))
		return c.JSON(http.StatusOK, resp)
	}
}

func createTask(tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, "decode", "invalid body")
		}
		task, err := req.toTask()
		if err != nil {
			return fail(c, http.StatusBadRequest, "validate", err.Error())
		}
		created, ok := tasks.AddTask(c.Request().Context(), domain.TaskInput{
			Title:       task.Title,
			Description: task.Description,
			Completed:   task.Completed,
			Priority:    task.Priority,
			DueDate:     task.DueDate,
			Category:    task.Category,
		})
		if !ok {
			return fail(c, http.StatusBadRequest, "validate", errTitleRequired.Error())
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func updateTask(tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, "decode", "invalid body")
		}
		task, err := req.fields().toTask()
		if err != nil {
			return fail(c, http.StatusBadRequest, "validate", err.Error())
		}
		task.ID = c.Param("id")
		updated, ok := tasks.UpdateTask(c.Request().Context(), task)
		if !ok {
			return fail(c, http.StatusNotFound, "not_found", "task not found")
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func toggleTask(tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, ok := tasks.ToggleComplete(c.Request().Context(), c.Param("id"))
		if !ok {
			return fail(c, http.StatusNotFound, "not_found", "task not found")
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks.DeleteTask(c.Request().Context(), c.Param("id"))
		return c.NoContent(http.StatusNoContent)
	}
}

func getStats(tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, tasks.ComputeStats())
	}
}

// toTask validates the request. An omitted priority is left empty so that
// updates keep the stored value and additions default to Medium.
func (r taskRequest) toTask() (domain.Task, error) {
	t := domain.Task{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Completed:   r.Completed,
		Category:    r.Category,
	}
	if t.Title == "" {
		return domain.Task{}, errTitleRequired
	}
	if strings.TrimSpace(r.Priority) != "" {
		p, err := domain.ParsePriority(r.Priority)
		if err != nil {
			return domain.Task{}, err
		}
		t.Priority = p
	}
	if r.DueDate != nil && strings.TrimSpace(*r.DueDate) != "" {
		due, err := parseDueDate(*r.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		t.DueDate = &due
	}
	return t, nil
}

// parseDueDate accepts a full RFC 3339 timestamp or a calendar date, which is
// read as midnight UTC.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dueDate %q", s)
	}
	return t, nil
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func fail(c echo.Context, status int, stage, msg string) error {
	metricsFrom(c).SetErrorStage(stage)
	return c.JSON(status, errorResponse{Error: msg})
}
