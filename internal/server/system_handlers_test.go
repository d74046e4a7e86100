package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/scheduler"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Run() error {
	j.runs++
	return j.err
}

func systemRouter(jobs map[string]scheduler.Job) *chi.Mux {
	h := NewSystemHandlers(zerolog.Nop(), "/tmp", nil, jobs)
	r := chi.NewRouter()
	r.Get("/health", h.HandleHealth)
	r.Get("/api/system/status", h.HandleStatus)
	r.Post("/api/system/jobs/{name}", h.HandleRunJob)
	return r
}

func TestHandleHealthNoDatabases(t *testing.T) {
	router := systemRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleStatus(t *testing.T) {
	router := systemRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "uptime")
}

func TestHandleRunJob(t *testing.T) {
	job := &fakeJob{name: "snapshot"}
	router := systemRouter(map[string]scheduler.Job{"snapshot": job})

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/snapshot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, job.runs)
}

func TestHandleRunJobUnknown(t *testing.T) {
	router := systemRouter(map[string]scheduler.Job{})

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRunJobFailure(t *testing.T) {
	job := &fakeJob{name: "backup", err: errors.New("bucket unreachable")}
	router := systemRouter(map[string]scheduler.Job{"backup": job})

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/backup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
