package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/entity"
	"github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/repository"
)

func newTestController(t *testing.T) (*Controller, *repository.PostJobRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f, err := os.CreateTemp("", "gramflow_ctrl_*.db")
	if err != nil {
		t.Fatalf("tmp file: %v", err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(path) })

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&entity.PostJob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := repository.NewPostJobRepository(db)
	cfg := &config.Config{
		EnvConfig: config.LoadEnvConfig(),
		Accounts: config.AccountMap{
			"acme": {IGUserID: "ig1", PageAccessToken: "tok"},
		},
	}

	ctrl := &Controller{
		Config:     cfg,
		Infra:      &infra.Infra{Logger: infra.NewStdoutLogger()},
		Repository: &repository.Repository{PostJobRepo: repo},
	}
	return ctrl, repo
}

func schedule(t *testing.T, ctrl *Controller, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/posts/schedule", ctrl.SchedulePost)

	req := httptest.NewRequest(http.MethodPost, "/posts/schedule", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSchedulePostCreatesQueuedJob(t *testing.T) {
	ctrl, repo := newTestController(t)

	w := schedule(t, ctrl, `{
		"account": "acme",
		"caption": "hello",
		"mediaUrl": "https://cdn.example.com/x.jpg",
		"when": "2030-01-02T15:04:05Z"
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created entity.PostJob
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	got, err := repo.FindByID(created.ID)
	if err != nil {
		t.Fatalf("find created job: %v", err)
	}
	if got.Status != entity.PostJobStatusQueued || got.Attempts != 0 {
		t.Fatalf("expected fresh queued job, got %+v", got)
	}
	want := time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC)
	if !got.ScheduledAt.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got.ScheduledAt)
	}
	if got.MediaType != entity.MediaTypeImage {
		t.Fatalf("expected inferred image type, got %s", got.MediaType)
	}
}

func TestSchedulePostValidation(t *testing.T) {
	ctrl, repo := newTestController(t)

	cases := map[string]string{
		"missing fields":  `{"caption": "hi"}`,
		"unknown account": `{"account": "ghost", "mediaUrl": "https://cdn.example.com/x.jpg", "when": "2030-01-02T15:04:05Z"}`,
		"relative url":    `{"account": "acme", "mediaUrl": "/uploads/x.jpg", "when": "2030-01-02T15:04:05Z"}`,
		"bad when":        `{"account": "acme", "mediaUrl": "https://cdn.example.com/x.jpg", "when": "tomorrow"}`,
	}
	for name, body := range cases {
		if w := schedule(t, ctrl, body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}

	// Rejected requests never reach the store.
	jobs, err := repo.List("")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected empty store, got %d jobs", len(jobs))
	}
}

func TestSchedulePostAcceptsLegacyImageURLField(t *testing.T) {
	ctrl, _ := newTestController(t)

	w := schedule(t, ctrl, `{
		"account": "acme",
		"imageUrl": "https://cdn.example.com/clip.mp4",
		"when": "2030-01-02T15:04"
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created entity.PostJob
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.MediaType != entity.MediaTypeVideo {
		t.Fatalf("expected inferred video type, got %s", created.MediaType)
	}
}
