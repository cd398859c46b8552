package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/entity"
	"github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/repository"
)

type stubPublisher struct {
	mediaID string
	err     error
	calls   int
}

func (p *stubPublisher) Publish(ctx context.Context, acc config.AccountConfig, job *entity.PostJob) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.mediaID, nil
}

func newTestStore(t *testing.T) *repository.PostJobRepository {
	t.Helper()
	f, err := os.CreateTemp("", "gramflow_sched_*.db")
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
	return repository.NewPostJobRepository(db)
}

func newTestScheduler(store *repository.PostJobRepository, pub Publisher, now time.Time) *Scheduler {
	return &Scheduler{
		Store:     store,
		Publisher: pub,
		Accounts: config.AccountMap{
			"acme": {IGUserID: "ig1", PageAccessToken: "tok"},
		},
		Logger:       infra.NewStdoutLogger(),
		TickInterval: time.Minute,
		TickLimit:    10,
		Now:          func() time.Time { return now },
	}
}

func enqueue(t *testing.T, store *repository.PostJobRepository, account string, scheduledAt time.Time) *entity.PostJob {
	t.Helper()
	job := &entity.PostJob{
		Account:     account,
		Caption:     "caption",
		MediaURL:    "https://cdn.example.com/x.jpg",
		MediaType:   entity.MediaTypeImage,
		ScheduledAt: scheduledAt.UTC(),
	}
	if err := store.Create(job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func reload(t *testing.T, store *repository.PostJobRepository, job *entity.PostJob) *entity.PostJob {
	t.Helper()
	got, err := store.FindByID(job.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return got
}

func TestTickPublishesDueJob(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(-time.Hour))

	pub := &stubPublisher{mediaID: "m1"}
	s := newTestScheduler(store, pub, now)

	processed, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 processed, got %d", processed)
	}

	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
	if got.ExternalMediaID != "m1" {
		t.Fatalf("expected external media id m1, got %q", got.ExternalMediaID)
	}
	if got.LastError != "" {
		t.Fatalf("expected cleared last error, got %q", got.LastError)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", got.Attempts)
	}
}

func TestTickIgnoresFutureJob(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(time.Hour))

	pub := &stubPublisher{mediaID: "m1"}
	s := newTestScheduler(store, pub, now)

	processed, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected 0 processed, got %d", processed)
	}
	if pub.calls != 0 {
		t.Fatalf("expected no publish calls, got %d", pub.calls)
	}

	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusQueued || got.Attempts != 0 {
		t.Fatalf("future job must stay untouched, got %+v", got)
	}
}

func TestUnconfiguredAccountFailsLocally(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "ghost", now.Add(-time.Minute))

	pub := &stubPublisher{mediaID: "m1"}
	s := newTestScheduler(store, pub, now)

	if _, err := s.RunTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if pub.calls != 0 {
		t.Fatalf("unconfigured account must make zero remote calls, got %d", pub.calls)
	}

	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.LastError != "account not configured" {
		t.Fatalf("expected local error message, got %q", got.LastError)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", got.Attempts)
	}
}

func TestPublishFailureRecordsTypedError(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(-time.Minute))

	payload := `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`
	pub := &stubPublisher{err: &infra.PublishError{
		Stage:      infra.StageCreate,
		StatusCode: 400,
		Message:    "graph api returned 400: Invalid parameter (code 100)",
		Payload:    json.RawMessage(payload),
		Remote:     &infra.GraphAPIError{Message: "Invalid parameter", Type: "OAuthException", Code: 100},
	}}
	s := newTestScheduler(store, pub, now)

	if _, err := s.RunTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !strings.Contains(got.LastError, "Invalid parameter") {
		t.Fatalf("expected remote message in %q", got.LastError)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", got.Attempts)
	}
	if len(got.LastErrorPayload) == 0 {
		t.Fatal("expected raw remote payload to be persisted")
	}
}

func TestTokenExpiryIsFlaggedForRotation(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(-time.Minute))

	pub := &stubPublisher{err: &infra.PublishError{
		Stage:   infra.StageCreate,
		Message: "graph api returned 401: Session has expired (code 190)",
		Remote:  &infra.GraphAPIError{Type: "OAuthException", Code: 190},
	}}
	s := newTestScheduler(store, pub, now)

	if _, err := s.RunTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got := reload(t, store, job)
	if !strings.Contains(got.LastError, "rotate token") {
		t.Fatalf("expected rotate-token marker in %q", got.LastError)
	}
	if !strings.Contains(got.LastError, "acme") {
		t.Fatalf("expected account name in %q", got.LastError)
	}
}

func TestTerminalJobsAreNotRevisited(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	enqueue(t, store, "acme", now.Add(-time.Minute))

	pub := &stubPublisher{err: &infra.PublishError{Stage: infra.StageCreate, Message: "boom"}}
	s := newTestScheduler(store, pub, now)

	if _, err := s.RunTick(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("expected 1 publish call, got %d", pub.calls)
	}

	// No automatic retry: the failed job must not be picked up again.
	if _, err := s.RunTick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("failed job was retried, calls=%d", pub.calls)
	}
}

// gatePublisher blocks inside Publish until released, so a test can hold a
// tick mid-publish and poke the scheduler from another goroutine.
type gatePublisher struct {
	entered chan struct{}
	release chan struct{}
	mediaID string
}

func (p *gatePublisher) Publish(ctx context.Context, acc config.AccountConfig, job *entity.PostJob) (string, error) {
	close(p.entered)
	<-p.release
	return p.mediaID, nil
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(-time.Hour))

	pub := &gatePublisher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		mediaID: "m1",
	}
	s := newTestScheduler(store, pub, now)

	firstDone := make(chan int, 1)
	go func() {
		processed, err := s.RunTick(context.Background())
		if err != nil {
			t.Errorf("first tick: %v", err)
		}
		firstDone <- processed
	}()

	// The first tick is now parked inside Publish.
	<-pub.entered

	processed, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if processed != 0 {
		t.Fatalf("tick that overlaps a running one must be a no-op, got %d", processed)
	}

	close(pub.release)
	if first := <-firstDone; first != 1 {
		t.Fatalf("expected the held tick to process 1 job, got %d", first)
	}

	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("job must be published exactly once, attempts=%d", got.Attempts)
	}
}

type heldLease struct {
	tries int
}

func (l *heldLease) TryAcquire(ctx context.Context) (func(), bool, error) {
	l.tries++
	return nil, false, nil
}

func TestTickSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(-time.Hour))

	pub := &stubPublisher{mediaID: "m1"}
	s := newTestScheduler(store, pub, now)
	lease := &heldLease{}
	s.Lease = lease

	processed, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected 0 processed under a held lease, got %d", processed)
	}
	if lease.tries != 1 {
		t.Fatalf("expected 1 lease attempt, got %d", lease.tries)
	}
	if pub.calls != 0 {
		t.Fatalf("held lease must make zero publish calls, got %d", pub.calls)
	}

	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusQueued || got.Attempts != 0 {
		t.Fatalf("job must be left for the lease holder, got %+v", got)
	}
}

// failingUpdateStore claims and scans normally but cannot persist updates.
type failingUpdateStore struct {
	*repository.PostJobRepository
	updateErr error
}

func (f *failingUpdateStore) Update(job *entity.PostJob) error {
	return f.updateErr
}

func TestTickCountsOnlyPersistedTerminalStates(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	job := enqueue(t, store, "acme", now.Add(-time.Minute))

	pub := &stubPublisher{mediaID: "m1"}
	s := newTestScheduler(store, pub, now)
	s.Store = &failingUpdateStore{
		PostJobRepository: store,
		updateErr:         errors.New("connection reset"),
	}

	processed, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if processed != 0 {
		t.Fatalf("unpersisted terminal state must not be counted, got %d", processed)
	}

	// The claim went through the real store, so the row is stuck publishing.
	got := reload(t, store, job)
	if got.Status != entity.PostJobStatusPublishing {
		t.Fatalf("expected publishing, got %s", got.Status)
	}
}

func TestTickLimitBoundsWork(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		enqueue(t, store, "acme", now.Add(-time.Duration(i+1)*time.Minute))
	}

	pub := &stubPublisher{mediaID: "m1"}
	s := newTestScheduler(store, pub, now)
	s.TickLimit = 2

	processed, err := s.RunTick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 processed under limit, got %d", processed)
	}

	remaining, err := store.FindDue(now, 10)
	if err != nil {
		t.Fatalf("find due: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("expected 3 jobs left for later ticks, got %d", len(remaining))
	}
}
