package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
	"github.com/noah-isme/hostel-leave-api/pkg/jobs"
)

type mockReportRepo struct {
	jobs map[string]*models.ReportJob
	seq  int
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportRepo) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		m.seq++
		job.ID = "job-1"
	}
	job.CreatedAt = time.Now().UTC()
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *mockReportRepo) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockReportRepo) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockReportRepo) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockQueue struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockGenerator struct {
	result *ExportResult
	err    error
}

func (m *mockGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func reportFixture(queue *mockQueue) (*ReportService, *mockReportRepo) {
	repo := newMockReportRepo()
	svc := NewReportService(repo, queue, nil, zap.NewNop(), ReportServiceConfig{ResultTTL: time.Hour})
	return svc, repo
}

func TestCreateJobQueues(t *testing.T) {
	queue := &mockQueue{}
	svc, repo := reportFixture(queue)

	resp, err := svc.CreateJob(context.Background(), "a1", CreateReportRequest{
		Format: "csv", DateFrom: "2026-09-01", DateTo: "2026-09-30",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Equal(t, "a1", repo.jobs[resp.ID].CreatedBy)
}

func TestCreateJobValidation(t *testing.T) {
	svc, _ := reportFixture(&mockQueue{})

	cases := []CreateReportRequest{
		{Format: "csv", DateFrom: "bad", DateTo: "2026-09-30"},
		{Format: "csv", DateFrom: "2026-09-01", DateTo: "bad"},
		{Format: "csv", DateFrom: "2026-09-30", DateTo: "2026-09-01"},
		{Format: "xlsx", DateFrom: "2026-09-01", DateTo: "2026-09-30"},
	}
	for _, req := range cases {
		_, err := svc.CreateJob(context.Background(), "a1", req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	queue := &mockQueue{err: errors.New("queue stopped")}
	svc, repo := reportFixture(queue)

	_, err := svc.CreateJob(context.Background(), "a1", CreateReportRequest{
		Format: "pdf", DateFrom: "2026-09-01", DateTo: "2026-09-30",
	})
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc, _ := reportFixture(&mockQueue{})

	_, err := svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	queue := &mockQueue{}
	svc, repo := reportFixture(queue)

	from, _ := models.ParseDate("2026-09-01")
	to, _ := models.ParseDate("2026-09-30")
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID: "stale", Type: models.ReportTypeLeaveRegister,
		Params: models.ReportJobParams{DateFrom: from, DateTo: to, Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}))

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "stale", queue.enqueued[0].ID)
}

func TestWorkerHandleSuccess(t *testing.T) {
	repo := newMockReportRepo()
	from, _ := models.ParseDate("2026-09-01")
	to, _ := models.ParseDate("2026-09-30")
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID: "job-1", Type: models.ReportTypeLeaveRegister,
		Params: models.ReportJobParams{DateFrom: from, DateTo: to, Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}))

	worker := NewReportWorker(repo, &mockGenerator{result: &ExportResult{URL: "/api/v1/export/tok"}}, 3, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/tok", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
}

func TestWorkerHandleFailureExhaustsRetries(t *testing.T) {
	repo := newMockReportRepo()
	from, _ := models.ParseDate("2026-09-01")
	to, _ := models.ParseDate("2026-09-30")
	require.NoError(t, repo.Create(context.Background(), &models.ReportJob{
		ID: "job-1", Type: models.ReportTypeLeaveRegister,
		Params: models.ReportJobParams{DateFrom: from, DateTo: to, Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}))

	worker := NewReportWorker(repo, &mockGenerator{err: errors.New("render failed")}, 2, zap.NewNop())

	// Attempts below the retry budget requeue the job.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0}))
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	// The final attempt marks it failed.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
}
