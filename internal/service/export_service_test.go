package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/pkg/storage"
)

type mockExportLeaves struct {
	requests []models.LeaveRequest
}

func (m *mockExportLeaves) ListOverlappingRange(ctx context.Context, from, to models.Date) ([]models.LeaveRequest, error) {
	return m.requests, nil
}

type memoryStorage struct {
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Save(filename string, data []byte) (string, error) {
	m.files[filename] = data
	return filename, nil
}

func (m *memoryStorage) Open(filename string) (*os.File, error) {
	f, err := os.CreateTemp("", "export-test-*")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(m.files[filename]); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	return f, nil
}

func (m *memoryStorage) Delete(filename string) error {
	delete(m.files, filename)
	return nil
}

func (m *memoryStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func exportJob(format models.ReportFormat) *models.ReportJob {
	from, _ := models.ParseDate("2026-09-01")
	to, _ := models.ParseDate("2026-09-30")
	return &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeLeaveRegister,
		Status: models.ReportStatusProcessing,
		Params: models.ReportJobParams{DateFrom: from, DateTo: to, Format: format},
	}
}

func exportFixture(requests []models.LeaveRequest) (*ExportService, *memoryStorage) {
	store := newMemoryStorage()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(&mockExportLeaves{requests: requests}, store, signer,
		ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	return svc, store
}

func approvedExportRequest() models.LeaveRequest {
	from, _ := models.ParseDate("2026-09-10")
	to, _ := models.ParseDate("2026-09-14")
	approvedBy := "Warden Rao"
	systemID := "a1b2c3d4"
	return models.LeaveRequest{
		ID:        "r1",
		StudentID: "u1",
		Snapshot: models.StudentSnapshot{
			Name: "Priya Sharma", RollNo: "21CS042", Department: "CSE",
		},
		Reason:       "Sister's wedding",
		PlaceOfVisit: "Jaipur",
		StartDate:    from,
		EndDate:      to,
		Status:       models.LeaveApproved,
		ApprovedBy:   &approvedBy,
		SystemID:     &systemID,
		CreatedAt:    time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestExportGenerateCSV(t *testing.T) {
	svc, store := exportFixture([]models.LeaveRequest{approvedExportRequest()})

	result, err := svc.Generate(context.Background(), exportJob(models.ReportFormatCSV))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	payload, ok := store.files[result.RelativePath]
	require.True(t, ok)
	body := string(payload)
	assert.Contains(t, body, "Roll No,Student,Department")
	assert.Contains(t, body, "21CS042,Priya Sharma,CSE")
	assert.Contains(t, body, "pass a1b2c3d4")
}

func TestExportGeneratePDF(t *testing.T) {
	svc, store := exportFixture([]models.LeaveRequest{approvedExportRequest()})

	result, err := svc.Generate(context.Background(), exportJob(models.ReportFormatPDF))
	require.NoError(t, err)

	payload := store.files[result.RelativePath]
	require.NotEmpty(t, payload)
	assert.True(t, strings.HasPrefix(string(payload[:5]), "%PDF-"))
}

func TestExportTokenRoundTrip(t *testing.T) {
	svc, _ := exportFixture([]models.LeaveRequest{approvedExportRequest()})

	result, err := svc.Generate(context.Background(), exportJob(models.ReportFormatCSV))
	require.NoError(t, err)

	jobID, relPath, expiresAt, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
	assert.True(t, expiresAt.After(time.Now()))

	_, _, _, err = svc.ParseToken(result.Token+"x", false)
	require.Error(t, err)
}

func TestExportRejectsUnknownType(t *testing.T) {
	svc, _ := exportFixture(nil)

	job := exportJob(models.ReportFormatCSV)
	job.Type = "UNKNOWN"
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
