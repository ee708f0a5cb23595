package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/pkg/export"
	"github.com/noah-isme/hostel-leave-api/pkg/storage"
)

type exportLeaveSource interface {
	ListOverlappingRange(ctx context.Context, from, to models.Date) ([]models.LeaveRequest, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds leave-register datasets and persists rendered files
// behind signed download URLs.
type ExportService struct {
	leaves  exportLeaveSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(leaves exportLeaveSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		leaves:  leaves,
		storage: store,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeLeaveRegister {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}

	dataset, title, err := s.buildLeaveRegister(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("leave_register_%s_%s_%s.%s",
		job.Params.DateFrom, job.Params.DateTo,
		time.Now().UTC().Format("20060102_150405"), job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
// When allowExpired is true, the timestamp check is skipped (cleanup path).
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to the configured TTL).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

var leaveRegisterHeaders = []string{"Roll No", "Student", "Department", "From", "To", "Place", "Reason", "Status", "Decided By", "Decision Note", "Submitted At"}

func (s *ExportService) buildLeaveRegister(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	requests, err := s.leaves.ListOverlappingRange(ctx, params.DateFrom, params.DateTo)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(requests))
	for _, req := range requests {
		decidedBy := ""
		note := ""
		switch req.Status {
		case models.LeaveApproved:
			if req.ApprovedBy != nil {
				decidedBy = *req.ApprovedBy
			}
			if req.SystemID != nil {
				note = "pass " + *req.SystemID
			}
		case models.LeaveRejected:
			if req.RejectionReason != nil {
				note = *req.RejectionReason
			}
		}
		rows = append(rows, map[string]string{
			"Roll No":       req.Snapshot.RollNo,
			"Student":       req.Snapshot.Name,
			"Department":    req.Snapshot.Department,
			"From":          req.StartDate.String(),
			"To":            req.EndDate.String(),
			"Place":         req.PlaceOfVisit,
			"Reason":        req.Reason,
			"Status":        string(req.Status),
			"Decided By":    decidedBy,
			"Decision Note": note,
			"Submitted At":  req.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	dataset := export.Dataset{Headers: leaveRegisterHeaders, Rows: rows}
	title := fmt.Sprintf("Leave Register %s to %s", params.DateFrom, params.DateTo)
	return dataset, title, nil
}
