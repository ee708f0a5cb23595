package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
)

type allowListRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, filter models.AllowListFilter) ([]models.User, int, error)
}

// AddAllowListEntryRequest provisions a single allow-list entry. Student
// entries carry the profile fields later snapshotted into their requests.
type AddAllowListEntryRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	FullName string      `json:"full_name" validate:"required"`
	Role     models.Role `json:"role" validate:"required"`
	// Password optionally enables the admin fallback login.
	Password     string `json:"password,omitempty"`
	RollNo       string `json:"roll_no,omitempty"`
	Department   string `json:"department,omitempty"`
	Year         string `json:"year,omitempty"`
	HostelName   string `json:"hostel_name,omitempty"`
	RoomNo       string `json:"room_no,omitempty"`
	ParentMobile string `json:"parent_mobile,omitempty"`
}

// ImportResult summarises a bulk CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// AllowListService manages who may authenticate and with which role.
type AllowListService struct {
	repo      allowListRepository
	audit     auditStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAllowListService constructs an AllowListService instance.
func NewAllowListService(repo allowListRepository, audit auditStore, validate *validator.Validate, logger *zap.Logger) *AllowListService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AllowListService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Add provisions a new entry. Emails are unique case-insensitively.
func (s *AllowListService) Add(ctx context.Context, actor *models.JWTClaims, req AddAllowListEntryRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allow-list payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be one of student, staff, admin")
	}
	if req.Role == models.RoleStudent && req.RollNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student entries require a roll number")
	}
	if req.Password != "" && req.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password login is reserved for admin entries")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.repo.FindByEmail(ctx, email); err == nil {
		if existing.Active {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email is already allow-listed")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "email was previously registered; contact an operator to reactivate")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check allow-list")
	}

	user := &models.User{
		Email:        email,
		FullName:     req.FullName,
		Role:         req.Role,
		RollNo:       req.RollNo,
		Department:   req.Department,
		Year:         req.Year,
		HostelName:   req.HostelName,
		RoomNo:       req.RoomNo,
		ParentMobile: req.ParentMobile,
		AddedBy:      &actor.UserID,
		Active:       true,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		hashed := string(hash)
		user.PasswordHash = &hashed
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create allow-list entry")
	}

	s.recordAudit(ctx, actor.UserID, models.AuditActionAllowListAdd, user.ID,
		fmt.Sprintf(`{"email":%q,"role":%q}`, user.Email, user.Role))

	return user, nil
}

// Remove revokes an entry. Historic requests keep their owner reference, so
// the row is deactivated rather than deleted.
func (s *AllowListService) Remove(ctx context.Context, actor *models.JWTClaims, id string) error {
	affected, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove allow-list entry")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "allow-list entry not found")
	}

	s.recordAudit(ctx, actor.UserID, models.AuditActionAllowListRemove, id, `{"active":false}`)
	return nil
}

// List returns active entries with pagination metadata.
func (s *AllowListService) List(ctx context.Context, filter models.AllowListFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allow-list entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

var importHeader = []string{"email", "full_name", "role", "roll_no", "department", "year", "hostel_name", "room_no", "parent_mobile"}

// BulkImport reads CSV rows and provisions entries. Rows that fail
// validation or duplicate an existing email are skipped and reported, not
// fatal.
func (s *AllowListService) BulkImport(ctx context.Context, actor *models.JWTClaims, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable CSV")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range importHeader[:3] {
		if _, ok := index[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("CSV is missing required column %q", required))
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &ImportResult{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		req := AddAllowListEntryRequest{
			Email:        field(record, "email"),
			FullName:     field(record, "full_name"),
			Role:         models.Role(strings.ToLower(field(record, "role"))),
			RollNo:       field(record, "roll_no"),
			Department:   field(record, "department"),
			Year:         field(record, "year"),
			HostelName:   field(record, "hostel_name"),
			RoomNo:       field(record, "room_no"),
			ParentMobile: field(record, "parent_mobile"),
		}
		if _, err := s.Add(ctx, actor, req); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d (%s): %v", line, req.Email, err))
			continue
		}
		result.Imported++
	}

	s.recordAudit(ctx, actor.UserID, models.AuditActionAllowListImport, "",
		fmt.Sprintf(`{"imported":%d,"skipped":%d}`, result.Imported, result.Skipped))

	return result, nil
}

func (s *AllowListService) recordAudit(ctx context.Context, actorID, action, resourceID, values string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:   &actorID,
		Action:    action,
		Resource:  "allow_list",
		NewValues: []byte(values),
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
