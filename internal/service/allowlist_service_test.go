package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
)

type mockAllowListRepo struct {
	users map[string]*models.User
}

func newMockAllowListRepo() *mockAllowListRepo {
	return &mockAllowListRepo{users: make(map[string]*models.User)}
}

func (m *mockAllowListRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAllowListRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAllowListRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAllowListRepo) Deactivate(ctx context.Context, id string) (int64, error) {
	user, ok := m.users[id]
	if !ok || !user.Active {
		return 0, nil
	}
	user.Active = false
	return 1, nil
}

func (m *mockAllowListRepo) List(ctx context.Context, filter models.AllowListFilter) ([]models.User, int, error) {
	var out []models.User
	for _, user := range m.users {
		if !user.Active {
			continue
		}
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, len(out), nil
}

func newAllowListFixture() (*AllowListService, *mockAllowListRepo) {
	repo := newMockAllowListRepo()
	svc := NewAllowListService(repo, &mockAudit{}, validator.New(), zap.NewNop())
	return svc, repo
}

func TestAllowListAddNormalisesEmail(t *testing.T) {
	svc, _ := newAllowListFixture()

	user, err := svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email:    "  Priya.Sharma@Hostel.Test ",
		FullName: "Priya Sharma",
		Role:     models.RoleStudent,
		RollNo:   "21CS042",
	})
	require.NoError(t, err)
	assert.Equal(t, "priya.sharma@hostel.test", user.Email)
	assert.True(t, user.Active)
	require.NotNil(t, user.AddedBy)
	assert.Equal(t, "a1", *user.AddedBy)
}

func TestAllowListAddDuplicateCaseInsensitive(t *testing.T) {
	svc, _ := newAllowListFixture()

	_, err := svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email: "priya@hostel.test", FullName: "Priya", Role: models.RoleStudent, RollNo: "21CS042",
	})
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email: "PRIYA@hostel.test", FullName: "Priya Again", Role: models.RoleStudent, RollNo: "21CS043",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAllowListAddStudentRequiresRollNo(t *testing.T) {
	svc, _ := newAllowListFixture()

	_, err := svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email: "priya@hostel.test", FullName: "Priya", Role: models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllowListAddPasswordOnlyForAdmins(t *testing.T) {
	svc, _ := newAllowListFixture()

	_, err := svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email: "staff@hostel.test", FullName: "Desk Staff", Role: models.RoleStaff, Password: "secret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllowListAddAdminWithPassword(t *testing.T) {
	svc, repo := newAllowListFixture()

	user, err := svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email: "warden@hostel.test", FullName: "Warden", Role: models.RoleAdmin, Password: "hunter2",
	})
	require.NoError(t, err)
	stored := repo.users[user.ID]
	require.NotNil(t, stored.PasswordHash)
	assert.NotEqual(t, "hunter2", *stored.PasswordHash)
}

func TestAllowListRemoveDeactivates(t *testing.T) {
	svc, repo := newAllowListFixture()
	user, err := svc.Add(context.Background(), adminClaims("a1"), AddAllowListEntryRequest{
		Email: "priya@hostel.test", FullName: "Priya", Role: models.RoleStudent, RollNo: "21CS042",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), adminClaims("a1"), user.ID))
	assert.False(t, repo.users[user.ID].Active)

	err = svc.Remove(context.Background(), adminClaims("a1"), user.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAllowListBulkImport(t *testing.T) {
	svc, repo := newAllowListFixture()

	csvBody := strings.Join([]string{
		"email,full_name,role,roll_no,hostel_name,room_no",
		"priya@hostel.test,Priya Sharma,student,21CS042,Ganga,214",
		"rahul@hostel.test,Rahul Verma,student,,Yamuna,108",
		"desk@hostel.test,Desk Staff,staff,,,",
	}, "\n")

	result, err := svc.BulkImport(context.Background(), adminClaims("a1"), strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rahul@hostel.test")
	assert.Len(t, repo.users, 2)
}

func TestAllowListBulkImportMissingColumns(t *testing.T) {
	svc, _ := newAllowListFixture()

	_, err := svc.BulkImport(context.Background(), adminClaims("a1"), strings.NewReader("email,name\npriya@hostel.test,Priya"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
