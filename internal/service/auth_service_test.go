package service

import (
	"context"
	"testing"

	"crm/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthFixture() (AuthService, *stubCompanyRepo, *stubProfileRepo) {
	companyRepo := newStubCompanyRepo()
	profileRepo := newStubProfileRepo()
	svc := NewAuthService(companyRepo, profileRepo, stubTxManager{})
	return svc, companyRepo, profileRepo
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	svc, companyRepo, profileRepo := newAuthFixture()

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "alice@acme.test",
		Password:    "secret123",
		FullName:    "Alice",
		CompanyName: "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoleAdmin, res.Role)
	assert.Equal(t, "Acme", res.CompanyName)

	company, err := companyRepo.FindByName(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, company.ID, res.CompanyID)

	roles, err := profileRepo.RolesForUser(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Contains(t, roles, model.RoleAdmin)
}

func TestRegisterSecondUserJoinsAsPlainUser(t *testing.T) {
	svc, _, profileRepo := newAuthFixture()

	first, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.NoError(t, err)

	second, err := svc.Register(context.Background(), RegisterRequest{
		Email: "bob@acme.test", Password: "secret123", FullName: "Bob", CompanyName: "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, first.CompanyID, second.CompanyID)
	assert.Equal(t, model.RoleUser, second.Role)

	roles, err := profileRepo.RolesForUser(context.Background(), second.ID)
	require.NoError(t, err)
	assert.NotContains(t, roles, model.RoleAdmin)
}

func TestRegisterCompanyNameIsCaseInsensitive(t *testing.T) {
	svc, companyRepo, _ := newAuthFixture()

	first, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.NoError(t, err)

	second, err := svc.Register(context.Background(), RegisterRequest{
		Email: "bob@acme.test", Password: "secret123", FullName: "Bob", CompanyName: "  ACME ",
	})
	require.NoError(t, err)

	assert.Equal(t, first.CompanyID, second.CompanyID)
	assert.Len(t, companyRepo.companies, 1)
}

func TestRegisterCompanyCreationRaceJoinsWinner(t *testing.T) {
	svc, companyRepo, profileRepo := newAuthFixture()

	// A concurrent signup commits the company between our lookup and insert;
	// the duplicate key must resolve to membership, not a failed signup.
	winner := &model.Company{ID: uuid.New(), Name: "Acme"}
	companyRepo.raceWinner = winner

	alice := &model.Profile{CompanyID: winner.ID, Email: "alice@acme.test", FullName: "Alice"}
	require.NoError(t, profileRepo.Create(context.Background(), alice))
	require.NoError(t, profileRepo.GrantRole(context.Background(), alice.ID, model.RoleAdmin))

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email: "bob@acme.test", Password: "secret123", FullName: "Bob", CompanyName: "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, winner.ID, res.CompanyID)
	assert.Equal(t, model.RoleUser, res.Role)
	assert.Len(t, companyRepo.companies, 1)
}

func TestRegisterFailedSignupLeavesCompanyRepairable(t *testing.T) {
	svc, companyRepo, profileRepo := newAuthFixture()

	// The profile insert hits an email uniqueness race after the company row
	// is already committed. The signup fails, but the empty company must not
	// stay adminless forever: the next member to join still gets admin.
	profileRepo.createErrs = []error{gorm.ErrDuplicatedKey}

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.ErrorIs(t, err, ErrValidation)

	orphan, err := companyRepo.FindByName(context.Background(), "Acme")
	require.NoError(t, err)

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email: "bob@acme.test", Password: "secret123", FullName: "Bob", CompanyName: "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, orphan.ID, res.CompanyID)
	assert.Equal(t, model.RoleAdmin, res.Role)

	roles, err := profileRepo.RolesForUser(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Contains(t, roles, model.RoleAdmin)
}

func TestRegisterDuplicateEmailRejected(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "other456", FullName: "Alice Again", CompanyName: "Other Co",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "wrong"})
	assert.Error(t, err)

	tokens, err := svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, profileRepo := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The presented token is single-use.
	_, err = profileRepo.FindRefreshToken(context.Background(), tokens.RefreshToken)
	assert.Error(t, err)

	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.Error(t, err)
}

func TestLogoutDeletesRefreshToken(t *testing.T) {
	svc, _, profileRepo := newAuthFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "alice@acme.test", Password: "secret123", FullName: "Alice", CompanyName: "Acme",
	})
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), tokens.RefreshToken))

	_, err = profileRepo.FindRefreshToken(context.Background(), tokens.RefreshToken)
	assert.Error(t, err)
}
