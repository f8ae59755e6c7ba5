package service

import (
	"context"
	"testing"

	"crm/internal/authz"
	"crm/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactFixture struct {
	svc         ContactService
	contactRepo *stubContactRepo
	profileRepo *stubProfileRepo

	companyID uuid.UUID
	admin     authz.Principal
	creator   authz.Principal
	assignee  authz.Principal
	outsider  authz.Principal // same company, no relation to the contact
	stranger  authz.Principal // different company
}

func newContactFixture(t *testing.T) *contactFixture {
	t.Helper()

	contactRepo := newStubContactRepo()
	profileRepo := newStubProfileRepo()
	audit := NewAuditService(&stubAuditRepo{})
	svc := NewContactService(contactRepo, profileRepo, audit, nil)

	companyID := uuid.New()
	otherCompanyID := uuid.New()

	f := &contactFixture{
		svc:         svc,
		contactRepo: contactRepo,
		profileRepo: profileRepo,
		companyID:   companyID,
	}

	addProfile := func(companyID uuid.UUID, name string) uuid.UUID {
		profile := &model.Profile{CompanyID: companyID, Email: name + "@test", FullName: name}
		require.NoError(t, profileRepo.Create(context.Background(), profile))
		return profile.ID
	}

	f.admin = authz.Principal{UserID: addProfile(companyID, "admin"), CompanyID: companyID, Role: model.RoleAdmin}
	f.creator = authz.Principal{UserID: addProfile(companyID, "creator"), CompanyID: companyID, Role: model.RoleUser}
	f.assignee = authz.Principal{UserID: addProfile(companyID, "assignee"), CompanyID: companyID, Role: model.RoleUser}
	f.outsider = authz.Principal{UserID: addProfile(companyID, "outsider"), CompanyID: companyID, Role: model.RoleUser}
	f.stranger = authz.Principal{UserID: addProfile(otherCompanyID, "stranger"), CompanyID: otherCompanyID, Role: model.RoleAdmin}

	return f
}

func (f *contactFixture) createContact(t *testing.T, p authz.Principal, assignedTo *authz.Principal) *ContactResponse {
	t.Helper()
	req := CreateContactRequest{
		Name:    "Jane Customer",
		Email:   "jane@customer.test",
		Phone:   "555-0100",
		Address: "1 Main St",
	}
	if assignedTo != nil {
		req.AssignedUserID = assignedTo.UserID.String()
	}
	res, err := f.svc.CreateContact(context.Background(), p, req)
	require.NoError(t, err)
	return res
}

func TestContactPIIHiddenFromAssignee(t *testing.T) {
	f := newContactFixture(t)

	created := f.createContact(t, f.admin, &f.assignee)
	contactID := uuid.MustParse(created.ID)

	// The assignee sees the record but not its personal details.
	seen, err := f.svc.GetContact(context.Background(), f.assignee, contactID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Customer", seen.Name)
	assert.False(t, seen.PIIVisible)
	assert.Empty(t, seen.Email)
	assert.Empty(t, seen.Phone)
	assert.Empty(t, seen.Address)

	// Creator and admin see everything.
	full, err := f.svc.GetContact(context.Background(), f.admin, contactID)
	require.NoError(t, err)
	assert.True(t, full.PIIVisible)
	assert.Equal(t, "jane@customer.test", full.Email)
}

func TestContactHiddenFromUnrelatedUser(t *testing.T) {
	f := newContactFixture(t)

	created := f.createContact(t, f.creator, nil)
	contactID := uuid.MustParse(created.ID)

	_, err := f.svc.GetContact(context.Background(), f.outsider, contactID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactCrossCompanyReadsAsMissing(t *testing.T) {
	f := newContactFixture(t)

	created := f.createContact(t, f.admin, nil)
	contactID := uuid.MustParse(created.ID)

	// Even an admin of another company gets not-found, not forbidden.
	_, err := f.svc.GetContact(context.Background(), f.stranger, contactID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNonAdminCannotCreateContactAssignedToOthers(t *testing.T) {
	f := newContactFixture(t)

	_, err := f.svc.CreateContact(context.Background(), f.creator, CreateContactRequest{
		Name:           "Jane Customer",
		AssignedUserID: f.assignee.UserID.String(),
	})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	// Assigning to themselves is fine.
	res, err := f.svc.CreateContact(context.Background(), f.creator, CreateContactRequest{
		Name:           "Jane Customer",
		AssignedUserID: f.creator.UserID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.AssignedUserID)
	assert.Equal(t, f.creator.UserID.String(), *res.AssignedUserID)
}

func TestNonAdminCannotReassignToOthers(t *testing.T) {
	f := newContactFixture(t)

	created := f.createContact(t, f.creator, nil)
	contactID := uuid.MustParse(created.ID)

	other := f.assignee.UserID.String()
	_, err := f.svc.UpdateContact(context.Background(), f.creator, contactID, UpdateContactRequest{
		AssignedUserID: &other,
	})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	// Admins may assign freely.
	res, err := f.svc.UpdateContact(context.Background(), f.admin, contactID, UpdateContactRequest{
		AssignedUserID: &other,
	})
	require.NoError(t, err)
	require.NotNil(t, res.AssignedUserID)
	assert.Equal(t, other, *res.AssignedUserID)
}

func TestAssigneeMustBelongToCompany(t *testing.T) {
	f := newContactFixture(t)

	_, err := f.svc.CreateContact(context.Background(), f.admin, CreateContactRequest{
		Name:           "Jane Customer",
		AssignedUserID: f.stranger.UserID.String(),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateContactClearsAssignment(t *testing.T) {
	f := newContactFixture(t)

	created := f.createContact(t, f.admin, &f.assignee)
	contactID := uuid.MustParse(created.ID)

	empty := ""
	res, err := f.svc.UpdateContact(context.Background(), f.admin, contactID, UpdateContactRequest{
		AssignedUserID: &empty,
	})
	require.NoError(t, err)
	assert.Nil(t, res.AssignedUserID)
}

func TestListContactsScopedByOwnership(t *testing.T) {
	f := newContactFixture(t)

	f.createContact(t, f.creator, nil)
	f.createContact(t, f.admin, &f.assignee)
	f.createContact(t, f.admin, nil) // visible only to admins

	adminList, total, err := f.svc.ListContacts(context.Background(), f.admin, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, adminList, 3)

	creatorList, _, err := f.svc.ListContacts(context.Background(), f.creator, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, creatorList, 1)

	assigneeList, _, err := f.svc.ListContacts(context.Background(), f.assignee, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, assigneeList, 1)
	assert.False(t, assigneeList[0].PIIVisible)

	strangerList, _, err := f.svc.ListContacts(context.Background(), f.stranger, "", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, strangerList)
}

func TestDeleteContactRequiresOwnership(t *testing.T) {
	f := newContactFixture(t)

	created := f.createContact(t, f.creator, nil)
	contactID := uuid.MustParse(created.ID)

	err := f.svc.DeleteContact(context.Background(), f.outsider, contactID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteContact(context.Background(), f.creator, contactID))

	_, err = f.svc.GetContact(context.Background(), f.creator, contactID)
	assert.ErrorIs(t, err, ErrNotFound)
}
