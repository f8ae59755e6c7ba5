package authz

import (
	"testing"

	"crm/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func principal(role string, companyID uuid.UUID) Principal {
	return Principal{UserID: uuid.New(), CompanyID: companyID, Role: role}
}

func TestCanReadContact_TenantIsolation(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()

	admin := principal(model.RoleAdmin, companyB)
	user := principal(model.RoleUser, companyB)

	contact := &model.Contact{
		ID:        uuid.New(),
		CompanyID: companyA,
		CreatedBy: user.UserID, // even "their own" record in another tenant stays invisible
	}

	assert.False(t, CanReadContact(admin, contact), "admin must not cross the tenant boundary")
	assert.False(t, CanReadContact(user, contact))
	assert.False(t, CanSeePII(user, contact))
	assert.False(t, CanMutateContact(admin, contact))
	assert.False(t, CanInsertContact(user, contact))
}

func TestCanReadContact_OwnershipVisibility(t *testing.T) {
	company := uuid.New()
	creator := principal(model.RoleUser, company)
	assignee := principal(model.RoleUser, company)
	bystander := principal(model.RoleUser, company)
	admin := principal(model.RoleAdmin, company)

	contact := &model.Contact{
		ID:             uuid.New(),
		CompanyID:      company,
		CreatedBy:      creator.UserID,
		AssignedUserID: &assignee.UserID,
	}

	assert.True(t, CanReadContact(creator, contact))
	assert.True(t, CanReadContact(assignee, contact))
	assert.True(t, CanReadContact(admin, contact))
	assert.False(t, CanReadContact(bystander, contact), "same-company non-owner must not see the record")
}

func TestCanSeePII_StricterThanRead(t *testing.T) {
	company := uuid.New()
	creator := principal(model.RoleUser, company)
	assignee := principal(model.RoleUser, company)
	admin := principal(model.RoleAdmin, company)

	contact := &model.Contact{
		ID:             uuid.New(),
		CompanyID:      company,
		CreatedBy:      creator.UserID,
		AssignedUserID: &assignee.UserID,
	}

	// An assignee can read but not see PII.
	require.True(t, CanReadContact(assignee, contact))
	assert.False(t, CanSeePII(assignee, contact))

	assert.True(t, CanSeePII(creator, contact))
	assert.True(t, CanSeePII(admin, contact))

	// PII access always implies read access.
	for _, p := range []Principal{creator, assignee, admin} {
		if CanSeePII(p, contact) {
			assert.True(t, CanReadContact(p, contact))
		}
	}
}

func TestCanInsertContact(t *testing.T) {
	company := uuid.New()
	user := principal(model.RoleUser, company)
	other := principal(model.RoleUser, company)
	admin := principal(model.RoleAdmin, company)

	tests := []struct {
		name    string
		caller  Principal
		contact *model.Contact
		want    bool
	}{
		{
			name:    "user creates own unassigned contact",
			caller:  user,
			contact: &model.Contact{CompanyID: company, CreatedBy: user.UserID},
			want:    true,
		},
		{
			name:    "user creates contact assigned to self",
			caller:  user,
			contact: &model.Contact{CompanyID: company, CreatedBy: user.UserID, AssignedUserID: &user.UserID},
			want:    true,
		},
		{
			name:    "user may not assign to someone else",
			caller:  user,
			contact: &model.Contact{CompanyID: company, CreatedBy: user.UserID, AssignedUserID: &other.UserID},
			want:    false,
		},
		{
			name:    "user may not forge created_by",
			caller:  user,
			contact: &model.Contact{CompanyID: company, CreatedBy: other.UserID},
			want:    false,
		},
		{
			name:    "admin may assign to anyone in company",
			caller:  admin,
			contact: &model.Contact{CompanyID: company, CreatedBy: admin.UserID, AssignedUserID: &other.UserID},
			want:    true,
		},
		{
			name:    "wrong company rejected even for admin",
			caller:  admin,
			contact: &model.Contact{CompanyID: uuid.New(), CreatedBy: admin.UserID},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanInsertContact(tt.caller, tt.contact))
		})
	}
}

func TestCanMutatePurchase_AdminOnly(t *testing.T) {
	company := uuid.New()
	user := principal(model.RoleUser, company)
	admin := principal(model.RoleAdmin, company)

	purchase := &model.Purchase{
		ID:        uuid.New(),
		CompanyID: company,
		CreatedBy: user.UserID,
	}

	assert.False(t, CanMutatePurchase(user, purchase), "even the creator may not edit a purchase")
	assert.True(t, CanMutatePurchase(admin, purchase))

	foreignAdmin := principal(model.RoleAdmin, uuid.New())
	assert.False(t, CanMutatePurchase(foreignAdmin, purchase))
}

func TestVoucherPredicates(t *testing.T) {
	company := uuid.New()
	user := principal(model.RoleUser, company)
	admin := principal(model.RoleAdmin, company)

	assert.False(t, CanIssueVoucher(user))
	assert.True(t, CanIssueVoucher(admin))
	assert.False(t, CanManageVoucherRules(user))
	assert.True(t, CanManageVoucherRules(admin))

	contact := &model.Contact{
		ID:        uuid.New(),
		CompanyID: company,
		CreatedBy: user.UserID,
	}
	voucher := &model.Voucher{
		ID:        uuid.New(),
		CompanyID: company,
		ContactID: contact.ID,
	}

	assert.True(t, CanRedeemVoucher(user, voucher, contact), "contact creator may redeem")
	assert.True(t, CanRedeemVoucher(admin, voucher, contact))

	stranger := principal(model.RoleUser, company)
	assert.False(t, CanRedeemVoucher(stranger, voucher, contact))
}

func TestCanReadVoucherRule_CompanyScopeOnly(t *testing.T) {
	company := uuid.New()
	user := principal(model.RoleUser, company)
	outsider := principal(model.RoleAdmin, uuid.New())

	rule := &model.VoucherRule{ID: uuid.New(), CompanyID: company}

	assert.True(t, CanReadVoucherRule(user, rule), "any company member may read rules")
	assert.False(t, CanReadVoucherRule(outsider, rule))
}
