// Package authz centralizes every access-control predicate in one place.
// The same functions gate HTTP handlers and decide what repositories may
// return, so the ownership rules cannot drift between call sites.
package authz

import (
	"errors"

	"crm/internal/model"

	"github.com/google/uuid"
)

// ErrPermissionDenied is returned whenever a policy predicate rejects an
// operation. Handlers map it to 403; nothing is partially applied.
var ErrPermissionDenied = errors.New("permission denied")

// Principal is the resolved identity of a caller: who they are, which tenant
// they belong to, and whether they hold the admin role. It is resolved once
// per request and passed explicitly into every service call.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// SameCompany reports whether a record's company matches the caller's.
// Records failing this check are indistinguishable from missing records.
func (p Principal) SameCompany(companyID uuid.UUID) bool {
	return p.CompanyID == companyID
}

// ownsOrAssigned is the shared ownership predicate: the caller created the
// record or is its assignee.
func ownsOrAssigned(p Principal, createdBy uuid.UUID, assignedTo *uuid.UUID) bool {
	if p.UserID == createdBy {
		return true
	}
	return assignedTo != nil && p.UserID == *assignedTo
}

// CanReadRecord implements the uniform visibility rule for contacts,
// purchases (through their parent contact) and vouchers: same company AND
// (admin OR creator OR assignee).
func CanReadRecord(p Principal, companyID, createdBy uuid.UUID, assignedTo *uuid.UUID) bool {
	if !p.SameCompany(companyID) {
		return false
	}
	return p.IsAdmin() || ownsOrAssigned(p, createdBy, assignedTo)
}

// CanReadContact reports whether the caller may see that the contact exists.
func CanReadContact(p Principal, c *model.Contact) bool {
	return CanReadRecord(p, c.CompanyID, c.CreatedBy, c.AssignedUserID)
}

// CanSeePII gates the contact's email, phone and address. Deliberately
// stricter than CanReadContact: an assignee who is not the creator can see the
// contact exists and its purchase totals, but not its personal details.
func CanSeePII(p Principal, c *model.Contact) bool {
	if !p.SameCompany(c.CompanyID) {
		return false
	}
	return p.IsAdmin() || p.UserID == c.CreatedBy
}

// CanInsertContact validates a new contact against the caller: the record
// must land in the caller's company, and non-admins may only create contacts
// as themselves, assigned to themselves or to nobody.
func CanInsertContact(p Principal, c *model.Contact) bool {
	if !p.SameCompany(c.CompanyID) {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	if c.CreatedBy != p.UserID {
		return false
	}
	return c.AssignedUserID == nil || *c.AssignedUserID == p.UserID
}

// CanMutateContact gates update and delete: admin, creator or assignee.
func CanMutateContact(p Principal, c *model.Contact) bool {
	return CanReadContact(p, c)
}

// CanInsertPurchase requires the referenced contact to be visible to the
// caller; the purchase inherits the contact's company.
func CanInsertPurchase(p Principal, contact *model.Contact) bool {
	return CanReadContact(p, contact)
}

// CanMutatePurchase gates purchase update and delete. Admin only: the
// declarative rule wins over the looser per-screen behavior the old system
// sometimes showed.
func CanMutatePurchase(p Principal, pu *model.Purchase) bool {
	return p.SameCompany(pu.CompanyID) && p.IsAdmin()
}

// CanReadVoucherRule is company-scope only: every member of the company may
// see the rule catalog.
func CanReadVoucherRule(p Principal, r *model.VoucherRule) bool {
	return p.SameCompany(r.CompanyID)
}

// CanManageVoucherRules gates rule insert/update/delete. Admin only.
func CanManageVoucherRules(p Principal) bool {
	return p.IsAdmin()
}

// CanIssueVoucher gates voucher creation. Admin only; IssuedBy must be the
// caller, which the service sets rather than trusts from input.
func CanIssueVoucher(p Principal) bool {
	return p.IsAdmin()
}

// CanReadVoucher applies the uniform visibility rule through the voucher's
// underlying contact.
func CanReadVoucher(p Principal, v *model.Voucher, contact *model.Contact) bool {
	if !p.SameCompany(v.CompanyID) {
		return false
	}
	return CanReadContact(p, contact)
}

// CanRedeemVoucher gates status transitions on an issued voucher: admin, or
// creator/assignee of the underlying contact.
func CanRedeemVoucher(p Principal, v *model.Voucher, contact *model.Contact) bool {
	return CanReadVoucher(p, v, contact)
}
