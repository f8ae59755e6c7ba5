package repository

import (
	"crm/internal/authz"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisibilityScope narrows list queries to what a principal may see. The
// company filter always applies; the ownership filter applies to non-admins
// only. This is the SQL twin of authz.CanReadRecord, so list endpoints never
// return rows the per-record predicate would hide.
type VisibilityScope struct {
	CompanyID uuid.UUID
	UserID    *uuid.UUID // nil for admins: company-wide visibility
}

// ScopeFor builds the visibility scope of a principal.
func ScopeFor(p authz.Principal) VisibilityScope {
	if p.IsAdmin() {
		return VisibilityScope{CompanyID: p.CompanyID}
	}
	uid := p.UserID
	return VisibilityScope{CompanyID: p.CompanyID, UserID: &uid}
}

// applyContactScope filters a query over the contacts table.
func applyContactScope(q *gorm.DB, scope VisibilityScope) *gorm.DB {
	q = q.Where("contacts.company_id = ?", scope.CompanyID)
	if scope.UserID != nil {
		q = q.Where("contacts.created_by = ? OR contacts.assigned_user_id = ?", *scope.UserID, *scope.UserID)
	}
	return q
}
