package service

import (
	"context"
	"strings"
	"time"

	"crm/internal/model"
	"crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes. They mimic the behaviors services depend on:
// gorm.ErrRecordNotFound for misses, gorm.ErrDuplicatedKey for unique
// violations, and ID assignment on insert.

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- companies ---

type stubCompanyRepo struct {
	companies map[uuid.UUID]*model.Company
	// raceWinner, when set, is committed by a "concurrent" signup the moment
	// Create is called, which then fails with a duplicate key.
	raceWinner *model.Company
}

func newStubCompanyRepo() *stubCompanyRepo {
	return &stubCompanyRepo{companies: make(map[uuid.UUID]*model.Company)}
}

func (r *stubCompanyRepo) Create(_ context.Context, company *model.Company) error {
	if r.raceWinner != nil {
		winner := r.raceWinner
		r.raceWinner = nil
		winner.NameKey = model.NormalizeCompanyName(winner.Name)
		r.companies[winner.ID] = winner
		return gorm.ErrDuplicatedKey
	}
	company.ID = uuid.New()
	company.NameKey = model.NormalizeCompanyName(company.Name)
	for _, existing := range r.companies {
		if existing.NameKey == company.NameKey {
			return gorm.ErrDuplicatedKey
		}
	}
	r.companies[company.ID] = company
	return nil
}

func (r *stubCompanyRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Company, error) {
	if company, ok := r.companies[id]; ok {
		return company, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCompanyRepo) FindByName(_ context.Context, name string) (*model.Company, error) {
	key := model.NormalizeCompanyName(name)
	for _, company := range r.companies {
		if company.NameKey == key {
			return company, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// --- profiles, roles, refresh tokens ---

type stubProfileRepo struct {
	profiles   map[uuid.UUID]*model.Profile
	roles      map[uuid.UUID][]string
	tokens     map[string]*model.RefreshToken
	createErrs []error // consumed front-to-back by Create before the insert
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{
		profiles: make(map[uuid.UUID]*model.Profile),
		roles:    make(map[uuid.UUID][]string),
		tokens:   make(map[string]*model.RefreshToken),
	}
}

func (r *stubProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range r.profiles {
		if existing.Email == profile.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	profile.ID = uuid.New()
	profile.CreatedAt = time.Now()
	r.profiles[profile.ID] = profile
	return nil
}

func (r *stubProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	if profile, ok := r.profiles[id]; ok {
		return profile, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProfileRepo) FindByEmail(_ context.Context, email string) (*model.Profile, error) {
	for _, profile := range r.profiles {
		if strings.EqualFold(profile.Email, email) {
			return profile, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProfileRepo) ListByCompany(_ context.Context, companyID uuid.UUID, _, _ int) ([]model.Profile, int64, error) {
	var profiles []model.Profile
	for _, profile := range r.profiles {
		if profile.CompanyID == companyID {
			profiles = append(profiles, *profile)
		}
	}
	return profiles, int64(len(profiles)), nil
}

func (r *stubProfileRepo) RolesForUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	return r.roles[userID], nil
}

func (r *stubProfileRepo) GrantRole(_ context.Context, userID uuid.UUID, role string) error {
	for _, existing := range r.roles[userID] {
		if existing == role {
			return gorm.ErrDuplicatedKey
		}
	}
	r.roles[userID] = append(r.roles[userID], role)
	return nil
}

func (r *stubProfileRepo) RevokeRole(_ context.Context, userID uuid.UUID, role string) error {
	kept := r.roles[userID][:0]
	for _, existing := range r.roles[userID] {
		if existing != role {
			kept = append(kept, existing)
		}
	}
	r.roles[userID] = kept
	return nil
}

func (r *stubProfileRepo) CountAdmins(_ context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	for userID, roles := range r.roles {
		profile, ok := r.profiles[userID]
		if !ok || profile.CompanyID != companyID {
			continue
		}
		for _, role := range roles {
			if role == model.RoleAdmin {
				count++
			}
		}
	}
	return count, nil
}

func (r *stubProfileRepo) SaveRefreshToken(_ context.Context, token *model.RefreshToken) error {
	token.ID = uuid.New()
	r.tokens[token.Token] = token
	return nil
}

func (r *stubProfileRepo) FindRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok || stored.ExpiresAt.Before(time.Now()) {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

func (r *stubProfileRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *stubProfileRepo) DeleteRefreshTokensForUser(_ context.Context, userID uuid.UUID) error {
	for token, stored := range r.tokens {
		if stored.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

// --- contacts ---

type stubContactRepo struct {
	contacts map[uuid.UUID]*model.Contact
}

func newStubContactRepo() *stubContactRepo {
	return &stubContactRepo{contacts: make(map[uuid.UUID]*model.Contact)}
}

func (r *stubContactRepo) Create(_ context.Context, contact *model.Contact) error {
	contact.ID = uuid.New()
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt
	r.contacts[contact.ID] = contact
	return nil
}

func (r *stubContactRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Contact, error) {
	if contact, ok := r.contacts[id]; ok {
		return contact, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubContactRepo) List(_ context.Context, scope repository.VisibilityScope, search string, _, _ int) ([]model.Contact, int64, error) {
	var contacts []model.Contact
	for _, contact := range r.contacts {
		if contact.CompanyID != scope.CompanyID {
			continue
		}
		if scope.UserID != nil {
			owned := contact.CreatedBy == *scope.UserID ||
				(contact.AssignedUserID != nil && *contact.AssignedUserID == *scope.UserID)
			if !owned {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(contact.Name), strings.ToLower(search)) {
			continue
		}
		contacts = append(contacts, *contact)
	}
	return contacts, int64(len(contacts)), nil
}

func (r *stubContactRepo) Update(_ context.Context, contact *model.Contact) error {
	contact.UpdatedAt = time.Now()
	r.contacts[contact.ID] = contact
	return nil
}

func (r *stubContactRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.contacts, id)
	return nil
}

// --- purchases ---

type stubPurchaseRepo struct {
	purchases map[uuid.UUID]*model.Purchase
	contacts  *stubContactRepo
}

func newStubPurchaseRepo(contacts *stubContactRepo) *stubPurchaseRepo {
	return &stubPurchaseRepo{purchases: make(map[uuid.UUID]*model.Purchase), contacts: contacts}
}

func (r *stubPurchaseRepo) Create(_ context.Context, purchase *model.Purchase) error {
	purchase.ID = uuid.New()
	purchase.CreatedAt = time.Now()
	r.purchases[purchase.ID] = purchase
	return nil
}

func (r *stubPurchaseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Purchase, error) {
	purchase, ok := r.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	purchase.Contact = r.contacts.contacts[purchase.ContactID]
	return purchase, nil
}

func (r *stubPurchaseRepo) List(_ context.Context, scope repository.VisibilityScope, _, _ int) ([]model.Purchase, int64, error) {
	var purchases []model.Purchase
	for _, purchase := range r.purchases {
		contact, ok := r.contacts.contacts[purchase.ContactID]
		if !ok || contact.CompanyID != scope.CompanyID {
			continue
		}
		if scope.UserID != nil {
			owned := contact.CreatedBy == *scope.UserID ||
				(contact.AssignedUserID != nil && *contact.AssignedUserID == *scope.UserID)
			if !owned {
				continue
			}
		}
		purchases = append(purchases, *purchase)
	}
	return purchases, int64(len(purchases)), nil
}

func (r *stubPurchaseRepo) ListByContact(_ context.Context, contactID uuid.UUID, _, _ int) ([]model.Purchase, int64, error) {
	var purchases []model.Purchase
	for _, purchase := range r.purchases {
		if purchase.ContactID == contactID {
			purchases = append(purchases, *purchase)
		}
	}
	return purchases, int64(len(purchases)), nil
}

func (r *stubPurchaseRepo) SumByContact(_ context.Context, contactID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, purchase := range r.purchases {
		if purchase.ContactID == contactID {
			total = total.Add(purchase.TotalAmount)
		}
	}
	return total, nil
}

func (r *stubPurchaseRepo) Update(_ context.Context, purchase *model.Purchase) error {
	r.purchases[purchase.ID] = purchase
	return nil
}

func (r *stubPurchaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.purchases, id)
	return nil
}

// --- voucher rules ---

type stubVoucherRuleRepo struct {
	rules map[uuid.UUID]*model.VoucherRule
}

func newStubVoucherRuleRepo() *stubVoucherRuleRepo {
	return &stubVoucherRuleRepo{rules: make(map[uuid.UUID]*model.VoucherRule)}
}

func (r *stubVoucherRuleRepo) Create(_ context.Context, rule *model.VoucherRule) error {
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	r.rules[rule.ID] = rule
	return nil
}

func (r *stubVoucherRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.VoucherRule, error) {
	if rule, ok := r.rules[id]; ok {
		return rule, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubVoucherRuleRepo) List(_ context.Context, companyID uuid.UUID, activeOnly bool, _, _ int) ([]model.VoucherRule, int64, error) {
	var rules []model.VoucherRule
	for _, rule := range r.rules {
		if rule.CompanyID != companyID {
			continue
		}
		if activeOnly && !rule.IsActive {
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, int64(len(rules)), nil
}

func (r *stubVoucherRuleRepo) Update(_ context.Context, rule *model.VoucherRule) error {
	r.rules[rule.ID] = rule
	return nil
}

func (r *stubVoucherRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.rules, id)
	return nil
}

// --- vouchers ---

type stubVoucherRepo struct {
	vouchers map[uuid.UUID]*model.Voucher
	contacts *stubContactRepo
	// createErrs is a queue of errors returned by successive Create calls
	// before inserts start succeeding; used to simulate code collisions.
	createErrs []error
}

func newStubVoucherRepo(contacts *stubContactRepo) *stubVoucherRepo {
	return &stubVoucherRepo{vouchers: make(map[uuid.UUID]*model.Voucher), contacts: contacts}
}

func (r *stubVoucherRepo) Create(_ context.Context, voucher *model.Voucher) error {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		return err
	}
	voucher.ID = uuid.New()
	r.vouchers[voucher.ID] = voucher
	return nil
}

func (r *stubVoucherRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Voucher, error) {
	voucher, ok := r.vouchers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	voucher.Contact = r.contacts.contacts[voucher.ContactID]
	return voucher, nil
}

func (r *stubVoucherRepo) List(_ context.Context, scope repository.VisibilityScope, status string, _, _ int) ([]model.Voucher, int64, error) {
	var vouchers []model.Voucher
	for _, voucher := range r.vouchers {
		contact, ok := r.contacts.contacts[voucher.ContactID]
		if !ok || contact.CompanyID != scope.CompanyID {
			continue
		}
		if scope.UserID != nil {
			owned := contact.CreatedBy == *scope.UserID ||
				(contact.AssignedUserID != nil && *contact.AssignedUserID == *scope.UserID)
			if !owned {
				continue
			}
		}
		if status != "" && voucher.Status != status {
			continue
		}
		vouchers = append(vouchers, *voucher)
	}
	return vouchers, int64(len(vouchers)), nil
}

func (r *stubVoucherRepo) Update(_ context.Context, voucher *model.Voucher) error {
	r.vouchers[voucher.ID] = voucher
	return nil
}

// --- audit ---

type stubAuditRepo struct {
	entries []*model.AuditLog
}

func (r *stubAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) ListByCompany(_ context.Context, companyID uuid.UUID, _, _ int) ([]model.AuditLog, int64, error) {
	var entries []model.AuditLog
	for _, entry := range r.entries {
		if entry.CompanyID == companyID {
			entries = append(entries, *entry)
		}
	}
	return entries, int64(len(entries)), nil
}

// --- reports ---

type stubReportRepo struct {
	performance []repository.UserPerformanceRow
	revenue     []repository.RevenueRow
	lastGroupBy string
}

func (r *stubReportRepo) UserPerformance(_ context.Context, _ uuid.UUID) ([]repository.UserPerformanceRow, error) {
	return r.performance, nil
}

func (r *stubReportRepo) Revenue(_ context.Context, _ uuid.UUID, groupBy, _, _ string) ([]repository.RevenueRow, error) {
	r.lastGroupBy = groupBy
	return r.revenue, nil
}
