package repository

import (
	"context"

	"crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserPerformanceRow aggregates a salesworker's contacts and revenue.
type UserPerformanceRow struct {
	UserID        uuid.UUID `gorm:"column:user_id"`
	FullName      string    `gorm:"column:full_name"`
	Email         string    `gorm:"column:email"`
	ContactCount  int64     `gorm:"column:contact_count"`
	PurchaseCount int64     `gorm:"column:purchase_count"`
	TotalRevenue  float64   `gorm:"column:total_revenue"`
}

// RevenueRow is one period bucket of company revenue.
type RevenueRow struct {
	Period        string  `gorm:"column:period"`
	TotalRevenue  float64 `gorm:"column:total_revenue"`
	PurchaseCount int64   `gorm:"column:purchase_count"`
}

type ReportRepository interface {
	UserPerformance(ctx context.Context, companyID uuid.UUID) ([]UserPerformanceRow, error)
	Revenue(ctx context.Context, companyID uuid.UUID, groupBy, startDate, endDate string) ([]RevenueRow, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// UserPerformance lists per-user contact and revenue totals for one company.
// Profiles holding the admin role are excluded: admins are not salesworkers.
func (r *reportRepository) UserPerformance(ctx context.Context, companyID uuid.UUID) ([]UserPerformanceRow, error) {
	query := `
		SELECT
			p.id AS user_id,
			p.full_name,
			p.email,
			COUNT(DISTINCT c.id) AS contact_count,
			COUNT(pu.id) AS purchase_count,
			COALESCE(SUM(pu.total_amount), 0) AS total_revenue
		FROM profiles p
		LEFT JOIN contacts c ON c.created_by = p.id
		LEFT JOIN purchases pu ON pu.contact_id = c.id
		WHERE p.company_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM user_roles ur
			WHERE ur.user_id = p.id AND ur.role = $2
		  )
		GROUP BY p.id, p.full_name, p.email
		ORDER BY total_revenue DESC
	`

	var rows []UserPerformanceRow
	if err := GetDB(ctx, r.db).Raw(query, companyID, model.RoleAdmin).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Revenue buckets company purchase totals by period using DATE_TRUNC.
func (r *reportRepository) Revenue(ctx context.Context, companyID uuid.UUID, groupBy, startDate, endDate string) ([]RevenueRow, error) {
	// Open-ended ranges use the timestamptz infinities instead of branching SQL.
	if startDate == "" {
		startDate = "-infinity"
	}
	if endDate == "" {
		endDate = "infinity"
	}

	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, pu.purchase_date), 'YYYY-MM-DD') AS period,
			COALESCE(SUM(pu.total_amount), 0) AS total_revenue,
			COUNT(pu.id) AS purchase_count
		FROM purchases pu
		WHERE pu.company_id = $2
		  AND pu.purchase_date >= $3::timestamptz
		  AND pu.purchase_date <= $4::timestamptz
		GROUP BY DATE_TRUNC($1, pu.purchase_date)
		ORDER BY period
	`

	var rows []RevenueRow
	if err := GetDB(ctx, r.db).Raw(query, groupBy, companyID, startDate, endDate).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
