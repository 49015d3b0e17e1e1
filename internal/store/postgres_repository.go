/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to projects, bills, classified billing lines, consumption snapshots
 * and the import audit log, plus the aggregation queries behind the analysis
 * endpoints.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudlens/billing-service/internal/domain"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrBillNotFound      = errors.New("bill not found")
	ErrImportRunNotFound = errors.New("import run not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the service's tables when they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS bills (
			id                TEXT PRIMARY KEY,
			date              DATE NOT NULL,
			price_without_tax DOUBLE PRECISION NOT NULL DEFAULT 0,
			price_with_tax    DOUBLE PRECISION NOT NULL DEFAULT 0,
			tax               DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency          TEXT NOT NULL DEFAULT 'EUR',
			pdf_url           TEXT NOT NULL DEFAULT '',
			html_url          TEXT NOT NULL DEFAULT '',
			payment_type      TEXT,
			payment_date      DATE,
			payment_status    TEXT,
			imported_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bills_date ON bills (date);

		CREATE TABLE IF NOT EXISTS bill_details (
			id            TEXT PRIMARY KEY,
			bill_id       TEXT NOT NULL REFERENCES bills (id) ON DELETE CASCADE,
			project_id    TEXT,
			domain        TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			quantity      DOUBLE PRECISION NOT NULL DEFAULT 0,
			unit_price    DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
			service_type  TEXT NOT NULL,
			resource_type TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_bill_details_bill_id ON bill_details (bill_id);
		CREATE INDEX IF NOT EXISTS idx_bill_details_project_id ON bill_details (project_id);
		CREATE INDEX IF NOT EXISTS idx_bill_details_service_type ON bill_details (service_type);
		CREATE INDEX IF NOT EXISTS idx_bill_details_resource_type ON bill_details (resource_type);

		CREATE TABLE IF NOT EXISTS project_consumption (
			project_id    TEXT NOT NULL,
			resource_type TEXT NOT NULL DEFAULT '',
			resource_name TEXT NOT NULL DEFAULT '',
			region        TEXT NOT NULL DEFAULT '',
			plan_code     TEXT NOT NULL DEFAULT '',
			quantity      DOUBLE PRECISION NOT NULL DEFAULT 0,
			price         DOUBLE PRECISION NOT NULL DEFAULT 0,
			synced_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_project_consumption_project ON project_consumption (project_id);

		CREATE TABLE IF NOT EXISTS import_log (
			id                UUID PRIMARY KEY,
			type              TEXT NOT NULL,
			from_date         TEXT,
			to_date           TEXT,
			status            TEXT NOT NULL,
			bills_imported    INTEGER NOT NULL DEFAULT 0,
			details_imported  INTEGER NOT NULL DEFAULT 0,
			projects_imported INTEGER NOT NULL DEFAULT 0,
			failures          INTEGER NOT NULL DEFAULT 0,
			error_message     TEXT,
			started_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at      TIMESTAMPTZ
		);
	`)
	return err
}

// UpsertProject inserts or refreshes one project from the provider's listing.
func (r *PostgresRepository) UpsertProject(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (id, name, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, project.ID, project.Name, project.Description, project.Status)
	return err
}

// ListProjects returns all known projects ordered by name.
func (r *PostgresRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, status, created_at, updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProjectByID retrieves one project.
func (r *PostgresRepository) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	query := `SELECT id, name, description, status, created_at, updated_at FROM projects WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProjectIDs returns the membership set the classifier snapshots before an import run.
func (r *PostgresRepository) ListProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM projects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProjectNamesByID returns a project id to display name mapping.
func (r *PostgresRepository) ProjectNamesByID(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM projects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// UpsertBillWithDetails persists a bill and its classified lines atomically.
// Lines are replaced wholesale (delete by bill id, then insert), so a
// re-import of the same bill reproduces identical rows.
func (r *PostgresRepository) UpsertBillWithDetails(ctx context.Context, bill *domain.Bill, details []domain.BillingLine) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	billQuery := `
		INSERT INTO bills (id, date, price_without_tax, price_with_tax, tax, currency, pdf_url, html_url, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			price_without_tax = EXCLUDED.price_without_tax,
			price_with_tax = EXCLUDED.price_with_tax,
			tax = EXCLUDED.tax,
			currency = EXCLUDED.currency,
			pdf_url = EXCLUDED.pdf_url,
			html_url = EXCLUDED.html_url,
			imported_at = NOW()
	`
	if _, err := tx.Exec(ctx, billQuery,
		bill.ID, bill.Date, bill.PriceWithoutTax, bill.PriceWithTax, bill.Tax,
		bill.Currency, bill.PDFURL, bill.HTMLURL,
	); err != nil {
		return fmt.Errorf("failed to upsert bill %s: %w", bill.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bill_details WHERE bill_id = $1`, bill.ID); err != nil {
		return fmt.Errorf("failed to clear details for bill %s: %w", bill.ID, err)
	}

	detailQuery := `
		INSERT INTO bill_details (id, bill_id, project_id, domain, description, quantity, unit_price, total_price, service_type, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i := range details {
		d := &details[i]
		if _, err := tx.Exec(ctx, detailQuery,
			d.ID, d.BillID, d.ProjectID, d.Domain, d.Description,
			d.Quantity, d.UnitPrice, d.TotalPrice, string(d.ServiceType), string(d.ResourceType),
		); err != nil {
			return fmt.Errorf("failed to insert detail %s: %w", d.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateBillPayment records payment metadata fetched from the account subsystem.
func (r *PostgresRepository) UpdateBillPayment(ctx context.Context, billID string, paymentType, paymentStatus *string, paymentDate *string) error {
	query := `UPDATE bills SET payment_type = $1, payment_status = $2, payment_date = $3::date WHERE id = $4`
	result, err := r.db.Exec(ctx, query, paymentType, paymentStatus, paymentDate, billID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func scanBill(row pgx.Row) (*domain.Bill, error) {
	var b domain.Bill
	err := row.Scan(
		&b.ID, &b.Date, &b.PriceWithoutTax, &b.PriceWithTax, &b.Tax,
		&b.Currency, &b.PDFURL, &b.HTMLURL,
		&b.PaymentType, &b.PaymentDate, &b.PaymentStatus, &b.ImportedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const billColumns = `id, date, price_without_tax, price_with_tax, tax, currency, pdf_url, html_url, payment_type, payment_date, payment_status, imported_at`

// ListBills returns bills newest first, optionally constrained to a date range.
// Empty from/to leave the corresponding bound open.
func (r *PostgresRepository) ListBills(ctx context.Context, from, to string) ([]domain.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills`
	var args []interface{}
	switch {
	case from != "" && to != "":
		query += ` WHERE date >= $1::date AND date <= $2::date`
		args = append(args, from, to)
	case from != "":
		query += ` WHERE date >= $1::date`
		args = append(args, from)
	case to != "":
		query += ` WHERE date <= $1::date`
		args = append(args, to)
	}
	query += ` ORDER BY date DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// GetBillByID retrieves one bill.
func (r *PostgresRepository) GetBillByID(ctx context.Context, id string) (*domain.Bill, error) {
	row := r.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	b, err := scanBill(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListBillDetails returns the classified lines of one bill.
func (r *PostgresRepository) ListBillDetails(ctx context.Context, billID string) ([]domain.BillingLine, error) {
	query := `
		SELECT id, bill_id, project_id, domain, description, quantity, unit_price, total_price, service_type, resource_type
		FROM bill_details
		WHERE bill_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []domain.BillingLine
	for rows.Next() {
		var d domain.BillingLine
		var serviceType, resourceType string
		if err := rows.Scan(&d.ID, &d.BillID, &d.ProjectID, &d.Domain, &d.Description,
			&d.Quantity, &d.UnitPrice, &d.TotalPrice, &serviceType, &resourceType); err != nil {
			return nil, err
		}
		d.ServiceType = domain.ServiceCategory(serviceType)
		d.ResourceType = domain.ResourceType(resourceType)
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListBillIDs returns the set of already-stored bill ids, used by
// differential imports to skip bills that are present.
func (r *PostgresRepository) ListBillIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM bills`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// LatestBillDate returns the newest stored bill date as YYYY-MM-DD, or an
// empty string when no bills exist.
func (r *PostgresRepository) LatestBillDate(ctx context.Context) (string, error) {
	var latest *time.Time
	if err := r.db.QueryRow(ctx, `SELECT MAX(date) FROM bills`).Scan(&latest); err != nil {
		return "", err
	}
	if latest == nil {
		return "", nil
	}
	return latest.Format("2006-01-02"), nil
}

// ReplaceProjectConsumption swaps one project's consumption snapshot atomically.
func (r *PostgresRepository) ReplaceProjectConsumption(ctx context.Context, projectID string, items []domain.ConsumptionItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM project_consumption WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear consumption for project %s: %w", projectID, err)
	}

	query := `
		INSERT INTO project_consumption (project_id, resource_type, resource_name, region, plan_code, quantity, price, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	for _, item := range items {
		if _, err := tx.Exec(ctx, query,
			projectID, item.ResourceType, item.ResourceName, item.Region,
			item.PlanCode, item.Quantity, item.Price,
		); err != nil {
			return fmt.Errorf("failed to insert consumption row for project %s: %w", projectID, err)
		}
	}

	return tx.Commit(ctx)
}

// GPUFlavorsByProject returns, per project, the distinct GPU instance
// flavors seen in the consumption snapshot. Best effort: projects without
// consumption data are simply absent.
func (r *PostgresRepository) GPUFlavorsByProject(ctx context.Context) (map[string][]string, error) {
	query := `
		SELECT DISTINCT project_id, plan_code
		FROM project_consumption
		WHERE resource_type IN ('instance', 'instance_monthly')
		  AND plan_code ~* '(l4|l40s|a100|h100|v100|t1|t2)-'
		ORDER BY project_id, plan_code
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flavors := make(map[string][]string)
	for rows.Next() {
		var projectID, planCode string
		if err := rows.Scan(&projectID, &planCode); err != nil {
			return nil, err
		}
		flavors[projectID] = append(flavors[projectID], planCode)
	}
	return flavors, rows.Err()
}

// CreateImportRun records the start of an ingestion pass.
func (r *PostgresRepository) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	query := `
		INSERT INTO import_log (id, type, from_date, to_date, status, started_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, run.ID, run.Type, run.FromDate, run.ToDate, run.Status)
	return err
}

// CompleteImportRun finalizes a run as successful with its counters.
func (r *PostgresRepository) CompleteImportRun(ctx context.Context, id uuid.UUID, stats domain.ImportStats) error {
	query := `
		UPDATE import_log SET
			completed_at = NOW(),
			bills_imported = $1,
			details_imported = $2,
			projects_imported = $3,
			failures = $4,
			status = 'success'
		WHERE id = $5
	`
	result, err := r.db.Exec(ctx, query, stats.Bills, stats.Details, stats.Projects, stats.Failures, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrImportRunNotFound
	}
	return nil
}

// FailImportRun finalizes a run as failed with the causing message.
func (r *PostgresRepository) FailImportRun(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE import_log SET
			completed_at = NOW(),
			status = 'failed',
			error_message = $1
		WHERE id = $2
	`
	result, err := r.db.Exec(ctx, query, message, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrImportRunNotFound
	}
	return nil
}

func scanImportRun(row pgx.Row) (*domain.ImportRun, error) {
	var run domain.ImportRun
	err := row.Scan(
		&run.ID, &run.Type, &run.FromDate, &run.ToDate, &run.Status,
		&run.BillsImported, &run.DetailsImported, &run.ProjectsImported,
		&run.Failures, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

const importRunColumns = `id, type, from_date, to_date, status, bills_imported, details_imported, projects_imported, failures, error_message, started_at, completed_at`

// LatestImportRun returns the most recently started run.
func (r *PostgresRepository) LatestImportRun(ctx context.Context) (*domain.ImportRun, error) {
	row := r.db.QueryRow(ctx, `SELECT `+importRunColumns+` FROM import_log ORDER BY started_at DESC LIMIT 1`)
	run, err := scanImportRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrImportRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListImportRuns returns runs newest first.
func (r *PostgresRepository) ListImportRuns(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	rows, err := r.db.Query(ctx, `SELECT `+importRunColumns+` FROM import_log ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ClearAllBillingData wipes bills, lines, projects and consumption rows
// ahead of a full re-import. The import log is intentionally kept.
func (r *PostgresRepository) ClearAllBillingData(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM bill_details`,
		`DELETE FROM bills`,
		`DELETE FROM project_consumption`,
		`DELETE FROM projects`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// CostsByProject groups line totals by project within the range, highest first.
func (r *PostgresRepository) CostsByProject(ctx context.Context, from, to string) ([]domain.ProjectCost, error) {
	query := `
		SELECT
			d.project_id,
			COALESCE(p.name, '') AS project_name,
			SUM(d.total_price) AS total,
			COUNT(d.id) AS details_count
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		LEFT JOIN projects p ON d.project_id = p.id
		WHERE b.date >= $1::date AND b.date <= $2::date
		  AND d.project_id IS NOT NULL
		GROUP BY d.project_id, p.name
		ORDER BY total DESC
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []domain.ProjectCost
	for rows.Next() {
		var c domain.ProjectCost
		if err := rows.Scan(&c.ProjectID, &c.ProjectName, &c.Total, &c.DetailsCount); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// CostsByService groups line totals by service category within the range.
func (r *PostgresRepository) CostsByService(ctx context.Context, from, to string) ([]domain.ServiceCost, error) {
	query := `
		SELECT d.service_type, SUM(d.total_price) AS total, COUNT(d.id) AS details_count
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= $1::date AND b.date <= $2::date
		GROUP BY d.service_type
		ORDER BY total DESC
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []domain.ServiceCost
	for rows.Next() {
		var c domain.ServiceCost
		var serviceType string
		if err := rows.Scan(&serviceType, &c.Total, &c.DetailsCount); err != nil {
			return nil, err
		}
		c.ServiceType = domain.ServiceCategory(serviceType)
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// CostsByResourceType groups line totals by resource type within the range.
// service_count is the number of distinct domains inside the group.
func (r *PostgresRepository) CostsByResourceType(ctx context.Context, from, to string) ([]domain.ResourceTypeCost, error) {
	query := `
		SELECT
			d.resource_type,
			SUM(d.total_price) AS total,
			COUNT(d.id) AS details_count,
			COUNT(DISTINCT d.domain) AS service_count
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= $1::date AND b.date <= $2::date
		GROUP BY d.resource_type
		ORDER BY total DESC
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []domain.ResourceTypeCost
	for rows.Next() {
		var c domain.ResourceTypeCost
		var resourceType string
		if err := rows.Scan(&resourceType, &c.Total, &c.DetailsCount, &c.ServiceCount); err != nil {
			return nil, err
		}
		c.ResourceType = domain.ResourceType(resourceType)
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// CostsForResourceType drills into one resource type, grouping by domain.
// The representative description is the group's highest-value line; groups
// summing to zero are excluded.
func (r *PostgresRepository) CostsForResourceType(ctx context.Context, resourceType domain.ResourceType, from, to string) ([]domain.ResourceCost, error) {
	query := `
		SELECT
			d.domain,
			(ARRAY_AGG(d.description ORDER BY d.total_price DESC))[1] AS description,
			SUM(d.total_price) AS total,
			COUNT(d.id) AS details_count
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= $1::date AND b.date <= $2::date
		  AND d.resource_type = $3
		GROUP BY d.domain
		HAVING SUM(d.total_price) <> 0
		ORDER BY total DESC
	`
	rows, err := r.db.Query(ctx, query, from, to, string(resourceType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []domain.ResourceCost
	for rows.Next() {
		var c domain.ResourceCost
		if err := rows.Scan(&c.Domain, &c.Description, &c.Total, &c.DetailsCount); err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// DailyTrend groups line totals by bill date, ascending.
func (r *PostgresRepository) DailyTrend(ctx context.Context, from, to string) ([]domain.DailyCost, error) {
	query := `
		SELECT to_char(b.date, 'YYYY-MM-DD') AS date, SUM(d.total_price) AS total
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= $1::date AND b.date <= $2::date
		GROUP BY b.date
		ORDER BY b.date
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []domain.DailyCost
	for rows.Next() {
		var c domain.DailyCost
		if err := rows.Scan(&c.Date, &c.Total); err != nil {
			return nil, err
		}
		trend = append(trend, c)
	}
	return trend, rows.Err()
}

// MonthlyTrend groups line totals by calendar month over the trailing
// window ending now, ascending. The window is independent of any
// caller-supplied date range.
func (r *PostgresRepository) MonthlyTrend(ctx context.Context, months int) ([]domain.MonthlyCost, error) {
	query := `
		SELECT to_char(b.date, 'YYYY-MM') AS month, SUM(d.total_price) AS total
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= (date_trunc('month', CURRENT_DATE) - make_interval(months => $1))::date
		GROUP BY to_char(b.date, 'YYYY-MM')
		ORDER BY month
	`
	rows, err := r.db.Query(ctx, query, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []domain.MonthlyCost
	for rows.Next() {
		var c domain.MonthlyCost
		if err := rows.Scan(&c.Month, &c.Total); err != nil {
			return nil, err
		}
		trend = append(trend, c)
	}
	return trend, rows.Err()
}

// CostTotals computes the cloud/non-cloud split and distinct counters for
// the summary endpoint in one pass.
func (r *PostgresRepository) CostTotals(ctx context.Context, from, to string) (*domain.CostTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(d.total_price) FILTER (WHERE d.project_id IS NOT NULL), 0) AS cloud_total,
			COALESCE(SUM(d.total_price) FILTER (WHERE d.project_id IS NULL), 0) AS non_cloud_total,
			COALESCE(SUM(d.total_price), 0) AS grand_total,
			COUNT(DISTINCT b.id) AS bills_count,
			COUNT(DISTINCT d.project_id) AS projects_count
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= $1::date AND b.date <= $2::date
	`
	var totals domain.CostTotals
	err := r.db.QueryRow(ctx, query, from, to).Scan(
		&totals.CloudTotal, &totals.NonCloudTotal, &totals.GrandTotal,
		&totals.BillsCount, &totals.ProjectsCount,
	)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// ProjectDailyCosts returns one project's costs bucketed by (date, service_type).
func (r *PostgresRepository) ProjectDailyCosts(ctx context.Context, projectID, from, to string) ([]domain.ProjectDailyCost, error) {
	query := `
		SELECT to_char(b.date, 'YYYY-MM-DD') AS date, d.service_type, SUM(d.total_price) AS total
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE d.project_id = $1
		  AND b.date >= $2::date AND b.date <= $3::date
		GROUP BY b.date, d.service_type
		ORDER BY b.date
	`
	rows, err := r.db.Query(ctx, query, projectID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []domain.ProjectDailyCost
	for rows.Next() {
		var c domain.ProjectDailyCost
		var serviceType string
		if err := rows.Scan(&c.Date, &serviceType, &c.Total); err != nil {
			return nil, err
		}
		c.ServiceType = domain.ServiceCategory(serviceType)
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// ListBillMonths returns the distinct YYYY-MM months with stored bills, newest first.
func (r *PostgresRepository) ListBillMonths(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT to_char(date, 'YYYY-MM') AS month FROM bills ORDER BY month DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var month string
		if err := rows.Scan(&month); err != nil {
			return nil, err
		}
		months = append(months, month)
	}
	return months, rows.Err()
}

// GPULines returns candidate GPU billing lines within the range. The SQL
// filter is a coarse prefilter; the service layer re-derives membership
// and the GPU model from the description.
func (r *PostgresRepository) GPULines(ctx context.Context, from, to string) ([]domain.GPULine, error) {
	query := `
		SELECT d.domain, d.description, d.total_price, b.date
		FROM bill_details d
		JOIN bills b ON d.bill_id = b.id
		WHERE b.date >= $1::date AND b.date <= $2::date
		  AND d.description ~* 'instances?\s+(l4|l40s|a100|h100|v100|t1|t2)-'
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.GPULine
	for rows.Next() {
		var line domain.GPULine
		if err := rows.Scan(&line.Domain, &line.Description, &line.TotalPrice, &line.Date); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
