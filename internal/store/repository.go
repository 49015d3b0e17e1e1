/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the billing-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For import run identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/cloudlens/billing-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Project methods
	UpsertProject(ctx context.Context, project *domain.Project) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProjectByID(ctx context.Context, id string) (*domain.Project, error)
	ListProjectIDs(ctx context.Context) ([]string, error)
	ProjectNamesByID(ctx context.Context) (map[string]string, error)

	// Bill methods
	// UpsertBillWithDetails commits the bill row, payment fields and all of
	// its classified lines in a single transaction (delete-then-insert on
	// the lines, keyed by bill id).
	UpsertBillWithDetails(ctx context.Context, bill *domain.Bill, details []domain.BillingLine) error
	UpdateBillPayment(ctx context.Context, billID string, paymentType, paymentStatus *string, paymentDate *string) error
	ListBills(ctx context.Context, from, to string) ([]domain.Bill, error)
	GetBillByID(ctx context.Context, id string) (*domain.Bill, error)
	ListBillDetails(ctx context.Context, billID string) ([]domain.BillingLine, error)
	ListBillIDs(ctx context.Context) (map[string]struct{}, error)
	LatestBillDate(ctx context.Context) (string, error)

	// Consumption methods (GPU flavor enrichment)
	ReplaceProjectConsumption(ctx context.Context, projectID string, items []domain.ConsumptionItem) error
	GPUFlavorsByProject(ctx context.Context) (map[string][]string, error)

	// Import log methods
	CreateImportRun(ctx context.Context, run *domain.ImportRun) error
	CompleteImportRun(ctx context.Context, id uuid.UUID, stats domain.ImportStats) error
	FailImportRun(ctx context.Context, id uuid.UUID, message string) error
	LatestImportRun(ctx context.Context) (*domain.ImportRun, error)
	ListImportRuns(ctx context.Context, limit int) ([]domain.ImportRun, error)

	// ClearAllBillingData removes bills, lines, projects and consumption
	// rows ahead of a full re-import. The import log is kept.
	ClearAllBillingData(ctx context.Context) error

	// Aggregation methods. All date parameters are YYYY-MM-DD strings that
	// have already passed validation; sums are returned unrounded.
	CostsByProject(ctx context.Context, from, to string) ([]domain.ProjectCost, error)
	CostsByService(ctx context.Context, from, to string) ([]domain.ServiceCost, error)
	CostsByResourceType(ctx context.Context, from, to string) ([]domain.ResourceTypeCost, error)
	CostsForResourceType(ctx context.Context, resourceType domain.ResourceType, from, to string) ([]domain.ResourceCost, error)
	DailyTrend(ctx context.Context, from, to string) ([]domain.DailyCost, error)
	MonthlyTrend(ctx context.Context, months int) ([]domain.MonthlyCost, error)
	CostTotals(ctx context.Context, from, to string) (*domain.CostTotals, error)
	ProjectDailyCosts(ctx context.Context, projectID, from, to string) ([]domain.ProjectDailyCost, error)
	ListBillMonths(ctx context.Context) ([]string, error)
	GPULines(ctx context.Context, from, to string) ([]domain.GPULine, error)
}
