/**
 * @description
 * This file defines the core application service for the billing-service.
 * The Service wires the repository, the billing provider client and the
 * optional event publisher together, and hosts the browsing, cost-analysis
 * and import operations consumed by the API layer and the import runner.
 *
 * @dependencies
 * - internal/store: Repository interface.
 * - pkg/ovhclient: typed billing API client types.
 * - pkg/rabbitmq: optional event publisher.
 */

package app

import (
	"context"

	"github.com/cloudlens/billing-service/internal/domain"
	"github.com/cloudlens/billing-service/internal/store"
	"github.com/cloudlens/billing-service/pkg/ovhclient"
	"github.com/cloudlens/billing-service/pkg/rabbitmq"
)

// BillingSource is the subset of the billing provider API the import
// pipeline consumes. Implemented by *ovhclient.Client; faked in tests.
type BillingSource interface {
	ListProjectIDs(ctx context.Context) ([]string, error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListBillIDs(ctx context.Context, from, to string) ([]string, error)
	GetBill(ctx context.Context, billID string) (*domain.Bill, error)
	ListBillDetailIDs(ctx context.Context, billID string) ([]string, error)
	GetBillDetail(ctx context.Context, billID, detailID string) (*ovhclient.BillDetail, error)
	GetBillPayment(ctx context.Context, billID string) (*ovhclient.BillPayment, error)
	GetProjectConsumption(ctx context.Context, projectID string) ([]domain.ConsumptionItem, error)

	ListDedicatedServers(ctx context.Context) ([]string, error)
	ListVPS(ctx context.Context) ([]string, error)
	ListNetAppStorage(ctx context.Context) ([]string, error)
	ListIPBlocks(ctx context.Context) ([]string, error)
	ListLoadBalancers(ctx context.Context) ([]string, error)
	ListPrivateClouds(ctx context.Context) ([]string, error)
	ListPrivateCloudHostNames(ctx context.Context, pccName string) ([]string, error)
	ListPrivateCloudDatastoreNames(ctx context.Context, pccName string) ([]string, error)
}

// Service provides the application's business logic.
type Service struct {
	repo            store.Repository
	source          BillingSource
	producer        rabbitmq.Publisher
	importExchange  string
	importBatchSize int
}

// NewService creates a new application service. The producer may be nil;
// import completion events are then skipped. The source may be nil when
// the service only serves analysis queries.
func NewService(repo store.Repository, source BillingSource, producer rabbitmq.Publisher, importExchange string, importBatchSize int) *Service {
	if importBatchSize <= 0 {
		importBatchSize = 80
	}
	return &Service{
		repo:            repo,
		source:          source,
		producer:        producer,
		importExchange:  importExchange,
		importBatchSize: importBatchSize,
	}
}

// ListProjects returns all known cloud projects.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx)
}

// GetProject returns one project by id.
func (s *Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetProjectByID(ctx, id)
}

// ListBills returns stored bills, optionally bounded by a date range.
func (s *Service) ListBills(ctx context.Context, from, to string) ([]domain.Bill, error) {
	return s.repo.ListBills(ctx, from, to)
}

// GetBill returns one stored bill.
func (s *Service) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	return s.repo.GetBillByID(ctx, id)
}

// ListBillDetails returns the classified lines of one stored bill.
func (s *Service) ListBillDetails(ctx context.Context, billID string) ([]domain.BillingLine, error) {
	return s.repo.ListBillDetails(ctx, billID)
}

// ImportStatus reports the latest import run and recent history.
type ImportStatus struct {
	Latest  *domain.ImportRun  `json:"latest"`
	History []domain.ImportRun `json:"history"`
}

// GetImportStatus returns the latest run plus up to 10 recent runs.
func (s *Service) GetImportStatus(ctx context.Context) (*ImportStatus, error) {
	latest, err := s.repo.LatestImportRun(ctx)
	if err != nil && err != store.ErrImportRunNotFound {
		return nil, err
	}
	history, err := s.repo.ListImportRuns(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &ImportStatus{Latest: latest, History: history}, nil
}
