package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/cloudlens/billing-service/internal/domain"
	"github.com/cloudlens/billing-service/internal/store"
	"github.com/cloudlens/billing-service/pkg/ovhclient"
)

type importRepoStub struct {
	store.Repository
	mu sync.Mutex

	storedBillIDs  map[string]struct{}
	latestBillDate string

	clearCalled   bool
	projects      []domain.Project
	bills         map[string]*domain.Bill
	billLines     map[string][]domain.BillingLine
	payments      map[string]*string
	consumption   map[string][]domain.ConsumptionItem
	createdRun    *domain.ImportRun
	completedID   uuid.UUID
	completed     *domain.ImportStats
	failedMessage string
}

func newImportRepoStub() *importRepoStub {
	return &importRepoStub{
		storedBillIDs: map[string]struct{}{},
		bills:         map[string]*domain.Bill{},
		billLines:     map[string][]domain.BillingLine{},
		payments:      map[string]*string{},
		consumption:   map[string][]domain.ConsumptionItem{},
	}
}

func (s *importRepoStub) ClearAllBillingData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalled = true
	s.storedBillIDs = map[string]struct{}{}
	return nil
}

func (s *importRepoStub) UpsertProject(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, *project)
	return nil
}

func (s *importRepoStub) UpsertBillWithDetails(ctx context.Context, bill *domain.Bill, details []domain.BillingLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[bill.ID] = bill
	s.billLines[bill.ID] = details
	s.storedBillIDs[bill.ID] = struct{}{}
	return nil
}

func (s *importRepoStub) UpdateBillPayment(ctx context.Context, billID string, paymentType, paymentStatus *string, paymentDate *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[billID] = paymentStatus
	return nil
}

func (s *importRepoStub) ListBillIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]struct{}, len(s.storedBillIDs))
	for id := range s.storedBillIDs {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *importRepoStub) LatestBillDate(ctx context.Context) (string, error) {
	return s.latestBillDate, nil
}

func (s *importRepoStub) ReplaceProjectConsumption(ctx context.Context, projectID string, items []domain.ConsumptionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumption[projectID] = items
	return nil
}

func (s *importRepoStub) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdRun = run
	return nil
}

func (s *importRepoStub) CompleteImportRun(ctx context.Context, id uuid.UUID, stats domain.ImportStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedID = id
	s.completed = &stats
	return nil
}

func (s *importRepoStub) FailImportRun(ctx context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedMessage = message
	return nil
}

type sourceStub struct {
	BillingSource

	projectIDs []string
	billIDs    []string
	details    map[string][]ovhclient.BillDetail

	billErrs    map[string]error
	listBillErr error

	dedicatedServers []string
	vpsNames         []string

	consumption map[string][]domain.ConsumptionItem
}

func (s *sourceStub) ListProjectIDs(ctx context.Context) ([]string, error) {
	return s.projectIDs, nil
}

func (s *sourceStub) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	return &domain.Project{ID: projectID, Name: "project " + projectID, Status: "ok"}, nil
}

func (s *sourceStub) ListBillIDs(ctx context.Context, from, to string) ([]string, error) {
	if s.listBillErr != nil {
		return nil, s.listBillErr
	}
	return s.billIDs, nil
}

func (s *sourceStub) GetBill(ctx context.Context, billID string) (*domain.Bill, error) {
	if err := s.billErrs[billID]; err != nil {
		return nil, err
	}
	return &domain.Bill{ID: billID, Currency: "EUR"}, nil
}

func (s *sourceStub) ListBillDetailIDs(ctx context.Context, billID string) ([]string, error) {
	ids := make([]string, 0, len(s.details[billID]))
	for _, d := range s.details[billID] {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *sourceStub) GetBillDetail(ctx context.Context, billID, detailID string) (*ovhclient.BillDetail, error) {
	for _, d := range s.details[billID] {
		if d.ID == detailID {
			detail := d
			return &detail, nil
		}
	}
	return nil, errors.New("detail not found")
}

func (s *sourceStub) GetBillPayment(ctx context.Context, billID string) (*ovhclient.BillPayment, error) {
	paymentType := "creditCard"
	return &ovhclient.BillPayment{Type: &paymentType, Status: "paid"}, nil
}

func (s *sourceStub) GetProjectConsumption(ctx context.Context, projectID string) ([]domain.ConsumptionItem, error) {
	return s.consumption[projectID], nil
}

func (s *sourceStub) ListDedicatedServers(ctx context.Context) ([]string, error) {
	return s.dedicatedServers, nil
}

func (s *sourceStub) ListVPS(ctx context.Context) ([]string, error) { return s.vpsNames, nil }

func (s *sourceStub) ListNetAppStorage(ctx context.Context) ([]string, error) { return nil, nil }

func (s *sourceStub) ListIPBlocks(ctx context.Context) ([]string, error) { return nil, nil }

func (s *sourceStub) ListLoadBalancers(ctx context.Context) ([]string, error) { return nil, nil }

func (s *sourceStub) ListPrivateClouds(ctx context.Context) ([]string, error) { return nil, nil }

func TestRunImportDifferentialSkipsStoredBills(t *testing.T) {
	repo := newImportRepoStub()
	repo.storedBillIDs["FR100"] = struct{}{}
	repo.latestBillDate = "2025-01-01"

	source := &sourceStub{
		billIDs: []string{"FR100", "FR101"},
		details: map[string][]ovhclient.BillDetail{
			"FR101": {{ID: "d1", Domain: "vps-1.example.net", Description: "VPS renewal", TotalPrice: 5}},
		},
	}
	svc := NewService(repo, source, nil, "", 0)

	run, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeDifferential})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.ImportStatusSuccess {
		t.Fatalf("expected success, got %s", run.Status)
	}
	if run.BillsImported != 1 || run.DetailsImported != 1 {
		t.Errorf("expected 1 bill with 1 detail, got bills=%d details=%d", run.BillsImported, run.DetailsImported)
	}
	if _, ok := repo.bills["FR100"]; ok {
		t.Error("stored bill FR100 should not have been re-imported")
	}
	if _, ok := repo.bills["FR101"]; !ok {
		t.Error("fresh bill FR101 should have been imported")
	}
}

func TestRunImportFullClearsStoredData(t *testing.T) {
	repo := newImportRepoStub()
	repo.storedBillIDs["FR100"] = struct{}{}

	source := &sourceStub{billIDs: []string{"FR200"}, details: map[string][]ovhclient.BillDetail{
		"FR200": {{ID: "d1", Domain: "example.com", Description: "Domain renewal", TotalPrice: 12}},
	}}
	svc := NewService(repo, source, nil, "", 0)

	run, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeFull})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.clearCalled {
		t.Error("full import should clear stored billing data first")
	}
	if run.BillsImported != 1 {
		t.Errorf("expected 1 imported bill, got %d", run.BillsImported)
	}
}

func TestRunImportToleratesBillFailures(t *testing.T) {
	repo := newImportRepoStub()
	source := &sourceStub{
		billIDs:  []string{"FR1", "FR2"},
		billErrs: map[string]error{"FR1": errors.New("upstream 500")},
		details: map[string][]ovhclient.BillDetail{
			"FR2": {{ID: "d1", Domain: "ns500.ip-1-2-3.eu", Description: "Dedicated server", TotalPrice: 80}},
		},
	}
	svc := NewService(repo, source, nil, "", 0)

	run, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeFull})
	if err != nil {
		t.Fatalf("bill-level failure should not fail the run: %v", err)
	}
	if run.Status != domain.ImportStatusSuccess {
		t.Fatalf("expected success, got %s", run.Status)
	}
	if run.Failures != 1 || run.BillsImported != 1 {
		t.Errorf("expected failures=1 bills=1, got failures=%d bills=%d", run.Failures, run.BillsImported)
	}
}

func TestRunImportFailsWhenBillListingFails(t *testing.T) {
	repo := newImportRepoStub()
	source := &sourceStub{listBillErr: errors.New("api down")}
	svc := NewService(repo, source, nil, "", 0)

	run, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeFull})
	if err == nil {
		t.Fatal("expected error when bill listing fails")
	}
	if run == nil || run.Status != domain.ImportStatusFailed {
		t.Fatalf("expected failed run record, got %+v", run)
	}
	if repo.failedMessage == "" {
		t.Error("expected failure message recorded on the import run")
	}
}

func TestRunImportClassifiesLines(t *testing.T) {
	repo := newImportRepoStub()
	source := &sourceStub{
		projectIDs: []string{"1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d"},
		billIDs:    []string{"FR1"},
		vpsNames:   []string{"my-box.example.net"},
		details: map[string][]ovhclient.BillDetail{
			"FR1": {
				{ID: "d1", Domain: "1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d", Description: "Instance B2-30", TotalPrice: 10},
				{ID: "d2", Domain: "my-box.example.net", Description: "Rental", TotalPrice: 5},
				{ID: "d3", Domain: "example.org", Description: "Domain renewal", TotalPrice: 8},
			},
		},
	}
	svc := NewService(repo, source, nil, "", 0)

	if _, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeFull}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := repo.billLines["FR1"]
	if len(lines) != 3 {
		t.Fatalf("expected 3 stored lines, got %d", len(lines))
	}
	byDomain := map[string]domain.BillingLine{}
	for _, line := range lines {
		byDomain[line.Domain] = line
	}

	project := byDomain["1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d"]
	if project.ResourceType != domain.ResourceCloudProject {
		t.Errorf("expected cloud_project, got %s", project.ResourceType)
	}
	if project.ProjectID == nil || *project.ProjectID != "1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d" {
		t.Error("expected project id set for known project domain")
	}
	if project.ID != "FR1_d1" {
		t.Errorf("expected composite line id FR1_d1, got %s", project.ID)
	}

	if byDomain["my-box.example.net"].ResourceType != domain.ResourceVPS {
		t.Errorf("expected inventory match to classify as vps, got %s", byDomain["my-box.example.net"].ResourceType)
	}
	if byDomain["example.org"].ResourceType != domain.ResourceDomain {
		t.Errorf("expected pattern inference to classify as domain, got %s", byDomain["example.org"].ResourceType)
	}

	if status, ok := repo.payments["FR1"]; !ok || status == nil || *status != "paid" {
		t.Error("expected payment status stored as paid")
	}
}

func TestRunImportIncludesConsumption(t *testing.T) {
	repo := newImportRepoStub()
	source := &sourceStub{
		projectIDs: []string{"abc"},
		consumption: map[string][]domain.ConsumptionItem{
			"abc": {{ProjectID: "abc", ResourceType: "instance", PlanCode: "h100-380"}},
		},
	}
	svc := NewService(repo, source, nil, "", 0)

	if _, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeFull, IncludeConsumption: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.consumption["abc"]) != 1 {
		t.Error("expected consumption snapshot stored for project abc")
	}
}

func TestRunImportRejectsBadOptions(t *testing.T) {
	repo := newImportRepoStub()
	svc := NewService(repo, &sourceStub{}, nil, "", 0)

	if _, err := svc.RunImport(context.Background(), ImportOptions{Type: "sideways"}); err == nil {
		t.Error("expected error for unknown import type")
	}
	if _, err := svc.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypePeriod, From: "2025-02-01", To: "2025-01-01"}); err == nil {
		t.Error("expected error for inverted period range")
	}
	if repo.createdRun != nil {
		t.Error("no import run should be recorded for rejected options")
	}

	noSource := NewService(repo, nil, nil, "", 0)
	if _, err := noSource.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeFull}); err == nil {
		t.Error("expected error when no billing source is configured")
	}
}
