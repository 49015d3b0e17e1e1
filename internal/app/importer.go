/**
 * @description
 * This file implements the ingestion pipeline: project sync, inventory
 * snapshot, bill fetching and classification, payment metadata, and the
 * import audit log. Bills are fetched in bounded-concurrency batches and
 * each bill is persisted in its own transaction, so a failed bill never
 * poisons the rest of the run. Re-importing a bill replaces its lines.
 *
 * @dependencies
 * - github.com/google/uuid: import run identifiers.
 * - internal/classify: classification snapshot.
 * - internal/store, pkg/ovhclient, pkg/rabbitmq.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudlens/billing-service/internal/classify"
	"github.com/cloudlens/billing-service/internal/domain"
	"github.com/cloudlens/billing-service/pkg/rabbitmq"
)

// ImportOptions controls a single ingestion pass.
type ImportOptions struct {
	// Type is one of domain.ImportTypeFull, ImportTypeDifferential or
	// ImportTypePeriod.
	Type string
	// From and To bound the bill listing for period imports (YYYY-MM-DD).
	From string
	To   string
	// IncludeConsumption also refreshes the per-project consumption
	// snapshot used for GPU flavor enrichment.
	IncludeConsumption bool
}

// RunImport executes one ingestion pass and returns its audit record.
// Individual bill failures are counted and logged but do not abort the
// run; only setup failures (project listing, bill listing, audit log)
// fail the run as a whole.
func (s *Service) RunImport(ctx context.Context, opts ImportOptions) (*domain.ImportRun, error) {
	if s.source == nil {
		return nil, fmt.Errorf("import requires a configured billing source")
	}

	importType := opts.Type
	switch importType {
	case domain.ImportTypeFull, domain.ImportTypeDifferential, domain.ImportTypePeriod:
	default:
		return nil, fmt.Errorf("unknown import type %q", opts.Type)
	}
	if importType == domain.ImportTypePeriod {
		if err := ValidateDateRange(opts.From, opts.To); err != nil {
			return nil, err
		}
	}

	run := &domain.ImportRun{
		ID:        uuid.New(),
		Type:      importType,
		Status:    domain.ImportStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if opts.From != "" {
		run.FromDate = &opts.From
	}
	if opts.To != "" {
		run.ToDate = &opts.To
	}
	if err := s.repo.CreateImportRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record import run: %w", err)
	}

	stats, err := s.runImport(ctx, run, opts)
	if err != nil {
		message := err.Error()
		if failErr := s.repo.FailImportRun(ctx, run.ID, message); failErr != nil {
			log.Printf("level=error component=importer msg=\"failed to mark import run failed\" run_id=%s error=\"%v\"", run.ID, failErr)
		}
		run.Status = domain.ImportStatusFailed
		run.ErrorMessage = &message
		return run, err
	}

	if err := s.repo.CompleteImportRun(ctx, run.ID, *stats); err != nil {
		return nil, fmt.Errorf("failed to finalize import run: %w", err)
	}
	run.Status = domain.ImportStatusSuccess
	run.BillsImported = stats.Bills
	run.DetailsImported = stats.Details
	run.ProjectsImported = stats.Projects
	run.Failures = stats.Failures

	s.publishImportCompleted(ctx, run)
	return run, nil
}

func (s *Service) runImport(ctx context.Context, run *domain.ImportRun, opts ImportOptions) (*domain.ImportStats, error) {
	log.Printf("level=info component=importer msg=\"import started\" run_id=%s type=%s", run.ID, run.Type)

	if run.Type == domain.ImportTypeFull {
		if err := s.repo.ClearAllBillingData(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear billing data: %w", err)
		}
		log.Printf("level=info component=importer msg=\"cleared stored billing data\" run_id=%s", run.ID)
	}

	stats := &domain.ImportStats{}

	projectIDs, err := s.syncProjects(ctx, stats)
	if err != nil {
		return nil, err
	}

	inventory := s.buildInventory(ctx)
	classifier := classify.NewClassifier(projectIDs, inventory)

	billIDs, err := s.listBillsToImport(ctx, run.Type, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=importer msg=\"bills to import\" run_id=%s count=%d", run.ID, len(billIDs))

	var mu sync.Mutex
	for start := 0; start < len(billIDs); start += s.importBatchSize {
		end := start + s.importBatchSize
		if end > len(billIDs) {
			end = len(billIDs)
		}

		var wg sync.WaitGroup
		for _, billID := range billIDs[start:end] {
			wg.Add(1)
			go func(billID string) {
				defer wg.Done()
				details, err := s.importBill(ctx, classifier, billID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					stats.Failures++
					log.Printf("level=warn component=importer msg=\"failed to import bill\" bill_id=%s error=\"%v\"", billID, err)
					return
				}
				stats.Bills++
				stats.Details += details
			}(billID)
		}
		wg.Wait()
	}

	if opts.IncludeConsumption {
		s.refreshConsumption(ctx, projectIDs, stats)
	}

	log.Printf("level=info component=importer msg=\"import finished\" run_id=%s bills=%d details=%d projects=%d failures=%d",
		run.ID, stats.Bills, stats.Details, stats.Projects, stats.Failures)
	return stats, nil
}

// syncProjects refreshes the stored projects from the provider and
// returns the current project id list used by the classifier.
func (s *Service) syncProjects(ctx context.Context, stats *domain.ImportStats) ([]string, error) {
	ids, err := s.source.ListProjectIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cloud projects: %w", err)
	}

	for _, id := range ids {
		project, err := s.source.GetProject(ctx, id)
		if err != nil {
			stats.Failures++
			log.Printf("level=warn component=importer msg=\"failed to fetch project\" project_id=%s error=\"%v\"", id, err)
			continue
		}
		if err := s.repo.UpsertProject(ctx, project); err != nil {
			stats.Failures++
			log.Printf("level=warn component=importer msg=\"failed to store project\" project_id=%s error=\"%v\"", id, err)
			continue
		}
		stats.Projects++
	}
	return ids, nil
}

// buildInventory snapshots the account's non-cloud resources so billing
// lines can be matched to their resource type by exact domain. Each
// listing failure is logged and skipped; classification then falls back
// to pattern inference for that family.
func (s *Service) buildInventory(ctx context.Context) map[string]domain.ResourceType {
	inventory := make(map[string]domain.ResourceType)

	collect := func(family string, resourceType domain.ResourceType, list func(context.Context) ([]string, error)) {
		names, err := list(ctx)
		if err != nil {
			log.Printf("level=warn component=importer msg=\"failed to list inventory\" family=%s error=\"%v\"", family, err)
			return
		}
		for _, name := range names {
			inventory[name] = resourceType
		}
	}

	collect("dedicated_server", domain.ResourceDedicatedServer, s.source.ListDedicatedServers)
	collect("vps", domain.ResourceVPS, s.source.ListVPS)
	collect("storage", domain.ResourceStorage, s.source.ListNetAppStorage)
	collect("ip_service", domain.ResourceIPService, s.source.ListIPBlocks)
	collect("load_balancer", domain.ResourceLoadBalancer, s.source.ListLoadBalancers)

	pccNames, err := s.source.ListPrivateClouds(ctx)
	if err != nil {
		log.Printf("level=warn component=importer msg=\"failed to list inventory\" family=private_cloud error=\"%v\"", err)
		return inventory
	}
	for _, pccName := range pccNames {
		inventory[pccName] = domain.ResourcePrivateCloud

		hosts, err := s.source.ListPrivateCloudHostNames(ctx, pccName)
		if err == nil {
			for _, host := range hosts {
				inventory[host] = domain.ResourcePrivateCloudHost
			}
		}
		datastores, err := s.source.ListPrivateCloudDatastoreNames(ctx, pccName)
		if err == nil {
			for _, datastore := range datastores {
				inventory[datastore] = domain.ResourcePrivateCloudDatastore
			}
		}
	}
	return inventory
}

// listBillsToImport resolves the provider bill ids this run should fetch.
// Differential runs list bills from the latest stored bill date onward
// and then drop ids that are already stored.
func (s *Service) listBillsToImport(ctx context.Context, importType, from, to string) ([]string, error) {
	if importType == domain.ImportTypeDifferential {
		latest, err := s.repo.LatestBillDate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest bill date: %w", err)
		}
		from, to = latest, ""
	}

	ids, err := s.source.ListBillIDs(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	if importType != domain.ImportTypeDifferential {
		return ids, nil
	}

	stored, err := s.repo.ListBillIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored bills: %w", err)
	}
	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := stored[id]; ok {
			continue
		}
		fresh = append(fresh, id)
	}
	return fresh, nil
}

// importBill fetches one bill with all of its lines, classifies them and
// persists everything in one transaction. Payment metadata is attached
// afterwards on a best-effort basis. Returns the number of stored lines.
func (s *Service) importBill(ctx context.Context, classifier *classify.Classifier, billID string) (int, error) {
	bill, err := s.source.GetBill(ctx, billID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch bill: %w", err)
	}

	detailIDs, err := s.source.ListBillDetailIDs(ctx, billID)
	if err != nil {
		return 0, fmt.Errorf("failed to list bill details: %w", err)
	}

	lines := make([]domain.BillingLine, 0, len(detailIDs))
	for _, detailID := range detailIDs {
		detail, err := s.source.GetBillDetail(ctx, billID, detailID)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch bill detail %s: %w", detailID, err)
		}

		projectID, serviceType, resourceType := classifier.Classify(detail.Domain, detail.Description)
		lines = append(lines, domain.BillingLine{
			ID:           billID + "_" + detail.ID,
			BillID:       billID,
			ProjectID:    projectID,
			Domain:       detail.Domain,
			Description:  detail.Description,
			Quantity:     detail.Quantity,
			UnitPrice:    detail.UnitPrice,
			TotalPrice:   detail.TotalPrice,
			ServiceType:  serviceType,
			ResourceType: resourceType,
		})
	}

	if err := s.repo.UpsertBillWithDetails(ctx, bill, lines); err != nil {
		return 0, fmt.Errorf("failed to store bill: %w", err)
	}

	payment, err := s.source.GetBillPayment(ctx, billID)
	if err != nil {
		log.Printf("level=warn component=importer msg=\"failed to fetch bill payment\" bill_id=%s error=\"%v\"", billID, err)
		return len(lines), nil
	}
	if err := s.repo.UpdateBillPayment(ctx, billID, payment.Type, &payment.Status, payment.Date); err != nil {
		log.Printf("level=warn component=importer msg=\"failed to store bill payment\" bill_id=%s error=\"%v\"", billID, err)
	}
	return len(lines), nil
}

// refreshConsumption replaces each project's consumption snapshot.
// Failures are logged per project and never fail the run.
func (s *Service) refreshConsumption(ctx context.Context, projectIDs []string, stats *domain.ImportStats) {
	for _, projectID := range projectIDs {
		items, err := s.source.GetProjectConsumption(ctx, projectID)
		if err != nil {
			stats.Failures++
			log.Printf("level=warn component=importer msg=\"failed to fetch consumption\" project_id=%s error=\"%v\"", projectID, err)
			continue
		}
		if err := s.repo.ReplaceProjectConsumption(ctx, projectID, items); err != nil {
			stats.Failures++
			log.Printf("level=warn component=importer msg=\"failed to store consumption\" project_id=%s error=\"%v\"", projectID, err)
		}
	}
}

func (s *Service) publishImportCompleted(ctx context.Context, run *domain.ImportRun) {
	if s.producer == nil || s.importExchange == "" {
		return
	}
	// Publishing is best-effort; the run already succeeded.
	event := rabbitmq.ImportCompletedEvent{
		RunID:     run.ID,
		Type:      run.Type,
		Status:    run.Status,
		Bills:     run.BillsImported,
		Details:   run.DetailsImported,
		Projects:  run.ProjectsImported,
		Failures:  run.Failures,
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.PublishImportCompleted(ctx, s.importExchange, event); err != nil {
		log.Printf("level=warn component=importer msg=\"failed to publish import event\" run_id=%s error=\"%v\"", run.ID, err)
	}
}
