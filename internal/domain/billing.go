/**
 * @description
 * This file defines the core domain models for the billing-service.
 * These structs represent the main entities used throughout the service's
 * classification logic, database interactions, and API layers.
 *
 * @notes
 * - ServiceCategory and ResourceType are closed enums; classification is
 *   total and always resolves to a member of the enum (Other / other as
 *   the fallback values), never to an error.
 * - Monetary amounts are stored as float64 and rounded to two decimals
 *   only at the API boundary.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceCategory is the coarse classification of a billing line's purpose,
// derived from its free-text description.
type ServiceCategory string

const (
	ServiceAIML     ServiceCategory = "AI/ML"
	ServiceLicenses ServiceCategory = "Licenses"
	ServiceBackup   ServiceCategory = "Backup"
	ServiceSupport  ServiceCategory = "Support"
	ServiceDatabase ServiceCategory = "Database"
	ServiceStorage  ServiceCategory = "Storage"
	ServiceCompute  ServiceCategory = "Compute"
	ServiceNetwork  ServiceCategory = "Network"
	ServiceOther    ServiceCategory = "Other"
)

// ResourceType classifies what kind of provisioned resource a billing
// line's domain identifier refers to.
type ResourceType string

const (
	ResourceCloudProject          ResourceType = "cloud_project"
	ResourceDedicatedServer       ResourceType = "dedicated_server"
	ResourceVPS                   ResourceType = "vps"
	ResourceStorage               ResourceType = "storage"
	ResourceLoadBalancer          ResourceType = "load_balancer"
	ResourceDomain                ResourceType = "domain"
	ResourceIPService             ResourceType = "ip_service"
	ResourcePrivateCloud          ResourceType = "private_cloud"
	ResourcePrivateCloudHost      ResourceType = "private_cloud_host"
	ResourcePrivateCloudDatastore ResourceType = "private_cloud_datastore"
	ResourceTelecom               ResourceType = "telecom"
	ResourceWebCloud              ResourceType = "web_cloud"
	ResourceLicense               ResourceType = "license"
	ResourceBackup                ResourceType = "backup"
	ResourceSupport               ResourceType = "support"
	ResourceTelephony             ResourceType = "telephony"
	ResourceOther                 ResourceType = "other"
)

// Project is a public-cloud project known to the account. A billing line's
// project_id is set iff its domain exactly matches a Project id.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Bill is one invoice from the billing provider.
type Bill struct {
	ID              string     `json:"id"`
	Date            time.Time  `json:"date"`
	PriceWithoutTax float64    `json:"price_without_tax"`
	PriceWithTax    float64    `json:"price_with_tax"`
	Tax             float64    `json:"tax"`
	Currency        string     `json:"currency"`
	PDFURL          string     `json:"pdf_url,omitempty"`
	HTMLURL         string     `json:"html_url,omitempty"`
	PaymentType     *string    `json:"payment_type,omitempty"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	PaymentStatus   *string    `json:"payment_status,omitempty"` // 'paid' or 'pending'
	ImportedAt      time.Time  `json:"imported_at"`
}

// BillingLine is one charged item on one invoice (a "bill detail").
// service_type and resource_type are always populated after classification.
type BillingLine struct {
	ID           string          `json:"id"` // "<bill_id>_<detail_id>"
	BillID       string          `json:"bill_id"`
	ProjectID    *string         `json:"project_id,omitempty"`
	Domain       string          `json:"domain"`
	Description  string          `json:"description"`
	Quantity     float64         `json:"quantity"`
	UnitPrice    float64         `json:"unit_price"`
	TotalPrice   float64         `json:"total_price"`
	ServiceType  ServiceCategory `json:"service_type"`
	ResourceType ResourceType    `json:"resource_type"`
}

// ConsumptionItem is one current-usage row for a cloud project, taken from
// the provider's consumption feed. Used to enrich GPU reporting with
// instance flavors; not part of billed totals.
type ConsumptionItem struct {
	ProjectID    string  `json:"project_id"`
	ResourceType string  `json:"resource_type"` // instance, volume, snapshot, object_storage (+ _monthly)
	ResourceName string  `json:"resource_name"`
	Region       string  `json:"region"`
	PlanCode     string  `json:"plan_code"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
}

// Import run types.
const (
	ImportTypeFull         = "full"
	ImportTypeDifferential = "differential"
	ImportTypePeriod       = "period"
)

// Import run statuses.
const (
	ImportStatusRunning = "running"
	ImportStatusSuccess = "success"
	ImportStatusFailed  = "failed"
)

// ImportRun is the audit record of one ingestion pass. Created as 'running'
// when the pass starts and finalized exactly once.
type ImportRun struct {
	ID               uuid.UUID  `json:"id"`
	Type             string     `json:"type"`
	FromDate         *string    `json:"from_date,omitempty"`
	ToDate           *string    `json:"to_date,omitempty"`
	Status           string     `json:"status"`
	BillsImported    int        `json:"bills_imported"`
	DetailsImported  int        `json:"details_imported"`
	ProjectsImported int        `json:"projects_imported"`
	Failures         int        `json:"failures"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ImportStats carries the counters recorded on a successful import run.
type ImportStats struct {
	Bills    int
	Details  int
	Projects int
	Failures int
}

// ProjectCost is one row of the by-project aggregation.
type ProjectCost struct {
	ProjectID    string
	ProjectName  string
	Total        float64
	DetailsCount int
}

// ServiceCost is one row of the by-service aggregation.
type ServiceCost struct {
	ServiceType  ServiceCategory
	Total        float64
	DetailsCount int
}

// ResourceTypeCost is one row of the by-resource-type aggregation.
// ServiceCount is the number of distinct domains within the group.
type ResourceTypeCost struct {
	ResourceType ResourceType
	Total        float64
	DetailsCount int
	ServiceCount int
}

// ResourceCost is one row of the per-resource-type drill-down: one domain
// with its representative description (the highest-value line's).
type ResourceCost struct {
	Domain       string
	Description  string
	Total        float64
	DetailsCount int
}

// DailyCost is one day's total within a date range.
type DailyCost struct {
	Date  string // YYYY-MM-DD
	Total float64
}

// MonthlyCost is one calendar month's total.
type MonthlyCost struct {
	Month string // YYYY-MM
	Total float64
}

// ProjectDailyCost is one (date, service_type) bucket of a single
// project's costs.
type ProjectDailyCost struct {
	Date        string
	ServiceType ServiceCategory
	Total       float64
}

// CostTotals holds the raw sums and counters behind the summary endpoint.
type CostTotals struct {
	CloudTotal    float64
	NonCloudTotal float64
	GrandTotal    float64
	BillsCount    int
	ProjectsCount int
}

// GPULine is one billing line that matched the GPU instance naming
// patterns, with its parent bill's date for trend bucketing.
type GPULine struct {
	Domain      string
	Description string
	TotalPrice  float64
	Date        time.Time
}
