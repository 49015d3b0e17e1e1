/**
 * @description
 * This file implements the cost-analysis operations: date-range
 * validation, the grouped aggregations (by project, service, resource
 * type), trends, the summary, and the GPU rollup. Sums come back from the
 * repository unrounded; monetary values are rounded to two decimals
 * (half away from zero) here, at the exposure boundary.
 *
 * @dependencies
 * - github.com/shopspring/decimal: exact decimal rounding.
 * - internal/domain, internal/store.
 */

package app

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudlens/billing-service/internal/domain"
)

// DateRangeError reports an invalid from/to parameter pair. It is a
// caller error, surfaced as HTTP 400 by the API layer.
type DateRangeError struct {
	Message string
}

func (e *DateRangeError) Error() string {
	return e.Message
}

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDateRange checks that both bounds are present, ISO formatted
// and correctly ordered. It runs before any aggregation query.
func ValidateDateRange(from, to string) error {
	if from == "" || to == "" {
		return &DateRangeError{Message: "from and to parameters are required"}
	}
	if !dateFormat.MatchString(from) {
		return &DateRangeError{Message: fmt.Sprintf("Invalid 'from' date format: %s. Expected YYYY-MM-DD", from)}
	}
	if !dateFormat.MatchString(to) {
		return &DateRangeError{Message: fmt.Sprintf("Invalid 'to' date format: %s. Expected YYYY-MM-DD", to)}
	}

	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return &DateRangeError{Message: fmt.Sprintf("Invalid 'from' date: %s", from)}
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return &DateRangeError{Message: fmt.Sprintf("Invalid 'to' date: %s", to)}
	}

	if fromDate.After(toDate) {
		return &DateRangeError{Message: fmt.Sprintf("'from' date (%s) must be before or equal to 'to' date (%s)", from, to)}
	}
	return nil
}

// ParseMonths interprets the trailing-months query parameter. Malformed
// or non-positive values fall back to the default of 6 rather than erroring.
func ParseMonths(raw string) int {
	months, err := strconv.Atoi(raw)
	if err != nil || months <= 0 {
		return 6
	}
	return months
}

// round2 rounds a monetary value to two decimals, half away from zero.
func round2(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return rounded
}

// serviceColors is the display palette for service categories. Categories
// without an entry use the Other color.
var serviceColors = map[domain.ServiceCategory]string{
	domain.ServiceCompute:  "#3b82f6",
	domain.ServiceStorage:  "#10b981",
	domain.ServiceNetwork:  "#f59e0b",
	domain.ServiceDatabase: "#8b5cf6",
	domain.ServiceAIML:     "#ec4899",
	domain.ServiceOther:    "#6b7280",
}

// ServiceColor resolves the display color for a service category.
func ServiceColor(category domain.ServiceCategory) string {
	if color, ok := serviceColors[category]; ok {
		return color
	}
	return serviceColors[domain.ServiceOther]
}

type resourceTypeDisplay struct {
	Label string
	Color string
}

// resourceTypeDisplays fixes the label and color per resource type.
var resourceTypeDisplays = map[domain.ResourceType]resourceTypeDisplay{
	domain.ResourceCloudProject:          {"Public Cloud Project", "#3b82f6"},
	domain.ResourceDedicatedServer:       {"Dedicated Server", "#f97316"},
	domain.ResourceVPS:                   {"VPS", "#22c55e"},
	domain.ResourceStorage:               {"Storage", "#10b981"},
	domain.ResourceLoadBalancer:          {"Load Balancer", "#f59e0b"},
	domain.ResourceDomain:                {"Domain Name", "#a855f7"},
	domain.ResourceIPService:             {"IP Service", "#06b6d4"},
	domain.ResourcePrivateCloud:          {"Private Cloud", "#6366f1"},
	domain.ResourcePrivateCloudHost:      {"Private Cloud Host", "#818cf8"},
	domain.ResourcePrivateCloudDatastore: {"Private Cloud Datastore", "#a5b4fc"},
	domain.ResourceTelecom:               {"Telecom / SMS", "#14b8a6"},
	domain.ResourceWebCloud:              {"Web Cloud", "#eab308"},
	domain.ResourceLicense:               {"License", "#8b5cf6"},
	domain.ResourceBackup:                {"Backup", "#64748b"},
	domain.ResourceSupport:               {"Support", "#f43f5e"},
	domain.ResourceTelephony:             {"Telephony", "#0ea5e9"},
	domain.ResourceOther:                 {"Other", "#6b7280"},
}

// ResourceTypeDisplay resolves the label and color for a resource type.
func ResourceTypeDisplay(resourceType domain.ResourceType) (label, color string) {
	if d, ok := resourceTypeDisplays[resourceType]; ok {
		return d.Label, d.Color
	}
	d := resourceTypeDisplays[domain.ResourceOther]
	return d.Label, d.Color
}

// ProjectCostView is one row of the by-project analysis response.
type ProjectCostView struct {
	ProjectID    string  `json:"projectId"`
	ProjectName  string  `json:"projectName"`
	Total        float64 `json:"total"`
	DetailsCount int     `json:"detailsCount"`
}

// CostsByProject groups costs by cloud project, highest total first.
func (s *Service) CostsByProject(ctx context.Context, from, to string) ([]ProjectCostView, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.CostsByProject(ctx, from, to)
	if err != nil {
		return nil, err
	}

	views := make([]ProjectCostView, 0, len(rows))
	for _, row := range rows {
		name := row.ProjectName
		if name == "" {
			name = "Unknown"
		}
		views = append(views, ProjectCostView{
			ProjectID:    row.ProjectID,
			ProjectName:  name,
			Total:        round2(row.Total),
			DetailsCount: row.DetailsCount,
		})
	}
	return views, nil
}

// ServiceCostView is one row of the by-service analysis response.
type ServiceCostView struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Color        string  `json:"color"`
	DetailsCount int     `json:"detailsCount"`
}

// CostsByService groups costs by service category, highest total first,
// with display colors attached.
func (s *Service) CostsByService(ctx context.Context, from, to string) ([]ServiceCostView, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.CostsByService(ctx, from, to)
	if err != nil {
		return nil, err
	}

	views := make([]ServiceCostView, 0, len(rows))
	for _, row := range rows {
		category := row.ServiceType
		if category == "" {
			category = domain.ServiceOther
		}
		views = append(views, ServiceCostView{
			Name:         string(category),
			Value:        round2(row.Total),
			Color:        ServiceColor(category),
			DetailsCount: row.DetailsCount,
		})
	}
	return views, nil
}

// ResourceTypeCostView is one row of the by-resource-type analysis response.
type ResourceTypeCostView struct {
	ResourceType string  `json:"resourceType"`
	Label        string  `json:"label"`
	Color        string  `json:"color"`
	Total        float64 `json:"total"`
	DetailsCount int     `json:"detailsCount"`
	ServiceCount int     `json:"serviceCount"`
}

// CostsByResourceType groups costs by resource type, highest total first.
// ServiceCount is the number of distinct domains inside the group.
func (s *Service) CostsByResourceType(ctx context.Context, from, to string) ([]ResourceTypeCostView, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.CostsByResourceType(ctx, from, to)
	if err != nil {
		return nil, err
	}

	views := make([]ResourceTypeCostView, 0, len(rows))
	for _, row := range rows {
		label, color := ResourceTypeDisplay(row.ResourceType)
		views = append(views, ResourceTypeCostView{
			ResourceType: string(row.ResourceType),
			Label:        label,
			Color:        color,
			Total:        round2(row.Total),
			DetailsCount: row.DetailsCount,
			ServiceCount: row.ServiceCount,
		})
	}
	return views, nil
}

// ResourceCostView is one row of the per-resource-type drill-down.
type ResourceCostView struct {
	Domain       string  `json:"domain"`
	Description  string  `json:"description"`
	Total        float64 `json:"total"`
	DetailsCount int     `json:"detailsCount"`
}

// CostsForResourceType drills into one resource type, one row per domain,
// labeled with the highest-value line's description. Zero-sum groups are
// excluded by the repository query.
func (s *Service) CostsForResourceType(ctx context.Context, resourceType domain.ResourceType, from, to string) ([]ResourceCostView, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.CostsForResourceType(ctx, resourceType, from, to)
	if err != nil {
		return nil, err
	}

	views := make([]ResourceCostView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ResourceCostView{
			Domain:       row.Domain,
			Description:  row.Description,
			Total:        round2(row.Total),
			DetailsCount: row.DetailsCount,
		})
	}
	return views, nil
}

// DailyCostView is one day of the daily trend response.
type DailyCostView struct {
	Date string  `json:"date"`
	Day  int     `json:"day"`
	Cost float64 `json:"cost"`
}

// DailyTrend sums costs per bill date within the range, ascending.
func (s *Service) DailyTrend(ctx context.Context, from, to string) ([]DailyCostView, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.DailyTrend(ctx, from, to)
	if err != nil {
		return nil, err
	}

	views := make([]DailyCostView, 0, len(rows))
	for _, row := range rows {
		day := 0
		if parsed, err := time.Parse("2006-01-02", row.Date); err == nil {
			day = parsed.Day()
		}
		views = append(views, DailyCostView{
			Date: row.Date,
			Day:  day,
			Cost: round2(row.Total),
		})
	}
	return views, nil
}

// MonthlyCostView is one month of the monthly trend response.
type MonthlyCostView struct {
	Month     string  `json:"month"`
	YearMonth string  `json:"yearMonth"`
	Cost      float64 `json:"cost"`
}

// MonthlyTrend sums costs per calendar month over the trailing window
// ending now. The window length is independent of any from/to range.
func (s *Service) MonthlyTrend(ctx context.Context, months int) ([]MonthlyCostView, error) {
	if months <= 0 {
		months = 6
	}
	rows, err := s.repo.MonthlyTrend(ctx, months)
	if err != nil {
		return nil, err
	}

	views := make([]MonthlyCostView, 0, len(rows))
	for _, row := range rows {
		label := row.Month
		if parsed, err := time.Parse("2006-01", row.Month); err == nil {
			label = parsed.Format("Jan")
		}
		views = append(views, MonthlyCostView{
			Month:     label,
			YearMonth: row.Month,
			Cost:      round2(row.Total),
		})
	}
	return views, nil
}

// TopProject is one of the summary's top-5 projects.
type TopProject struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Summary is the response of the summary endpoint.
type Summary struct {
	Period        Period       `json:"period"`
	Total         float64      `json:"total"`
	CloudTotal    float64      `json:"cloudTotal"`
	NonCloudTotal float64      `json:"nonCloudTotal"`
	DailyAverage  float64      `json:"dailyAverage"`
	BillsCount    int          `json:"billsCount"`
	ProjectsCount int          `json:"projectsCount"`
	TopProjects   []TopProject `json:"topProjects"`
}

// Period echoes the validated date range back to the caller.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Summarize computes the range's grand total, the cloud/non-cloud split,
// distinct bill and project counts, the daily average over the inclusive
// day span, and the top five projects by total.
func (s *Service) Summarize(ctx context.Context, from, to string) (*Summary, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	totals, err := s.repo.CostTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byProject, err := s.repo.CostsByProject(ctx, from, to)
	if err != nil {
		return nil, err
	}

	fromDate, _ := time.Parse("2006-01-02", from)
	toDate, _ := time.Parse("2006-01-02", to)
	days := int(toDate.Sub(fromDate).Hours()/24) + 1

	topProjects := make([]TopProject, 0, 5)
	for i, p := range byProject {
		if i == 5 {
			break
		}
		name := p.ProjectName
		if name == "" {
			name = "Unknown"
		}
		topProjects = append(topProjects, TopProject{Name: name, Value: round2(p.Total)})
	}

	return &Summary{
		Period:        Period{From: from, To: to},
		Total:         round2(totals.GrandTotal),
		CloudTotal:    round2(totals.CloudTotal),
		NonCloudTotal: round2(totals.NonCloudTotal),
		DailyAverage:  round2(totals.GrandTotal / float64(days)),
		BillsCount:    totals.BillsCount,
		ProjectsCount: totals.ProjectsCount,
		TopProjects:   topProjects,
	}, nil
}

// ProjectCostPoint is one (date, service_type) bucket of one project's costs.
type ProjectCostPoint struct {
	Date        string  `json:"date"`
	ServiceType string  `json:"service_type"`
	Total       float64 `json:"total"`
}

// ProjectCosts returns one project's costs bucketed by day and service category.
func (s *Service) ProjectCosts(ctx context.Context, projectID, from, to string) ([]ProjectCostPoint, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.ProjectDailyCosts(ctx, projectID, from, to)
	if err != nil {
		return nil, err
	}

	points := make([]ProjectCostPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, ProjectCostPoint{
			Date:        row.Date,
			ServiceType: string(row.ServiceType),
			Total:       round2(row.Total),
		})
	}
	return points, nil
}

// MonthOption is one entry of the month-selector endpoint.
type MonthOption struct {
	Value string `json:"value"` // YYYY-MM
	Label string `json:"label"` // e.g. "January 2025"
	From  string `json:"from"`  // first day of the month
	To    string `json:"to"`    // last day of the month
}

// ListMonths returns the months that have stored bills, newest first,
// with ready-to-use from/to bounds for each.
func (s *Service) ListMonths(ctx context.Context) ([]MonthOption, error) {
	months, err := s.repo.ListBillMonths(ctx)
	if err != nil {
		return nil, err
	}

	options := make([]MonthOption, 0, len(months))
	for _, month := range months {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			continue
		}
		lastDay := parsed.AddDate(0, 1, -1)
		options = append(options, MonthOption{
			Value: month,
			Label: parsed.Format("January 2006"),
			From:  parsed.Format("2006-01-02"),
			To:    lastDay.Format("2006-01-02"),
		})
	}
	return options, nil
}

// gpuInstancePattern re-derives GPU membership from line descriptions.
// Deliberately independent of the AI/ML service category, which also
// covers non-GPU AI products; the two groupings answer different
// questions and must not be unified.
var gpuInstancePattern = regexp.MustCompile(`(?i)instances?\s+(l40s|l4|a100|h100|v100|t1|t2)-`)

// gpuModelNames maps the lowercase matched token to its display form.
var gpuModelNames = map[string]string{
	"l4":   "L4",
	"l40s": "L40S",
	"a100": "A100",
	"h100": "H100",
	"v100": "V100",
	"t1":   "T1",
	"t2":   "T2",
}

// GPUModel extracts the display model name from a line description, or
// "" when the description does not match the GPU instance patterns.
func GPUModel(description string) string {
	match := gpuInstancePattern.FindStringSubmatch(description)
	if match == nil {
		return ""
	}
	return gpuModelNames[strings.ToLower(match[1])]
}

// GPUModelCost is one GPU model's share of the rollup.
type GPUModelCost struct {
	Model        string  `json:"model"`
	Total        float64 `json:"total"`
	DetailsCount int     `json:"detailsCount"`
}

// GPUProjectCost is one project's (or raw domain's) share of the rollup.
type GPUProjectCost struct {
	Name    string   `json:"name"`
	Total   float64  `json:"total"`
	Flavors []string `json:"flavors,omitempty"`
}

// GPUReport is the response of the GPU rollup endpoint.
type GPUReport struct {
	Total        float64           `json:"total"`
	ServiceCount int               `json:"serviceCount"`
	ByModel      []GPUModelCost    `json:"byModel"`
	ByProject    []GPUProjectCost  `json:"byProject"`
	MonthlyTrend []MonthlyCostView `json:"monthlyTrend"`
}

// GPUCosts builds the GPU rollup for the range: grand total, distinct
// domain count, per-model and per-project breakdowns, and a monthly
// trend. Project flavors are enriched from the consumption snapshot when
// available; their absence never fails the report.
func (s *Service) GPUCosts(ctx context.Context, from, to string) (*GPUReport, error) {
	if err := ValidateDateRange(from, to); err != nil {
		return nil, err
	}
	lines, err := s.repo.GPULines(ctx, from, to)
	if err != nil {
		return nil, err
	}

	projectNames, err := s.repo.ProjectNamesByID(ctx)
	if err != nil {
		return nil, err
	}
	flavors, err := s.repo.GPUFlavorsByProject(ctx)
	if err != nil {
		flavors = nil
	}

	var total float64
	domains := make(map[string]struct{})
	modelTotals := make(map[string]*GPUModelCost)
	projectTotals := make(map[string]*GPUProjectCost)
	monthTotals := make(map[string]float64)

	for _, line := range lines {
		model := GPUModel(line.Description)
		if model == "" {
			continue
		}

		total += line.TotalPrice
		domains[line.Domain] = struct{}{}

		mc := modelTotals[model]
		if mc == nil {
			mc = &GPUModelCost{Model: model}
			modelTotals[model] = mc
		}
		mc.Total += line.TotalPrice
		mc.DetailsCount++

		name := line.Domain
		if resolved, ok := projectNames[line.Domain]; ok && resolved != "" {
			name = resolved
		}
		pc := projectTotals[line.Domain]
		if pc == nil {
			pc = &GPUProjectCost{Name: name, Flavors: flavors[line.Domain]}
			projectTotals[line.Domain] = pc
		}
		pc.Total += line.TotalPrice

		monthTotals[line.Date.Format("2006-01")] += line.TotalPrice
	}

	byModel := make([]GPUModelCost, 0, len(modelTotals))
	for _, mc := range modelTotals {
		byModel = append(byModel, GPUModelCost{Model: mc.Model, Total: round2(mc.Total), DetailsCount: mc.DetailsCount})
	}
	sort.Slice(byModel, func(i, j int) bool { return byModel[i].Total > byModel[j].Total })

	byProject := make([]GPUProjectCost, 0, len(projectTotals))
	for _, pc := range projectTotals {
		byProject = append(byProject, GPUProjectCost{Name: pc.Name, Total: round2(pc.Total), Flavors: pc.Flavors})
	}
	sort.Slice(byProject, func(i, j int) bool { return byProject[i].Total > byProject[j].Total })

	months := make([]string, 0, len(monthTotals))
	for month := range monthTotals {
		months = append(months, month)
	}
	sort.Strings(months)
	trend := make([]MonthlyCostView, 0, len(months))
	for _, month := range months {
		label := month
		if parsed, err := time.Parse("2006-01", month); err == nil {
			label = parsed.Format("Jan")
		}
		trend = append(trend, MonthlyCostView{Month: label, YearMonth: month, Cost: round2(monthTotals[month])})
	}

	return &GPUReport{
		Total:        round2(total),
		ServiceCount: len(domains),
		ByModel:      byModel,
		ByProject:    byProject,
		MonthlyTrend: trend,
	}, nil
}
