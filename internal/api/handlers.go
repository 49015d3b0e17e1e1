/**
 * @description
 * This file contains the HTTP handlers for the billing-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudlens/billing-service/internal/app"
	"github.com/cloudlens/billing-service/internal/domain"
	"github.com/cloudlens/billing-service/internal/store"
)

// BillingHandlers holds the application service that handlers will use.
type BillingHandlers struct {
	service  *app.Service
	budget   float64
	currency string
}

// NewBillingHandlers creates a new instance of BillingHandlers.
func NewBillingHandlers(service *app.Service, budget float64, currency string) *BillingHandlers {
	return &BillingHandlers{service: service, budget: budget, currency: currency}
}

// ConfigHandler exposes the dashboard display settings.
func (h *BillingHandlers) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"budget":   h.budget,
		"currency": h.currency,
	})
}

// ListProjectsHandler returns all known cloud projects.
func (h *BillingHandlers) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		h.writeInternalError(w, "failed to list projects", err)
		return
	}
	h.writeJSON(w, http.StatusOK, projects)
}

// GetProjectHandler returns one project by id.
func (h *BillingHandlers) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			h.writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.writeInternalError(w, "failed to fetch project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// ProjectCostsHandler returns one project's costs bucketed by day and service.
func (h *BillingHandlers) ProjectCostsHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	points, err := h.service.ProjectCosts(r.Context(), chi.URLParam(r, "projectID"), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute project costs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

// ListBillsHandler returns stored bills, optionally bounded by from/to.
func (h *BillingHandlers) ListBillsHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	bills, err := h.service.ListBills(r.Context(), from, to)
	if err != nil {
		h.writeInternalError(w, "failed to list bills", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bills)
}

// GetBillHandler returns one stored bill.
func (h *BillingHandlers) GetBillHandler(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.GetBill(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		if errors.Is(err, store.ErrBillNotFound) {
			h.writeError(w, http.StatusNotFound, "Bill not found")
			return
		}
		h.writeInternalError(w, "failed to fetch bill", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bill)
}

// ListBillDetailsHandler returns the classified lines of one stored bill.
func (h *BillingHandlers) ListBillDetailsHandler(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListBillDetails(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		h.writeInternalError(w, "failed to list bill details", err)
		return
	}
	h.writeJSON(w, http.StatusOK, details)
}

// CostsByProjectHandler returns costs grouped by cloud project.
func (h *BillingHandlers) CostsByProjectHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	views, err := h.service.CostsByProject(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute costs by project", err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// CostsByServiceHandler returns costs grouped by service category.
func (h *BillingHandlers) CostsByServiceHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	views, err := h.service.CostsByService(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute costs by service", err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// CostsByResourceTypeHandler returns costs grouped by resource type.
func (h *BillingHandlers) CostsByResourceTypeHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	views, err := h.service.CostsByResourceType(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute costs by resource type", err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// ResourceTypeCostsHandler drills into the resources of one resource type.
func (h *BillingHandlers) ResourceTypeCostsHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	resourceType := domain.ResourceType(chi.URLParam(r, "resourceType"))
	views, err := h.service.CostsForResourceType(r.Context(), resourceType, from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute resource type costs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// DailyTrendHandler returns per-day cost totals over the range.
func (h *BillingHandlers) DailyTrendHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	views, err := h.service.DailyTrend(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute daily trend", err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// MonthlyTrendHandler returns per-month cost totals for a trailing window.
func (h *BillingHandlers) MonthlyTrendHandler(w http.ResponseWriter, r *http.Request) {
	months := app.ParseMonths(r.URL.Query().Get("months"))
	views, err := h.service.MonthlyTrend(r.Context(), months)
	if err != nil {
		h.writeInternalError(w, "failed to compute monthly trend", err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// GPUCostsHandler returns the GPU instance cost rollup.
func (h *BillingHandlers) GPUCostsHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	report, err := h.service.GPUCosts(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute gpu costs", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// SummaryHandler returns the range's aggregate summary.
func (h *BillingHandlers) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	summary, err := h.service.Summarize(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "failed to compute summary", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// ListMonthsHandler returns the months that have stored bills.
func (h *BillingHandlers) ListMonthsHandler(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.ListMonths(r.Context())
	if err != nil {
		h.writeInternalError(w, "failed to list months", err)
		return
	}
	h.writeJSON(w, http.StatusOK, options)
}

// ImportStatusHandler reports the latest import run and recent history.
func (h *BillingHandlers) ImportStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetImportStatus(r.Context())
	if err != nil {
		h.writeInternalError(w, "failed to fetch import status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

type triggerImportRequest struct {
	Type               string `json:"type"`
	From               string `json:"from"`
	To                 string `json:"to"`
	IncludeConsumption bool   `json:"include_consumption"`
}

// TriggerImportHandler starts an import run in the background. The run's
// progress is observable through the import status endpoint.
func (h *BillingHandlers) TriggerImportHandler(w http.ResponseWriter, r *http.Request) {
	var req triggerImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = domain.ImportTypeDifferential
	}

	opts := app.ImportOptions{
		Type:               req.Type,
		From:               req.From,
		To:                 req.To,
		IncludeConsumption: req.IncludeConsumption,
	}
	switch req.Type {
	case domain.ImportTypeFull, domain.ImportTypeDifferential:
	case domain.ImportTypePeriod:
		if err := app.ValidateDateRange(req.From, req.To); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		h.writeError(w, http.StatusBadRequest, "Unknown import type: "+req.Type)
		return
	}

	go func() {
		if _, err := h.service.RunImport(context.Background(), opts); err != nil {
			log.Printf("level=error component=api msg=\"triggered import failed\" error=\"%v\"", err)
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "type": req.Type})
}

// writeServiceError maps validation failures to 400 and everything else to 500.
func (h *BillingHandlers) writeServiceError(w http.ResponseWriter, logMessage string, err error) {
	var rangeErr *app.DateRangeError
	if errors.As(err, &rangeErr) {
		h.writeError(w, http.StatusBadRequest, rangeErr.Message)
		return
	}
	h.writeInternalError(w, logMessage, err)
}

func (h *BillingHandlers) writeInternalError(w http.ResponseWriter, logMessage string, err error) {
	log.Printf("level=error component=api msg=%q error=\"%v\"", logMessage, err)
	h.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeJSON is a helper for writing JSON responses.
func (h *BillingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *BillingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
