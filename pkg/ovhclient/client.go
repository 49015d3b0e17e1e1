/**
 * @description
 * This package provides a client for the OVH billing and cloud APIs. It
 * encapsulates the request-signing scheme (application key, consumer key
 * and a SHA-1 request signature), per-request timeouts, and the typed
 * fetch operations the import pipeline needs: projects, bills, bill
 * details, payments, inventory listings and consumption usage.
 *
 * @dependencies
 * - crypto/sha1, encoding/json, net/http, time: Standard Go libraries.
 * - internal/domain: domain models returned to the import pipeline.
 */
package ovhclient

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudlens/billing-service/internal/domain"
)

// Client is a client for the OVH API.
type Client struct {
	Endpoint    string
	AppKey      string
	AppSecret   string
	ConsumerKey string
	HTTPClient  *http.Client
}

// NewClient creates a new OVH API client.
func NewClient(endpoint, appKey, appSecret, consumerKey string) *Client {
	return &Client{
		Endpoint:    strings.TrimRight(endpoint, "/"),
		AppKey:      appKey,
		AppSecret:   appSecret,
		ConsumerKey: consumerKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ErrorResponse represents an error returned by the OVH API.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Class      string `json:"class"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ovh api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ovh api error (status %d)", e.StatusCode)
}

// sign computes the X-Ovh-Signature header for one request:
// "$1$" + SHA1(appSecret+consumerKey+method+url+body+timestamp).
func (c *Client) sign(method, fullURL, body string, timestamp int64) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s+%s+%s+%s+%s+%d", c.AppSecret, c.ConsumerKey, method, fullURL, body, timestamp)
	return "$1$" + hex.EncodeToString(h.Sum(nil))
}

// get performs a signed GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	fullURL := c.Endpoint + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}

	timestamp := time.Now().Unix()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Ovh-Application", c.AppKey)
	req.Header.Set("X-Ovh-Consumer", c.ConsumerKey)
	req.Header.Set("X-Ovh-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Ovh-Signature", c.sign(http.MethodGet, fullURL, "", timestamp))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request for %s: %w", path, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response for %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := &ErrorResponse{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, errResp); err != nil {
			log.Printf("level=warn component=ovh_client path=%s status=%d msg=\"non-2xx response (unparsable error body)\"", path, resp.StatusCode)
		}
		return errResp
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// monetary is OVH's nested money representation: {"value": 12.34, ...}.
type monetary struct {
	Value float64 `json:"value"`
}

// ListProjectIDs returns the ids of all cloud projects on the account.
func (c *Client) ListProjectIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/cloud/project", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type projectResponse struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"projectName"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// GetProject fetches one cloud project's metadata.
func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var resp projectResponse
	if err := c.get(ctx, "/cloud/project/"+url.PathEscape(projectID), nil, &resp); err != nil {
		return nil, err
	}
	name := resp.ProjectName
	if name == "" {
		name = resp.Description
	}
	return &domain.Project{
		ID:          resp.ProjectID,
		Name:        name,
		Description: resp.Description,
		Status:      resp.Status,
	}, nil
}

// ListBillIDs returns bill ids for a date window. Empty bounds are omitted.
func (c *Client) ListBillIDs(ctx context.Context, from, to string) ([]string, error) {
	query := url.Values{}
	if from != "" {
		query.Set("date.from", from)
	}
	if to != "" {
		query.Set("date.to", to)
	}
	var ids []string
	if err := c.get(ctx, "/me/bill", query, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type billResponse struct {
	BillID          string   `json:"billId"`
	Date            string   `json:"date"`
	PriceWithoutTax monetary `json:"priceWithoutTax"`
	PriceWithTax    monetary `json:"priceWithTax"`
	Tax             monetary `json:"tax"`
	Currency        string   `json:"currency"`
	PDFURL          string   `json:"pdfUrl"`
	URL             string   `json:"url"`
}

// GetBill fetches one bill's metadata.
func (c *Client) GetBill(ctx context.Context, billID string) (*domain.Bill, error) {
	var resp billResponse
	if err := c.get(ctx, "/me/bill/"+url.PathEscape(billID), nil, &resp); err != nil {
		return nil, err
	}

	date, err := parseBillDate(resp.Date)
	if err != nil {
		return nil, fmt.Errorf("bill %s has unparsable date %q: %w", billID, resp.Date, err)
	}

	currency := resp.Currency
	if currency == "" {
		currency = "EUR"
	}
	return &domain.Bill{
		ID:              resp.BillID,
		Date:            date,
		PriceWithoutTax: resp.PriceWithoutTax.Value,
		PriceWithTax:    resp.PriceWithTax.Value,
		Tax:             resp.Tax.Value,
		Currency:        currency,
		PDFURL:          resp.PDFURL,
		HTMLURL:         resp.URL,
	}, nil
}

func parseBillDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}

// ListBillDetailIDs returns the line-item ids of one bill.
func (c *Client) ListBillDetailIDs(ctx context.Context, billID string) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/me/bill/"+url.PathEscape(billID)+"/details", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// BillDetail is one raw, unclassified line item from the billing API.
type BillDetail struct {
	ID          string
	Domain      string
	Description string
	Quantity    float64
	UnitPrice   float64
	TotalPrice  float64
}

type billDetailResponse struct {
	BillDetailID string          `json:"billDetailId"`
	Domain       string          `json:"domain"`
	Description  string          `json:"description"`
	Quantity     json.RawMessage `json:"quantity"`
	UnitPrice    monetary        `json:"unitPrice"`
	TotalPrice   monetary        `json:"totalPrice"`
}

// GetBillDetail fetches one line item of one bill.
func (c *Client) GetBillDetail(ctx context.Context, billID, detailID string) (*BillDetail, error) {
	var resp billDetailResponse
	path := "/me/bill/" + url.PathEscape(billID) + "/details/" + url.PathEscape(detailID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &BillDetail{
		ID:          resp.BillDetailID,
		Domain:      resp.Domain,
		Description: resp.Description,
		Quantity:    parseQuantity(resp.Quantity),
		UnitPrice:   resp.UnitPrice.Value,
		TotalPrice:  resp.TotalPrice.Value,
	}, nil
}

// parseQuantity tolerates the API returning quantity as a number or as a
// string like "720 Hour".
func parseQuantity(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0
	}
	fields := strings.Fields(asString)
	if len(fields) == 0 {
		return 0
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return value
}

// BillPayment carries payment metadata for one bill. Status is derived:
// 'paid' when a payment type is present, 'pending' otherwise.
type BillPayment struct {
	Type   *string
	Date   *string
	Status string
}

type billPaymentResponse struct {
	PaymentType *string `json:"paymentType"`
	PaymentDate *string `json:"paymentDate"`
}

// GetBillPayment fetches payment metadata for one bill.
func (c *Client) GetBillPayment(ctx context.Context, billID string) (*BillPayment, error) {
	var resp billPaymentResponse
	if err := c.get(ctx, "/me/bill/"+url.PathEscape(billID)+"/payment", nil, &resp); err != nil {
		return nil, err
	}
	payment := &BillPayment{Type: resp.PaymentType, Date: resp.PaymentDate, Status: "pending"}
	if resp.PaymentType != nil && *resp.PaymentType != "" {
		payment.Status = "paid"
	}
	return payment, nil
}

// ListDedicatedServers returns the account's dedicated server names.
func (c *Client) ListDedicatedServers(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/dedicated/server", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ListVPS returns the account's VPS names.
func (c *Client) ListVPS(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/vps", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ListNetAppStorage returns the account's NetApp storage service ids.
func (c *Client) ListNetAppStorage(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/storage/netapp", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListIPBlocks returns the account's IP service identifiers.
func (c *Client) ListIPBlocks(ctx context.Context) ([]string, error) {
	var ips []string
	if err := c.get(ctx, "/ip", nil, &ips); err != nil {
		return nil, err
	}
	return ips, nil
}

// ListLoadBalancers returns the account's load balancer service names.
func (c *Client) ListLoadBalancers(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/ipLoadbalancing", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ListPrivateClouds returns the account's private cloud service names.
func (c *Client) ListPrivateClouds(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/dedicatedCloud", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

type privateCloudHostResponse struct {
	Name string `json:"name"`
}

// ListPrivateCloudHostNames resolves the host names of one private cloud.
func (c *Client) ListPrivateCloudHostNames(ctx context.Context, pccName string) ([]string, error) {
	base := "/dedicatedCloud/" + url.PathEscape(pccName) + "/dedicatedHost"
	var hostIDs []int64
	if err := c.get(ctx, base, nil, &hostIDs); err != nil {
		return nil, err
	}

	var names []string
	for _, hostID := range hostIDs {
		var host privateCloudHostResponse
		if err := c.get(ctx, fmt.Sprintf("%s/%d", base, hostID), nil, &host); err != nil {
			log.Printf("level=warn component=ovh_client msg=\"private cloud host fetch failed\" pcc=%s host_id=%d err=%v", pccName, hostID, err)
			continue
		}
		if host.Name != "" {
			names = append(names, host.Name)
		}
	}
	return names, nil
}

type privateCloudDatastoreResponse struct {
	Name string `json:"name"`
}

// ListPrivateCloudDatastoreNames resolves the datastore names of one private cloud.
func (c *Client) ListPrivateCloudDatastoreNames(ctx context.Context, pccName string) ([]string, error) {
	base := "/dedicatedCloud/" + url.PathEscape(pccName) + "/datastore"
	var datastoreIDs []int64
	if err := c.get(ctx, base, nil, &datastoreIDs); err != nil {
		return nil, err
	}

	var names []string
	for _, datastoreID := range datastoreIDs {
		var ds privateCloudDatastoreResponse
		if err := c.get(ctx, fmt.Sprintf("%s/%d", base, datastoreID), nil, &ds); err != nil {
			log.Printf("level=warn component=ovh_client msg=\"private cloud datastore fetch failed\" pcc=%s datastore_id=%d err=%v", pccName, datastoreID, err)
			continue
		}
		if ds.Name != "" {
			names = append(names, ds.Name)
		}
	}
	return names, nil
}

type usageDetail struct {
	Quantity struct {
		Value float64 `json:"value"`
	} `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
}

type usageItem struct {
	Reference string        `json:"reference"`
	Region    string        `json:"region"`
	Details   []usageDetail `json:"details"`
}

type usageResponse struct {
	HourlyUsage  map[string][]usageItem `json:"hourlyUsage"`
	MonthlyUsage map[string][]usageItem `json:"monthlyUsage"`
}

// planCodeSuffix strips the billing-mode suffix from a plan code, e.g.
// "l4-90.consumption" -> "l4-90".
var planCodeSuffix = regexp.MustCompile(`\.(consumption|monthly\.postpaid)$`)

var hourlyUsageTypes = []string{"instance", "volume", "snapshot", "objectStorage"}
var monthlyUsageTypes = []string{"instance", "volume", "certification"}

// GetProjectConsumption fetches one project's current usage and flattens
// it into consumption items. Monthly usage rows get a '_monthly' suffix on
// their resource type.
func (c *Client) GetProjectConsumption(ctx context.Context, projectID string) ([]domain.ConsumptionItem, error) {
	var resp usageResponse
	path := "/cloud/project/" + url.PathEscape(projectID) + "/usage/current"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	var items []domain.ConsumptionItem
	appendUsage := func(usage map[string][]usageItem, types []string, suffix string) {
		for _, resourceType := range types {
			for _, item := range usage[resourceType] {
				planCode := planCodeSuffix.ReplaceAllString(item.Reference, "")
				for _, detail := range item.Details {
					items = append(items, domain.ConsumptionItem{
						ProjectID:    projectID,
						ResourceType: resourceType + suffix,
						ResourceName: item.Reference,
						Region:       item.Region,
						PlanCode:     planCode,
						Quantity:     detail.Quantity.Value,
						Price:        detail.TotalPrice,
					})
				}
			}
		}
	}
	appendUsage(resp.HourlyUsage, hourlyUsageTypes, "")
	appendUsage(resp.MonthlyUsage, monthlyUsageTypes, "_monthly")

	return items, nil
}
