package ovhclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSign(t *testing.T) {
	client := NewClient("https://eu.api.ovh.com/1.0", "app", "secret", "consumer")

	got := client.sign(http.MethodGet, "https://eu.api.ovh.com/1.0/me/bill", "", 1366560945)
	want := "$1$be90a82fa4a17c550db072db1cb41f8b5b4186fb"
	if got != want {
		t.Errorf("empty-body signature = %s, want %s", got, want)
	}

	got = client.sign(http.MethodGet, "https://eu.api.ovh.com/1.0/me/bill", "{}", 1366560945)
	want = "$1$2968f469a076dbb78b757139d0b8c9814cb7e875"
	if got != want {
		t.Errorf("body signature = %s, want %s", got, want)
	}
}

func TestGetSendsAuthHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Ovh-Application") != "app" {
			t.Errorf("missing application header, got %q", r.Header.Get("X-Ovh-Application"))
		}
		if r.Header.Get("X-Ovh-Consumer") != "consumer" {
			t.Errorf("missing consumer header, got %q", r.Header.Get("X-Ovh-Consumer"))
		}
		if r.Header.Get("X-Ovh-Timestamp") == "" {
			t.Error("missing timestamp header")
		}
		if sig := r.Header.Get("X-Ovh-Signature"); len(sig) != 43 || sig[:3] != "$1$" {
			t.Errorf("malformed signature header %q", sig)
		}
		json.NewEncoder(w).Encode([]string{"FR100", "FR101"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "consumer")
	ids, err := client.ListBillIDs(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "FR100" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestGetSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "This credential is not valid"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "consumer")
	_, err := client.ListBillIDs(context.Background(), "", "")
	apiErr, ok := err.(*ErrorResponse)
	if !ok {
		t.Fatalf("expected *ErrorResponse, got %T", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "This credential is not valid" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: `720`, want: 720},
		{raw: `1.5`, want: 1.5},
		{raw: `"720 Hour"`, want: 720},
		{raw: `"3"`, want: 3},
		{raw: `"Hour"`, want: 0},
		{raw: `null`, want: 0},
		{raw: ``, want: 0},
	}
	for _, tc := range tests {
		if got := parseQuantity(json.RawMessage(tc.raw)); got != tc.want {
			t.Errorf("parseQuantity(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseBillDate(t *testing.T) {
	for _, raw := range []string{"2025-01-15T00:00:00+01:00", "2025-01-15"} {
		parsed, err := parseBillDate(raw)
		if err != nil {
			t.Fatalf("parseBillDate(%q) returned error: %v", raw, err)
		}
		if parsed.Year() != 2025 || parsed.Month() != 1 || parsed.Day() != 15 {
			t.Errorf("parseBillDate(%q) = %v", raw, parsed)
		}
	}
	if _, err := parseBillDate("01/15/2025"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestGetBillPaymentStatus(t *testing.T) {
	payment := map[string]interface{}{"paymentType": "creditCard", "paymentDate": "2025-01-20"}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payment)
	}))
	defer server.Close()

	client := NewClient(server.URL, "app", "secret", "consumer")
	got, err := client.GetBillPayment(context.Background(), "FR1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "paid" || got.Type == nil || *got.Type != "creditCard" {
		t.Errorf("unexpected payment: %+v", got)
	}

	payment = map[string]interface{}{"paymentType": nil}
	got, err = client.GetBillPayment(context.Background(), "FR1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "pending" {
		t.Errorf("expected pending status without payment type, got %s", got.Status)
	}
}
