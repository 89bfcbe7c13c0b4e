package airtable

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lysyi3m/crowd-list/app/database"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "key-test",
		BaseID:  "appCrowd",
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{BaseID: "appCrowd"}); err == nil {
		t.Error("Expected error without API key")
	}
	if _, err := NewClient(Config{APIKey: "key-test"}); err == nil {
		t.Error("Expected error without base ID")
	}
}

func TestClientExists(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		deadline string
		formula  string
		response string
		expected bool
	}{
		{
			name:     "match",
			deadline: "2024-12-31",
			formula:  `AND({Company CIK} = "0001234567", {Converted Deadline Date} = "12-31-2024")`,
			response: `{"records":[{"id":"rec1","fields":{"Company CIK":"0001234567"}}]}`,
			expected: true,
		},
		{
			name:     "no match",
			deadline: "2024-12-31",
			formula:  `AND({Company CIK} = "0001234567", {Converted Deadline Date} = "12-31-2024")`,
			response: `{"records":[]}`,
			expected: false,
		},
		{
			name:     "custom layout",
			layout:   "2006-01-02",
			deadline: "2024-12-31",
			formula:  `AND({Company CIK} = "0001234567", {Converted Deadline Date} = "2024-12-31")`,
			response: `{"records":[{"id":"rec1","fields":{}}]}`,
			expected: true,
		},
		{
			name:     "unparsed deadline kept as is",
			deadline: "end of year",
			formula:  `AND({Company CIK} = "0001234567", {Converted Deadline Date} = "end of year")`,
			response: `{"records":[]}`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("Expected GET, got %s", r.Method)
				}
				if r.URL.Path != "/appCrowd/The List" {
					t.Errorf("Expected path '/appCrowd/The List', got '%s'", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer key-test" {
					t.Errorf("Expected bearer auth, got '%s'", got)
				}

				query := r.URL.Query()
				if got := query.Get("filterByFormula"); got != tt.formula {
					t.Errorf("Expected formula %s, got %s", tt.formula, got)
				}
				if got := query.Get("view"); got != DefaultView {
					t.Errorf("Expected view '%s', got '%s'", DefaultView, got)
				}
				if got := query.Get("maxRecords"); got != "1" {
					t.Errorf("Expected maxRecords 1, got '%s'", got)
				}

				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.response)
			})

			if tt.layout != "" {
				client.cfg.DeadlineLayout = tt.layout
			}

			exists, err := client.Exists(context.Background(), "0001234567", tt.deadline)
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if exists != tt.expected {
				t.Errorf("Expected %t, got %t", tt.expected, exists)
			}
		})
	}
}

func TestClientExistsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":{"type":"INVALID_FILTER_BY_FORMULA","message":"The formula is invalid"}}`)
	})

	_, err := client.Exists(context.Background(), "0001234567", "2024-12-31")
	if err == nil {
		t.Fatal("Expected error for API failure")
	}
	if !strings.Contains(err.Error(), "INVALID_FILTER_BY_FORMULA") {
		t.Errorf("Expected error type in message, got: %v", err)
	}
}

func TestClientCreate(t *testing.T) {
	var received createRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Expected JSON content type, got '%s'", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}

		io.WriteString(w, `{"records":[{"id":"recNew","fields":{}}]}`)
	})

	id, err := client.Create(context.Background(), database.Offering{
		CompanyCIK:        "0001234567",
		CompanyName:       "Acme Robotics Inc.",
		LiveStatus:        "LIVE",
		MaxOfferingAmount: decimal.NewNullDecimal(decimal.RequireFromString("1070000")),
		DeadlineDate:      "2024-12-31",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != "recNew" {
		t.Errorf("Expected record ID 'recNew', got '%s'", id)
	}

	if !received.Typecast {
		t.Error("Expected typecast to be enabled")
	}
	if len(received.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(received.Records))
	}

	fields := received.Records[0].Fields
	if fields[FieldCompanyName] != "Acme Robotics Inc." {
		t.Errorf("Expected company name, got %v", fields[FieldCompanyName])
	}
	if fields[FieldMaxOfferingAmount] != float64(1070000) {
		t.Errorf("Expected max offering amount 1070000, got %v", fields[FieldMaxOfferingAmount])
	}
	if _, ok := fields[FieldPricePerShare]; ok {
		t.Error("Expected null price per share to be omitted")
	}
	if _, ok := fields[FieldCompanyURL]; ok {
		t.Error("Expected empty company URL to be omitted")
	}
}

func TestEscapeFormulaString(t *testing.T) {
	if got := escapeFormulaString(`a"b\c`); got != `a\"b\\c` {
		t.Errorf("Expected escaped string, got %s", got)
	}
}

func TestKeyringAccount(t *testing.T) {
	if got := KeyringAccount("appCrowd"); got != "airtable:appCrowd" {
		t.Errorf("Expected 'airtable:appCrowd', got '%s'", got)
	}
}

func TestResolveAPIKeyPrefersConfigured(t *testing.T) {
	key, err := ResolveAPIKey("  key-configured ", "appCrowd")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "key-configured" {
		t.Errorf("Expected 'key-configured', got '%s'", key)
	}
}
