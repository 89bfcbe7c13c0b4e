// Package airtable stores offerings in an Airtable base, the table layout the
// Crowd List site reads from.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/crowd-list/app/database"
)

const (
	DefaultBaseURL       = "https://api.airtable.com/v0"
	DefaultTable         = "The List"
	DefaultView          = "Grid view"
	DefaultDeadlineField = "Converted Deadline Date"
	// The formula field renders the deadline as MM-DD-YYYY.
	DefaultDeadlineLayout = "01-02-2006"

	isoDateLayout = "2006-01-02"

	// Airtable allows 5 requests per second per base
	requestsPerSecond = 5
)

// Field names of the table. They are shared with the site and must not change.
const (
	FieldCompanyName       = "Company Name"
	FieldCompanyURL        = "Company URL"
	FieldCompanyCIK        = "Company CIK"
	FieldLiveStatus        = "Live Status"
	FieldFundingPortal     = "Funding Portal"
	FieldMaxOfferingAmount = "Max Offering Amount"
	FieldPricePerShare     = "Price per Share"
	FieldCompanyState      = "Company State"
	FieldDeadlineDate      = "Deadline Date"
	FieldDateSigned        = "Date Signed"
)

var _ database.OfferingRepository = (*Client)(nil)

type Config struct {
	BaseURL string
	APIKey  string
	BaseID  string
	Table   string
	View    string
	// DeadlineField is the field compared against the deadline on lookup.
	// The base keeps a formula field that renders "Deadline Date" as text.
	DeadlineField string
	// DeadlineLayout is the time layout DeadlineField renders dates in.
	DeadlineLayout string
	HTTPClient     *http.Client
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("airtable API key is required")
	}
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("airtable base ID is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.View == "" {
		cfg.View = DefaultView
	}
	if cfg.DeadlineField == "" {
		cfg.DeadlineField = DefaultDeadlineField
	}
	if cfg.DeadlineLayout == "" {
		cfg.DeadlineLayout = DefaultDeadlineLayout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

type record struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type createRequest struct {
	Records  []record `json:"records"`
	Typecast bool     `json:"typecast"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Exists(ctx context.Context, companyCIK, deadlineDate string) (bool, error) {
	query := url.Values{}
	query.Set("filterByFormula", c.lookupFormula(companyCIK, deadlineDate))
	query.Set("view", c.cfg.View)
	query.Set("maxRecords", "1")
	query.Add("fields[]", FieldCompanyCIK)

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, c.tableURL()+"?"+query.Encode(), nil, &resp); err != nil {
		return false, fmt.Errorf("failed to search for offering: %w", err)
	}

	return len(resp.Records) > 0, nil
}

func (c *Client) Create(ctx context.Context, offering database.Offering) (string, error) {
	body := createRequest{
		Records:  []record{{Fields: fieldsFor(offering)}},
		Typecast: true,
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodPost, c.tableURL(), body, &resp); err != nil {
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	if len(resp.Records) == 0 {
		return "", fmt.Errorf("failed to create record: empty response")
	}

	slog.Debug("Airtable record created", "id", resp.Records[0].ID, "cik", offering.CompanyCIK)
	return resp.Records[0].ID, nil
}

func (c *Client) lookupFormula(companyCIK, deadlineDate string) string {
	return fmt.Sprintf(`AND({%s} = "%s", {%s} = "%s")`,
		FieldCompanyCIK, escapeFormulaString(companyCIK),
		c.cfg.DeadlineField, escapeFormulaString(c.lookupDeadline(deadlineDate)))
}

// lookupDeadline renders a normalized deadline the way the lookup field shows
// it. Values that are not ISO dates are compared as stored.
func (c *Client) lookupDeadline(deadlineDate string) string {
	t, err := time.Parse(isoDateLayout, deadlineDate)
	if err != nil {
		return deadlineDate
	}
	return t.Format(c.cfg.DeadlineLayout)
}

func escapeFormulaString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// fieldsFor leaves out empty values; with typecast on, Airtable coerces the
// amount numbers and ISO dates into the column types.
func fieldsFor(offering database.Offering) map[string]any {
	fields := map[string]any{
		FieldCompanyCIK: offering.CompanyCIK,
	}

	text := map[string]string{
		FieldCompanyName:   offering.CompanyName,
		FieldCompanyURL:    offering.CompanyURL,
		FieldLiveStatus:    offering.LiveStatus,
		FieldFundingPortal: offering.FundingPortal,
		FieldCompanyState:  offering.CompanyState,
		FieldDeadlineDate:  offering.DeadlineDate,
		FieldDateSigned:    offering.SignatureDate,
	}
	for name, value := range text {
		if value != "" {
			fields[name] = value
		}
	}

	if offering.MaxOfferingAmount.Valid {
		fields[FieldMaxOfferingAmount] = offering.MaxOfferingAmount.Decimal.InexactFloat64()
	}
	if offering.PricePerShare.Valid {
		fields[FieldPricePerShare] = offering.PricePerShare.Decimal.InexactFloat64()
	}

	return fields
}

func (c *Client) tableURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(c.cfg.Table)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Type != "" {
			return fmt.Errorf("HTTP error: %d %s: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
