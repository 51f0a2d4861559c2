// Package neon pulls member accounts from a Neon CRM organization and
// produces the roster file consumed by the user directory.
package neon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Neon API endpoint.
const DefaultBaseURL = "https://api.neoncrm.com/v2/"

// FieldMap names the Neon account fields the roster is built from.
type FieldMap struct {
	NameField            string   `json:"name_field"`
	FirstNameField       string   `json:"first_name_field"`
	PreferredNameField   string   `json:"preferred_name_field"`
	EmailField           string   `json:"email_field"`
	ExpirationField      string   `json:"expiration_field"`
	AccountIDField       string   `json:"account_id_field"`
	FobFields            []string `json:"fob_fields"`
	AuthorizedFieldValue string   `json:"authorized_field_value"`
	AuthorizationFields  []string `json:"authorization_fields"`
}

// ExampleFieldMap returns a starting-point field mapping.
func ExampleFieldMap() FieldMap {
	return FieldMap{
		NameField:            "Full Name (F)",
		FirstNameField:       "First Name",
		PreferredNameField:   "Preferred Name",
		EmailField:           "Email 1",
		ExpirationField:      "Membership Expiration Date",
		AccountIDField:       "Account ID",
		FobFields:            []string{"Fob10Digit"},
		AuthorizedFieldValue: "Training Complete",
		AuthorizationFields:  []string{"Woodshop 101"},
	}
}

// Validate checks the required mapping fields are present.
func (f FieldMap) Validate() error {
	switch {
	case f.NameField == "":
		return fmt.Errorf("name_field is required")
	case f.EmailField == "":
		return fmt.Errorf("email_field is required")
	case f.ExpirationField == "":
		return fmt.Errorf("expiration_field is required")
	case f.AccountIDField == "":
		return fmt.Errorf("account_id_field is required")
	case len(f.FobFields) == 0:
		return fmt.Errorf("fob_fields must list at least one field")
	case f.AuthorizedFieldValue == "":
		return fmt.Errorf("authorized_field_value is required")
	}
	return nil
}

// Client talks to the Neon accounts API.
type Client struct {
	baseURL  string
	orgID    string
	apiKey   string
	pageSize int
	client   *http.Client
}

// NewClient builds a client authenticated with the org ID and API key.
func NewClient(baseURL, orgID, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		orgID:    orgID,
		apiKey:   apiKey,
		pageSize: 200,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	SearchFields []searchField  `json:"searchFields"`
	OutputFields []string       `json:"outputFields"`
	Pagination   paginationSpec `json:"pagination"`
}

type searchField struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type paginationSpec struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

type searchResponse struct {
	Pagination struct {
		CurrentPage int `json:"currentPage"`
		TotalPages  int `json:"totalPages"`
	} `json:"pagination"`
	SearchResults []map[string]string `json:"searchResults"`
}

// SearchAccounts pages through the account search for all current
// members, returning the raw field maps.
func (c *Client) SearchAccounts(ctx context.Context, fields FieldMap) ([]map[string]string, error) {
	output := []string{
		fields.NameField, fields.EmailField, fields.ExpirationField,
		fields.AccountIDField,
	}
	if fields.FirstNameField != "" {
		output = append(output, fields.FirstNameField)
	}
	if fields.PreferredNameField != "" {
		output = append(output, fields.PreferredNameField)
	}
	output = append(output, fields.FobFields...)
	output = append(output, fields.AuthorizationFields...)

	var results []map[string]string
	for page := 0; ; page++ {
		resp, err := c.searchPage(ctx, output, page)
		if err != nil {
			return nil, err
		}
		results = append(results, resp.SearchResults...)
		if page >= resp.Pagination.TotalPages-1 {
			break
		}
	}
	return results, nil
}

func (c *Client) searchPage(ctx context.Context, output []string, page int) (*searchResponse, error) {
	body, err := json.Marshal(searchRequest{
		SearchFields: []searchField{
			{Field: "Account Type", Operator: "EQUAL", Value: "Individual"},
		},
		OutputFields: output,
		Pagination:   paginationSpec{CurrentPage: page, PageSize: c.pageSize},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"accounts/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.orgID, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("NEON-API-VERSION", "2.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neon account search page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("neon account search page %d: HTTP %d: %s", page, resp.StatusCode, data)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("neon account search page %d: %w", page, err)
	}
	return &parsed, nil
}
