// Package marketplace – Wildberries client
//
// This file implements the Gateway for the Wildberries seller feedbacks API.
// Listing walks the take/skip pagination until an empty page; replies go to
// the answer endpoint, which returns no reply id. Wildberries has no separate
// product-card endpoint on this API, so product context is taken from the
// productDetails block embedded in each feedback.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// wbDefaultBaseURL is the production feedbacks API host.
const wbDefaultBaseURL = "https://feedbacks-api.wildberries.ru"

// WildberriesClient talks to the Wildberries feedbacks API. The zero value is
// not usable; construct with NewWildberriesClient. BaseURL, HTTP, and Limiter
// are exported so tests can point the client at a local server and drop the
// throttle.
type WildberriesClient struct {
	// BaseURL is the API origin without a trailing slash.
	BaseURL string
	// HTTP executes requests; its timeout bounds every call.
	HTTP *http.Client
	// PerPage is the take parameter for feedback pagination.
	PerPage int
	// Limiter paces requests. Wildberries throttles tokens that exceed
	// roughly one request per 400ms on this API.
	Limiter *rate.Limiter
}

// NewWildberriesClient returns a client for the production Wildberries API
// with the house throttle and timeout defaults.
func NewWildberriesClient() *WildberriesClient {
	return &WildberriesClient{
		BaseURL: wbDefaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		PerPage: 100,
		Limiter: rate.NewLimiter(rate.Every(400*time.Millisecond), 1),
	}
}

// wbFeedback mirrors one element of data.feedbacks.
type wbFeedback struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	Pros             string `json:"pros"`
	Cons             string `json:"cons"`
	ProductValuation *int   `json:"productValuation"`
	UserName         string `json:"userName"`
	CreatedDate      string `json:"createdDate"`
	ProductDetails   struct {
		NmID            int64  `json:"nmId"`
		ProductName     string `json:"productName"`
		SupplierArticle string `json:"supplierArticle"`
	} `json:"productDetails"`
}

// wbFeedbacksResponse mirrors the list endpoint envelope.
type wbFeedbacksResponse struct {
	Data struct {
		Feedbacks []wbFeedback `json:"feedbacks"`
	} `json:"data"`
	Error     bool   `json:"error"`
	ErrorText string `json:"errorText"`
}

// ListUnanswered pages through every unanswered feedback for the account.
// The page walk stops on the first empty page, matching the API's contract
// that skip past the end returns an empty feedbacks array.
func (c *WildberriesClient) ListUnanswered(ctx context.Context, acc *domain.Account) ([]RawItem, error) {
	var out []RawItem
	skip := 0
	for {
		page, err := c.fetchPage(ctx, acc, skip)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, f := range page {
			out = append(out, c.normalize(f))
		}
		skip += len(page)
	}
}

func (c *WildberriesClient) fetchPage(ctx context.Context, acc *domain.Account, skip int) ([]wbFeedback, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("isAnswered", "false")
	q.Set("take", strconv.Itoa(c.PerPage))
	q.Set("skip", strconv.Itoa(skip))
	q.Set("order", "dateDesc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/feedbacks?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("wildberries: build list request: %w", err)
	}
	req.Header.Set("Authorization", acc.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wildberries: list feedbacks: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wildberries: read list response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Marketplace: Wildberries, Op: "list feedbacks", Status: resp.StatusCode, Body: truncateBody(body)}
	}

	var payload wbFeedbacksResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("wildberries: decode list response: %w", err)
	}
	if payload.Error {
		return nil, &APIError{Marketplace: Wildberries, Op: "list feedbacks", Status: resp.StatusCode, Body: payload.ErrorText}
	}
	return payload.Data.Feedbacks, nil
}

func (c *WildberriesClient) normalize(f wbFeedback) RawItem {
	ref := ""
	if f.ProductDetails.NmID != 0 {
		ref = strconv.FormatInt(f.ProductDetails.NmID, 10)
	}
	return RawItem{
		ExternalID:  f.ID,
		Rating:      f.ProductValuation,
		Text:        f.Text,
		Pros:        f.Pros,
		Cons:        f.Cons,
		AuthorName:  f.UserName,
		ProductRef:  ref,
		ProductName: f.ProductDetails.ProductName,
		CreatedAt:   parseAPITime(f.CreatedDate),
	}
}

// GetProduct always fails with ErrProductUnsupported: this API exposes no
// product-card endpoint, and callers use the embedded productDetails instead.
func (c *WildberriesClient) GetProduct(ctx context.Context, acc *domain.Account, productRef string) (*ProductInfo, error) {
	return nil, ErrProductUnsupported
}

// SubmitReply posts the answer for a feedback id. Both 200 and 204 count as
// delivered; the API assigns no reply id, so the result carries none.
func (c *WildberriesClient) SubmitReply(ctx context.Context, acc *domain.Account, externalID, text string) (*DeliveryResult, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(map[string]string{"id": externalID, "text": text})
	if err != nil {
		return nil, fmt.Errorf("wildberries: encode answer: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/feedbacks/answer", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("wildberries: build answer request: %w", err)
	}
	req.Header.Set("Authorization", acc.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wildberries: submit reply: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wildberries: read answer response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusNoContent:
		return &DeliveryResult{}, nil
	case http.StatusOK:
		var payload struct {
			Error     bool   `json:"error"`
			ErrorText string `json:"errorText"`
		}
		// Some deployments return an empty 200 body on success.
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, fmt.Errorf("wildberries: decode answer response: %w", err)
			}
			if payload.Error {
				return nil, &APIError{Marketplace: Wildberries, Op: "submit reply", Status: resp.StatusCode, Body: payload.ErrorText}
			}
		}
		return &DeliveryResult{}, nil
	default:
		return nil, &APIError{Marketplace: Wildberries, Op: "submit reply", Status: resp.StatusCode, Body: truncateBody(body)}
	}
}

// parseAPITime parses the marketplace timestamp formats, returning the zero
// time when the value is absent or unparseable.
func parseAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
