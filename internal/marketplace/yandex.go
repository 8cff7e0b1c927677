// Package marketplace – Yandex Market client
//
// This file implements the Gateway for the Yandex Market partner API.
// Feedback listing and replies are business-scoped, and the business id is
// not part of the account credential: it is resolved lazily from
// /v2/campaigns, cached in-process, and written back to the Account so the
// caller can persist it and skip the lookup on later cycles.
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
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// ymDefaultBaseURL is the production partner API host.
const ymDefaultBaseURL = "https://api.partner.market.yandex.ru"

// YandexClient talks to the Yandex Market partner API. Construct with
// NewYandexClient; the exported fields exist so tests can redirect the client
// and disable throttling.
type YandexClient struct {
	// BaseURL is the API origin without a trailing slash.
	BaseURL string
	// HTTP executes requests; its timeout bounds every call.
	HTTP *http.Client
	// PerPage is the limit parameter for feedback pagination.
	PerPage int
	// Limiter paces requests against the partner API quotas.
	Limiter *rate.Limiter

	mu          sync.Mutex
	businessIDs map[string]string
}

// NewYandexClient returns a client for the production Yandex Market partner
// API with conservative throttle and timeout defaults.
func NewYandexClient() *YandexClient {
	return &YandexClient{
		BaseURL:     ymDefaultBaseURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		PerPage:     50,
		Limiter:     rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		businessIDs: make(map[string]string),
	}
}

// ymEnvelope is the response wrapper common to partner API endpoints.
type ymEnvelope struct {
	Status string `json:"status"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ymFeedback mirrors one element of result.feedbacks.
type ymFeedback struct {
	FeedbackID  int64  `json:"feedbackId"`
	CreatedAt   string `json:"createdAt"`
	Description struct {
		Comment       string `json:"comment"`
		Advantages    string `json:"advantages"`
		Disadvantages string `json:"disadvantages"`
	} `json:"description"`
	Statistics struct {
		Rating *int `json:"rating"`
	} `json:"statistics"`
	Identifiers struct {
		OfferID string `json:"offerId"`
		ModelID int64  `json:"modelId"`
	} `json:"identifiers"`
}

// ensureBusinessID resolves the business id for the account, preferring the
// persisted value, then the in-process cache, then /v2/campaigns. A freshly
// resolved id is written onto acc so the caller can persist it.
func (c *YandexClient) ensureBusinessID(ctx context.Context, acc *domain.Account) (string, error) {
	if acc.BusinessID != "" {
		return acc.BusinessID, nil
	}

	c.mu.Lock()
	cached := c.businessIDs[acc.ID]
	c.mu.Unlock()
	if cached != "" {
		acc.BusinessID = cached
		return cached, nil
	}

	var payload struct {
		Campaigns []struct {
			Business struct {
				ID int64 `json:"id"`
			} `json:"business"`
		} `json:"campaigns"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/campaigns", nil, nil, acc, "detect business id", &payload); err != nil {
		return "", err
	}
	if len(payload.Campaigns) == 0 || payload.Campaigns[0].Business.ID == 0 {
		return "", &APIError{Marketplace: YandexMarket, Op: "detect business id", Status: http.StatusOK, Body: "no campaigns available for this key"}
	}
	id := strconv.FormatInt(payload.Campaigns[0].Business.ID, 10)

	c.mu.Lock()
	c.businessIDs[acc.ID] = id
	c.mu.Unlock()
	acc.BusinessID = id
	return id, nil
}

// ListUnanswered pages through feedback awaiting a reaction, following the
// page_token chain until the API stops returning one.
func (c *YandexClient) ListUnanswered(ctx context.Context, acc *domain.Account) ([]RawItem, error) {
	businessID, err := c.ensureBusinessID(ctx, acc)
	if err != nil {
		return nil, err
	}

	var out []RawItem
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.PerPage))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var payload struct {
			Result struct {
				Feedbacks []ymFeedback `json:"feedbacks"`
				Paging    struct {
					NextPageToken string `json:"nextPageToken"`
				} `json:"paging"`
			} `json:"result"`
		}
		body := map[string]string{"reactionStatus": "NEED_REACTION"}
		if err := c.do(ctx, http.MethodPost, "/v2/businesses/"+businessID+"/goods-feedback", q, body, acc, "list feedbacks", &payload); err != nil {
			return nil, err
		}
		for _, f := range payload.Result.Feedbacks {
			out = append(out, c.normalize(f))
		}
		pageToken = payload.Result.Paging.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

func (c *YandexClient) normalize(f ymFeedback) RawItem {
	ref := f.Identifiers.OfferID
	if ref == "" && f.Identifiers.ModelID != 0 {
		ref = strconv.FormatInt(f.Identifiers.ModelID, 10)
	}
	return RawItem{
		ExternalID:  strconv.FormatInt(f.FeedbackID, 10),
		Rating:      f.Statistics.Rating,
		Text:        f.Description.Comment,
		Pros:        f.Description.Advantages,
		Cons:        f.Description.Disadvantages,
		ProductRef:  ref,
		ProductName: f.Identifiers.OfferID,
		CreatedAt:   parseAPITime(f.CreatedAt),
	}
}

// GetProduct fetches the offer card behind a product reference via the
// offer-mappings endpoint. The characteristics params are passed through as
// the raw attributes payload.
func (c *YandexClient) GetProduct(ctx context.Context, acc *domain.Account, productRef string) (*ProductInfo, error) {
	businessID, err := c.ensureBusinessID(ctx, acc)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Result struct {
			OfferMappings []struct {
				Offer struct {
					OfferID     string          `json:"offerId"`
					Name        string          `json:"name"`
					Description string          `json:"description"`
					Params      json.RawMessage `json:"params"`
				} `json:"offer"`
			} `json:"offerMappings"`
		} `json:"result"`
	}
	body := map[string][]string{"offerIds": {productRef}}
	if err := c.do(ctx, http.MethodPost, "/v2/businesses/"+businessID+"/offer-mappings", nil, body, acc, "get product", &payload); err != nil {
		return nil, err
	}
	if len(payload.Result.OfferMappings) == 0 {
		return nil, &APIError{Marketplace: YandexMarket, Op: "get product", Status: http.StatusOK, Body: "offer " + productRef + " not found"}
	}
	offer := payload.Result.OfferMappings[0].Offer
	return &ProductInfo{
		Title:       offer.Name,
		Description: offer.Description,
		Attributes:  offer.Params,
	}, nil
}

// SubmitReply posts a comment on the feedback. The API returns the created
// comment id, which becomes the marketplace reply id on the delivery record.
func (c *YandexClient) SubmitReply(ctx context.Context, acc *domain.Account, externalID, text string) (*DeliveryResult, error) {
	businessID, err := c.ensureBusinessID(ctx, acc)
	if err != nil {
		return nil, err
	}
	feedbackID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("yandex_market: submit reply: feedback id %q is not numeric", externalID)
	}

	var payload struct {
		Result struct {
			ID int64 `json:"id"`
		} `json:"result"`
	}
	body := map[string]any{
		"feedbackId": feedbackID,
		"comment":    map[string]string{"text": text},
	}
	if err := c.do(ctx, http.MethodPost, "/v2/businesses/"+businessID+"/goods-feedback/comments/update", nil, body, acc, "submit reply", &payload); err != nil {
		return nil, err
	}

	res := &DeliveryResult{}
	if payload.Result.ID != 0 {
		id := strconv.FormatInt(payload.Result.ID, 10)
		res.ReplyID = &id
	}
	return res, nil
}

// do executes one partner API call: throttle, request, HTTP status check,
// decode into target, then the status/errors envelope check the partner API
// uses for payload-level rejections.
func (c *YandexClient) do(ctx context.Context, method, path string, query url.Values, reqBody any, acc *domain.Account, op string, target any) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var r io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("yandex_market: encode %s request: %w", op, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("yandex_market: build %s request: %w", op, err)
	}
	req.Header.Set("Api-Key", acc.Token)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("yandex_market: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yandex_market: read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Marketplace: YandexMarket, Op: op, Status: resp.StatusCode, Body: truncateBody(body)}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("yandex_market: decode %s response: %w", op, err)
	}

	var env ymEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Status != "" && env.Status != "OK" {
			msg := env.Status
			if len(env.Errors) > 0 {
				msg = env.Errors[0].Message
			}
			return &APIError{Marketplace: YandexMarket, Op: op, Status: resp.StatusCode, Body: msg}
		}
	}
	return nil
}
