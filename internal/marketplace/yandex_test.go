package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

func newYMClient(srv *httptest.Server) *YandexClient {
	c := NewYandexClient()
	c.BaseURL = srv.URL
	c.HTTP = srv.Client()
	c.Limiter = rate.NewLimiter(rate.Inf, 0)
	return c
}

func ymAccount() *domain.Account {
	return &domain.Account{ID: "acc-ym", Name: "market", Marketplace: YandexMarket, Token: "api-key-1"}
}

func TestYandex_ListUnanswered_ResolvesBusinessIDOnce(t *testing.T) {
	campaignCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "api-key-1" {
			t.Fatalf("Api-Key = %q", r.Header.Get("Api-Key"))
		}
		switch r.URL.Path {
		case "/v2/campaigns":
			campaignCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"campaigns": []map[string]any{{"business": map[string]any{"id": 774411}}},
			})
		case "/v2/businesses/774411/goods-feedback":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["reactionStatus"] != "NEED_REACTION" {
				t.Fatalf("reactionStatus = %q", body["reactionStatus"])
			}
			page := map[string]any{
				"status": "OK",
				"result": map[string]any{
					"feedbacks": []map[string]any{
						{
							"feedbackId": 9001,
							"createdAt":  "2024-06-10T08:00:00Z",
							"statistics": map[string]any{"rating": 2},
							"description": map[string]any{
								"comment":       "Не подошёл размер",
								"advantages":    "качество ок",
								"disadvantages": "маломерит",
							},
							"identifiers": map[string]any{"offerId": "SKU-77"},
						},
					},
					"paging": map[string]any{},
				},
			}
			_ = json.NewEncoder(w).Encode(page)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newYMClient(srv)
	acc := ymAccount()

	items, err := c.ListUnanswered(context.Background(), acc)
	if err != nil {
		t.Fatalf("ListUnanswered: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d; want 1", len(items))
	}
	it := items[0]
	if it.ExternalID != "9001" || it.Text != "Не подошёл размер" || it.Cons != "маломерит" || it.ProductRef != "SKU-77" {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.Rating == nil || *it.Rating != 2 {
		t.Fatalf("rating = %v; want 2", it.Rating)
	}
	if acc.BusinessID != "774411" {
		t.Fatalf("BusinessID not written back: %q", acc.BusinessID)
	}

	// Second listing must reuse the resolved id.
	if _, err := c.ListUnanswered(context.Background(), acc); err != nil {
		t.Fatalf("second ListUnanswered: %v", err)
	}
	if campaignCalls != 1 {
		t.Fatalf("campaigns resolved %d times; want 1", campaignCalls)
	}
}

func TestYandex_ListUnanswered_FollowsPageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/campaigns" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"campaigns": []map[string]any{{"business": map[string]any{"id": 5}}},
			})
			return
		}
		token := r.URL.Query().Get("page_token")
		fb := map[string]any{"feedbackId": 1}
		next := "tok-2"
		if token == "tok-2" {
			fb = map[string]any{"feedbackId": 2}
			next = ""
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"feedbacks": []any{fb},
				"paging":    map[string]any{"nextPageToken": next},
			},
		})
	}))
	defer srv.Close()

	items, err := newYMClient(srv).ListUnanswered(context.Background(), ymAccount())
	if err != nil {
		t.Fatalf("ListUnanswered: %v", err)
	}
	if len(items) != 2 || items[0].ExternalID != "1" || items[1].ExternalID != "2" {
		t.Fatalf("pagination lost items: %+v", items)
	}
}

func TestYandex_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/campaigns" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"campaigns": []map[string]any{{"business": map[string]any{"id": 5}}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ERROR",
			"errors": []map[string]any{{"code": "LOCKED", "message": "campaign is locked"}},
		})
	}))
	defer srv.Close()

	_, err := newYMClient(srv).ListUnanswered(context.Background(), ymAccount())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Temporary() {
		t.Fatalf("envelope rejection must be permanent: %+v", apiErr)
	}
	if apiErr.Body != "campaign is locked" {
		t.Fatalf("Body = %q", apiErr.Body)
	}
}

func TestYandex_SubmitReply_ReturnsCommentID(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/campaigns":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"campaigns": []map[string]any{{"business": map[string]any{"id": 42}}},
			})
		case "/v2/businesses/42/goods-feedback/comments/update":
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"result": map[string]any{"id": 31337},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	res, err := newYMClient(srv).SubmitReply(context.Background(), ymAccount(), "9001", "Спасибо!")
	if err != nil {
		t.Fatalf("SubmitReply: %v", err)
	}
	if res.ReplyID == nil || *res.ReplyID != "31337" {
		t.Fatalf("ReplyID = %v; want 31337", res.ReplyID)
	}
	if got["feedbackId"].(float64) != 9001 {
		t.Fatalf("feedbackId sent as %v", got["feedbackId"])
	}
	comment := got["comment"].(map[string]any)
	if comment["text"] != "Спасибо!" {
		t.Fatalf("comment = %v", comment)
	}
}

func TestYandex_SubmitReply_NonNumericID(t *testing.T) {
	c := NewYandexClient()
	acc := ymAccount()
	acc.BusinessID = "42"
	if _, err := c.SubmitReply(context.Background(), acc, "abc", "text"); err == nil {
		t.Fatal("want error for non-numeric feedback id")
	}
}

func TestYandex_GetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/campaigns":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"campaigns": []map[string]any{{"business": map[string]any{"id": 42}}},
			})
		case "/v2/businesses/42/offer-mappings":
			var body map[string][]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body["offerIds"]) != 1 || body["offerIds"][0] != "SKU-77" {
				t.Fatalf("offerIds = %v", body["offerIds"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"result": map[string]any{
					"offerMappings": []map[string]any{{
						"offer": map[string]any{
							"offerId":     "SKU-77",
							"name":        "Кроссовки беговые",
							"description": "Лёгкие кроссовки для бега",
							"params":      []map[string]any{{"name": "Цвет", "value": "синий"}},
						},
					}},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	info, err := newYMClient(srv).GetProduct(context.Background(), ymAccount(), "SKU-77")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if info.Title != "Кроссовки беговые" {
		t.Fatalf("Title = %q", info.Title)
	}
	var params []map[string]string
	if err := json.Unmarshal(info.Attributes, &params); err != nil {
		t.Fatalf("attributes not a params array: %v", err)
	}
	if len(params) != 1 || params[0]["name"] != "Цвет" {
		t.Fatalf("params = %v", params)
	}
}

func TestAPIError_Classification(t *testing.T) {
	cases := []struct {
		status int
		temp   bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{403, false},
		{200, false},
	}
	for _, tc := range cases {
		e := &APIError{Marketplace: Wildberries, Op: "x", Status: tc.status}
		if e.Temporary() != tc.temp {
			t.Fatalf("status %d Temporary() = %v; want %v", tc.status, e.Temporary(), tc.temp)
		}
	}
}
