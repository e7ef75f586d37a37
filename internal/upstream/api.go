package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type CatalogClient struct{ c *Client }

func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

// ListProducts reads the catalog. Unlike every other API route it lives under a
// doubled /api prefix.
func (cc *CatalogClient) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	err := cc.c.Call(ctx, http.MethodGet, "/api/api/products", nil, "", nil, &out)
	return out, err
}

type CartClient struct {
	api   *Client // POST /api/cart
	saved *Client // GET /cart/{userId}
}

func NewCartClient(api, saved *Client) *CartClient { return &CartClient{api: api, saved: saved} }

func (cc *CartClient) Submit(ctx context.Context, sub Submission) error {
	return cc.api.Call(ctx, http.MethodPost, "/api/cart", nil, "", sub, nil)
}

func (cc *CartClient) Saved(ctx context.Context, userID string) (SavedCart, error) {
	var out SavedCart
	err := cc.saved.Call(ctx, http.MethodGet, "/cart/"+url.PathEscape(userID), nil, "", nil, &out)
	return out, err
}

// SearchParams is the full parameter set of a history search.
type SearchParams struct {
	Query     string
	StartDate string // RFC 3339
	EndDate   string // RFC 3339
	Page      int
	Limit     int
}

// Values encodes the parameters in a stable order; the encoding doubles as the cache key.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	v.Set("query", p.Query)
	v.Set("startDate", p.StartDate)
	v.Set("endDate", p.EndDate)
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

type HistoryClient struct{ c *Client }

func NewHistoryClient(c *Client) *HistoryClient { return &HistoryClient{c: c} }

func (h *HistoryClient) Flat(ctx context.Context, page, limit int) (HistoryPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out HistoryPage
	err := h.c.Call(ctx, http.MethodGet, "/api/carts/flat", q, "", nil, &out)
	return out, err
}

func (h *HistoryClient) Search(ctx context.Context, p SearchParams) (HistoryPage, error) {
	var out HistoryPage
	err := h.c.Call(ctx, http.MethodGet, "/api/carts/search", p.Values(), "", nil, &out)
	return out, err
}

func (h *HistoryClient) Suggestions(ctx context.Context, query string) ([]RawSuggestion, error) {
	q := url.Values{}
	q.Set("query", query)
	var out struct {
		Suggestions []RawSuggestion `json:"suggestions"`
	}
	if err := h.c.Call(ctx, http.MethodGet, "/api/suggestions", q, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

type UsersClient struct{ c *Client }

func NewUsersClient(c *Client) *UsersClient { return &UsersClient{c: c} }

func (u *UsersClient) List(ctx context.Context) ([]Account, error) {
	var out struct {
		Users []Account `json:"users"`
	}
	if err := u.c.Call(ctx, http.MethodGet, "/api/users", nil, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Register returns the server's confirmation message.
func (u *UsersClient) Register(ctx context.Context, r Registration) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := u.c.Call(ctx, http.MethodPost, "/api/register", nil, "", r, &out)
	return out.Message, err
}
