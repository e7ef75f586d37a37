package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

func newStubServer(t *testing.T, status int, body string) (*httptest.Server, <-chan recordedRequest) {
	t.Helper()
	ch := make(chan recordedRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ch <- recordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(b),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func newTestClient(url string) *Client {
	return NewClient("test", url, &http.Client{Timeout: 5 * time.Second})
}

func TestVerifySendsBearerToken(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `{"user":{"_id":"u1","name":"Asha","role":"view"}}`)
	sso := NewSSOClient(newTestClient(srv.URL + "/auth"))

	u, err := sso.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Name: "Asha", Role: "view"}, u)

	got := <-reqs
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/auth/verify-auth", got.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
}

func TestVerifyWithoutUser(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, `{}`)
	_, err := NewSSOClient(newTestClient(srv.URL)).Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrNoUser)
}

func TestAPIRoutesResolveUnderHostRoot(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `[]`)
	c := newTestClient(srv.URL)

	_, err := NewCatalogClient(c).ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/api/products", (<-reqs).Path)

	require.NoError(t, NewCartClient(c, nil).Submit(context.Background(), Submission{UserID: "u1"}))
	assert.Equal(t, "/api/cart", (<-reqs).Path)

	_, _ = NewHistoryClient(c).Flat(context.Background(), 2, 10)
	got := <-reqs
	assert.Equal(t, "/api/carts/flat", got.Path)
	assert.Equal(t, "limit=10&page=2", got.RawQuery)
}

func TestStatusErrorCarriesServerMessage(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusUnprocessableEntity, `{"message":"Product not found"}`)
	cart := NewCartClient(newTestClient(srv.URL), nil)

	err := cart.Submit(context.Background(), Submission{UserID: "u1"})
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "Product not found", ServerMessage(err, "Failed to save cart"))
}

func TestStatusErrorWithoutBody(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusInternalServerError, `oops`)
	err := NewCartClient(newTestClient(srv.URL), nil).Submit(context.Background(), Submission{})
	assert.Equal(t, "Failed to save cart", ServerMessage(err, "Failed to save cart"))
}

func TestSubmitBody(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusCreated, `{}`)
	cart := NewCartClient(newTestClient(srv.URL), nil)

	err := cart.Submit(context.Background(), Submission{
		UserID: "u1",
		Items:  []SubmitItem{{ProductID: "p1", Quantity: 2.5}},
	})
	require.NoError(t, err)

	got := <-reqs
	assert.Equal(t, "/api/cart", got.Path)
	assert.JSONEq(t, `{"userId":"u1","items":[{"productId":"p1","quantity":2.5}]}`, got.Body)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
}

func TestSearchQueryString(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `{"items":[{"quantity":"3"}],"pagination":{"totalPages":0}}`)
	h := NewHistoryClient(newTestClient(srv.URL))

	page, err := h.Search(context.Background(), SearchParams{Query: "rice", Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages())
	require.Len(t, page.Items, 1)
	assert.Equal(t, Quantity(3), page.Items[0].Quantity)

	got := <-reqs
	assert.Equal(t, "/api/carts/search", got.Path)
	assert.Equal(t, "endDate=&limit=10&page=2&query=rice&startDate=", got.RawQuery)
}

func TestSuggestions(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK,
		`{"suggestions":[{"type":"product","productName":"Rice","sku":"R1"},{"type":"name","value":"Asha"}]}`)
	out, err := NewHistoryClient(newTestClient(srv.URL)).Suggestions(context.Background(), "ric")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "R1", out[0].SKU)
	assert.Equal(t, "query=ric", (<-reqs).RawQuery)
}

func TestSavedCartEscapesUserID(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `{"items":[]}`)
	cart := NewCartClient(nil, newTestClient(srv.URL))
	_, err := cart.Saved(context.Background(), "u 1")
	require.NoError(t, err)
	assert.Equal(t, "/cart/u 1", (<-reqs).Path)
}

func TestQuantityDecoding(t *testing.T) {
	var items []HistoryItem
	require.NoError(t, json.Unmarshal([]byte(`[{"quantity":1.5},{"quantity":"x"},{}]`), &items))
	assert.Equal(t, Quantity(1.5), items[0].Quantity)
	assert.Equal(t, Quantity(0), items[1].Quantity)
	assert.Equal(t, Quantity(0), items[2].Quantity)
}
