package upstream

import (
	"encoding/json"
	"strconv"
)

// User is the identity the SSO service verifies.
type User struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"productName"`
	Subcategory string  `json:"productSubcategory"`
	SKU         string  `json:"sku"`
	Image       string  `json:"Image"`
	Price       float64 `json:"price"`
}

type SubmitItem struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type Submission struct {
	UserID string       `json:"userId"`
	Items  []SubmitItem `json:"items"`
}

type SavedLine struct {
	Product  Product `json:"product"`
	Quantity float64 `json:"quantity"`
}

type SavedCart struct {
	Items []SavedLine `json:"items"`
}

type HistoryUser struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type HistoryProduct struct {
	Name        string `json:"productName"`
	Subcategory string `json:"productSubcategory"`
	SKU         string `json:"sku"`
	Image       string `json:"Image"`
}

// HistoryItem is one submitted cart line as the aggregation API flattens it.
type HistoryItem struct {
	User     *HistoryUser    `json:"user,omitempty"`
	Product  *HistoryProduct `json:"product,omitempty"`
	Quantity Quantity        `json:"quantity"`
	DateTime string          `json:"dateTime,omitempty"`
}

// Quantity accepts both numbers and numeric strings; anything else decodes as 0.
type Quantity float64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*q = Quantity(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*q = Quantity(f)
			return nil
		}
	}
	*q = 0
	return nil
}

type Pagination struct {
	TotalPages int `json:"totalPages"`
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// TotalPages never reports fewer than one page.
func (p HistoryPage) TotalPages() int {
	if p.Pagination.TotalPages < 1 {
		return 1
	}
	return p.Pagination.TotalPages
}

// RawSuggestion is a suggestion as the API returns it: "product" entries carry
// productName+sku, "name" entries carry value.
type RawSuggestion struct {
	Type        string `json:"type"`
	Value       string `json:"value,omitempty"`
	ProductName string `json:"productName,omitempty"`
	SKU         string `json:"sku,omitempty"`
}

type Account struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type Registration struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}
