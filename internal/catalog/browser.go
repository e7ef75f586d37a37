// Package catalog lists products for the waste-image page and applies cart
// edits made from it.
package catalog

import (
	"context"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/cache"
	"github.com/ariefcatur/go-waste-portal.git/internal/cart"
	"github.com/ariefcatur/go-waste-portal.git/internal/notify"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	productsKey      = "products"
	msgFetchProducts = "Failed to fetch products"
)

var (
	ErrUnknownProduct = apperr.New(http.StatusNotFound, "Product not found", nil)

	brandPrefix = regexp.MustCompile(`(?i)^apni mandi\s+`)
)

type Source interface {
	ListProducts(ctx context.Context) ([]upstream.Product, error)
}

// Item is a product as the page renders it.
type Item struct {
	upstream.Product
	DisplayName string  `json:"displayName"`
	InCart      float64 `json:"inCart"`
}

// Listing is a filtered product list alongside the cart it was annotated from.
type Listing struct {
	Products []Item    `json:"products"`
	Cart     cart.View `json:"cart"`
}

type Browser struct {
	src    Source
	cart   *cart.Service
	notify notify.Notifier
	cache  *cache.TTL[[]upstream.Product]
}

// NewBrowser keeps the sorted product list for ttl so filtering on every
// keystroke reuses one fetch.
func NewBrowser(src Source, carts *cart.Service, n notify.Notifier, clock clockwork.Clock, ttl time.Duration) *Browser {
	return &Browser{
		src:    src,
		cart:   carts,
		notify: n,
		cache:  cache.NewTTL[[]upstream.Product](clock, ttl, 1),
	}
}

// Products returns the catalog filtered by q with each product's quantity in
// the session's cart.
func (b *Browser) Products(ctx context.Context, key, q string) (Listing, error) {
	all, err := b.products(ctx)
	if err != nil {
		return Listing{}, err
	}
	c, err := b.cart.Load(ctx, key)
	if err != nil {
		return Listing{}, err
	}
	filtered := Filter(all, q)
	items := make([]Item, 0, len(filtered))
	for _, p := range filtered {
		items = append(items, Item{Product: p, DisplayName: DisplayName(p.Name), InCart: c.Quantity(p.ID)})
	}
	return Listing{Products: items, Cart: cart.ViewOf(c)}, nil
}

// SetQuantity puts productID at qty in the session's cart.
func (b *Browser) SetQuantity(ctx context.Context, key, productID string, qty float64) (cart.View, error) {
	p, err := b.lookup(ctx, productID)
	if err != nil {
		return cart.View{}, err
	}
	c, ch, err := b.cart.SetQuantity(ctx, key, p, qty)
	if err != nil {
		return cart.View{}, err
	}
	b.announce(key, ch)
	return cart.ViewOf(c), nil
}

// Step is the +/- control; the quantity never drops below zero.
func (b *Browser) Step(ctx context.Context, key, productID string, delta float64) (cart.View, error) {
	p, err := b.lookup(ctx, productID)
	if err != nil {
		return cart.View{}, err
	}
	c, ch, err := b.cart.Adjust(ctx, key, p, delta)
	if err != nil {
		return cart.View{}, err
	}
	b.announce(key, ch)
	return cart.ViewOf(c), nil
}

func (b *Browser) announce(key string, ch cart.Change) {
	switch ch {
	case cart.Added, cart.Updated:
		b.notify.Push(key, notify.KindSuccess, "Updated cart!")
	case cart.Removed:
		b.notify.Push(key, notify.KindInfo, "Removed from cart!")
	}
}

func (b *Browser) lookup(ctx context.Context, productID string) (upstream.Product, error) {
	all, err := b.products(ctx)
	if err != nil {
		return upstream.Product{}, err
	}
	for _, p := range all {
		if p.ID == productID {
			return p, nil
		}
	}
	return upstream.Product{}, ErrUnknownProduct
}

func (b *Browser) products(ctx context.Context) ([]upstream.Product, error) {
	if ps, ok := b.cache.Get(productsKey); ok {
		return ps, nil
	}
	ps, err := b.src.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Upstream(msgFetchProducts, err)
	}
	Sort(ps)
	b.cache.Set(productsKey, ps)
	return ps, nil
}


// DisplayName strips the store-brand prefix.
func DisplayName(name string) string {
	return strings.TrimSpace(brandPrefix.ReplaceAllString(name, ""))
}

func sortName(name string) string {
	return brandPrefix.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
}

// Sort orders products by name with English collation, ignoring the brand prefix.
func Sort(ps []upstream.Product) {
	// A Collator keeps scratch buffers; one per call.
	cl := collate.New(language.English)
	sort.SliceStable(ps, func(i, j int) bool {
		return cl.CompareString(sortName(ps[i].Name), sortName(ps[j].Name)) < 0
	})
}

// Filter keeps products whose name or subcategory contains q, ignoring case.
// An empty q keeps everything.
func Filter(ps []upstream.Product, q string) []upstream.Product {
	q = strings.ToLower(q)
	if q == "" {
		return ps
	}
	out := make([]upstream.Product, 0, len(ps))
	for _, p := range ps {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Subcategory), q) {
			out = append(out, p)
		}
	}
	return out
}
