package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/cart"
	"github.com/ariefcatur/go-waste-portal.git/internal/notify"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	calls    int
	products []upstream.Product
	err      error
}

func (s *stubSource) ListProducts(context.Context) ([]upstream.Product, error) {
	s.calls++
	out := append([]upstream.Product(nil), s.products...)
	return out, s.err
}

func fixture() []upstream.Product {
	return []upstream.Product{
		{ID: "3", Name: "Tomato", Subcategory: "Vegetables"},
		{ID: "1", Name: "Apni Mandi Basmati Rice", Subcategory: "Grains"},
		{ID: "2", Name: "apple", Subcategory: "Fruit"},
		{ID: "4", Name: "Apni Mandi  Chana Dal", Subcategory: "Pulses"},
	}
}

func newBrowser(src *stubSource, clock clockwork.Clock) (*Browser, *notify.Queue) {
	q := notify.NewQueue(10)
	svc := &cart.Service{Repo: cart.NewMemoryRepository(), Notify: q}
	return NewBrowser(src, svc, q, clock, time.Minute), q
}

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.DisplayName)
	}
	return out
}

func TestSortIgnoresBrandPrefix(t *testing.T) {
	ps := fixture()
	Sort(ps)
	var got []string
	for _, p := range ps {
		got = append(got, p.ID)
	}
	assert.Equal(t, []string{"2", "1", "4", "3"}, got)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Basmati Rice", DisplayName("Apni Mandi Basmati Rice"))
	assert.Equal(t, "Chana Dal", DisplayName("APNI MANDI   Chana Dal"))
	assert.Equal(t, "Mandi Onion", DisplayName("Mandi Onion"))
	assert.Equal(t, "", DisplayName(""))
}

func TestFilterIsCaseInsensitiveOverNameAndSubcategory(t *testing.T) {
	ps := fixture()
	assert.Len(t, Filter(ps, ""), 4)
	assert.Len(t, Filter(ps, "RICE"), 1)
	assert.Len(t, Filter(ps, "veg"), 1)
	assert.Len(t, Filter(ps, "apni"), 2)
	assert.Empty(t, Filter(ps, "xyz"))
}

func TestProductsFetchOncePerWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &stubSource{products: fixture()}
	b, _ := newBrowser(src, clock)
	ctx := context.Background()

	l, err := b.Products(ctx, "s", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "Basmati Rice", "Chana Dal", "Tomato"}, names(l.Products))

	for _, q := range []string{"r", "ri", "ric", "rice"} {
		_, err := b.Products(ctx, "s", q)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.calls)

	clock.Advance(time.Minute)
	_, _ = b.Products(ctx, "s", "")
	assert.Equal(t, 2, src.calls)
}

func TestProductsUpstreamFailure(t *testing.T) {
	b, _ := newBrowser(&stubSource{err: errors.New("boom")}, clockwork.NewFakeClock())
	_, err := b.Products(context.Background(), "s", "")
	require.ErrorIs(t, err, apperr.ErrUpstream)
	_, msg := apperr.Status(err)
	assert.Equal(t, "Failed to fetch products", msg)
}

func TestSetQuantityAnnotatesAndNotifies(t *testing.T) {
	src := &stubSource{products: fixture()}
	b, q := newBrowser(src, clockwork.NewFakeClock())
	ctx := context.Background()

	v, err := b.SetQuantity(ctx, "s", "1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Count)

	v, err = b.Step(ctx, "s", "2", 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v.Count)

	l, _ := b.Products(ctx, "s", "rice")
	require.Len(t, l.Products, 1)
	assert.Equal(t, 2.0, l.Products[0].InCart)
	assert.Equal(t, 3.0, l.Cart.Count)

	v, err = b.SetQuantity(ctx, "s", "1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Count)

	notes := q.Drain("s")
	require.Len(t, notes, 3)
	assert.Equal(t, "Updated cart!", notes[0].Message)
	assert.Equal(t, notify.KindSuccess, notes[1].Kind)
	assert.Equal(t, "Removed from cart!", notes[2].Message)
	assert.Equal(t, notify.KindInfo, notes[2].Kind)
}

func TestStepNeverGoesNegative(t *testing.T) {
	b, _ := newBrowser(&stubSource{products: fixture()}, clockwork.NewFakeClock())
	v, err := b.Step(context.Background(), "s", "3", -1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Count)
	assert.Empty(t, v.Lines)
}

func TestSetQuantityRejectsBadInput(t *testing.T) {
	b, _ := newBrowser(&stubSource{products: fixture()}, clockwork.NewFakeClock())
	ctx := context.Background()

	_, err := b.SetQuantity(ctx, "s", "1", -2)
	assert.ErrorIs(t, err, cart.ErrNegativeQuantity)

	_, err = b.SetQuantity(ctx, "s", "missing", 1)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}
