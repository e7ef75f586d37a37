package cart

import (
	"context"
	"math"
	"net/http"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/notify"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"go.uber.org/zap"
)

var (
	ErrNoUser    = apperr.Validation("User not logged in!")
	ErrEmptyCart = apperr.Validation("Your cart is empty.")
	ErrNotInCart = apperr.New(http.StatusNotFound, "Item is not in the cart", nil)
)

// Backend is the cart-persistence API.
type Backend interface {
	Submit(ctx context.Context, sub upstream.Submission) error
	Saved(ctx context.Context, userID string) (upstream.SavedCart, error)
}

// SubmitListener hears about carts the backend accepted.
type SubmitListener interface {
	CartSubmitted(ctx context.Context, sub upstream.Submission)
}

type Service struct {
	Repo     Repository
	Backend  Backend
	Notify   notify.Notifier
	Listener SubmitListener // optional
	Log      *zap.Logger
}

// View is the cart plus its total-item counter.
type View struct {
	Lines []Line  `json:"lines"`
	Count float64 `json:"count"`
}

func ViewOf(c Cart) View {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	return View{Lines: lines, Count: c.Count()}
}

func (s *Service) Load(ctx context.Context, key string) (Cart, error) {
	return s.Repo.Load(ctx, key)
}

// SetQuantity sets product to qty and persists the whole cart.
func (s *Service) SetQuantity(ctx context.Context, key string, p upstream.Product, qty float64) (Cart, Change, error) {
	c, err := s.Repo.Load(ctx, key)
	if err != nil {
		return Cart{}, Unchanged, err
	}
	ch, err := c.Set(p, qty)
	if err != nil {
		return c, Unchanged, err
	}
	if err := s.Repo.Save(ctx, key, c); err != nil {
		return c, Unchanged, err
	}
	return c, ch, nil
}

func (s *Service) Adjust(ctx context.Context, key string, p upstream.Product, delta float64) (Cart, Change, error) {
	c, err := s.Repo.Load(ctx, key)
	if err != nil {
		return Cart{}, Unchanged, err
	}
	ch, err := c.Adjust(p, delta)
	if err != nil {
		return c, Unchanged, err
	}
	if err := s.Repo.Save(ctx, key, c); err != nil {
		return c, Unchanged, err
	}
	return c, ch, nil
}

// UpdateLine edits a line already in the cart; the product snapshot comes from the cart itself.
func (s *Service) UpdateLine(ctx context.Context, key, productID string, qty float64) (Cart, Change, error) {
	c, err := s.Repo.Load(ctx, key)
	if err != nil {
		return Cart{}, Unchanged, err
	}
	l, ok := c.Line(productID)
	if !ok {
		return c, Unchanged, ErrNotInCart
	}
	ch, err := c.Set(l.Product, qty)
	if err != nil {
		return c, Unchanged, err
	}
	if err := s.Repo.Save(ctx, key, c); err != nil {
		return c, Unchanged, err
	}
	if ch == Updated {
		s.Notify.Push(key, notify.KindSuccess, "Quantity updated!")
	} else if ch == Removed {
		s.Notify.Push(key, notify.KindInfo, "Item removed from cart!")
	}
	return c, ch, nil
}

func (s *Service) Remove(ctx context.Context, key, productID string) (Cart, error) {
	c, err := s.Repo.Load(ctx, key)
	if err != nil {
		return Cart{}, err
	}
	if !c.Remove(productID) {
		return c, ErrNotInCart
	}
	if err := s.Repo.Save(ctx, key, c); err != nil {
		return c, err
	}
	s.Notify.Push(key, notify.KindInfo, "Item removed from cart!")
	return c, nil
}

// Submit sends the cart for userID to the backend and clears it on success.
// A failed submission leaves the cart untouched; nothing is retried.
func (s *Service) Submit(ctx context.Context, key, userID string) error {
	if userID == "" {
		s.Notify.Push(key, notify.KindWarning, ErrNoUser.Message)
		return ErrNoUser
	}
	c, err := s.Repo.Load(ctx, key)
	if err != nil {
		return err
	}
	if c.Empty() {
		s.Notify.Push(key, notify.KindWarning, ErrEmptyCart.Message)
		return ErrEmptyCart
	}

	sub := c.Submission(userID)
	if err := s.Backend.Submit(ctx, sub); err != nil {
		msg := upstream.ServerMessage(err, "Failed to save cart")
		s.Notify.Push(key, notify.KindError, "Error: "+msg)
		s.logger().Warn("cart submit failed", zap.String("user_id", userID), zap.Error(err))
		return apperr.Upstream(msg, err)
	}

	if err := s.Repo.Clear(ctx, key); err != nil {
		// Backend already has the cart; a stale local copy is the lesser problem.
		s.logger().Error("clear submitted cart", zap.String("session", key), zap.Error(err))
	}
	s.Notify.Push(key, notify.KindSuccess, "Cart saved successfully!")
	if s.Listener != nil {
		s.Listener.CartSubmitted(ctx, sub)
	}
	return nil
}

// SavedSummary is the server-side cart for a user with its totals.
type SavedSummary struct {
	Items      []upstream.SavedLine `json:"items"`
	TotalItems float64              `json:"totalItems"`
	TotalPrice float64              `json:"totalPrice"`
}

func (s *Service) Saved(ctx context.Context, userID string) (SavedSummary, error) {
	if userID == "" {
		return SavedSummary{}, ErrNoUser
	}
	sc, err := s.Backend.Saved(ctx, userID)
	if err != nil {
		return SavedSummary{}, apperr.Upstream("Failed to fetch cart", err)
	}
	out := SavedSummary{Items: sc.Items}
	if out.Items == nil {
		out.Items = []upstream.SavedLine{}
	}
	for _, it := range sc.Items {
		out.TotalItems += it.Quantity
		out.TotalPrice += it.Product.Price * it.Quantity
	}
	out.TotalPrice = math.Round(out.TotalPrice*100) / 100
	return out, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.L()
}
