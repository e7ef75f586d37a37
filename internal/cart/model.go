package cart

import (
	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
)

var ErrNegativeQuantity = apperr.Validation("Quantity cannot be negative")

// Line is a product snapshot plus the chosen quantity. The product fields are
// flattened next to quantity.
type Line struct {
	upstream.Product
	Quantity float64 `json:"quantity"`
}

type Change int

const (
	Unchanged Change = iota
	Added
	Updated
	Removed
)

// Cart is an ordered list of lines; a line never holds a zero quantity.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Set puts product at qty. Zero removes the line; negative is rejected.
func (c *Cart) Set(p upstream.Product, qty float64) (Change, error) {
	if qty < 0 {
		return Unchanged, ErrNegativeQuantity
	}
	i := c.index(p.ID)
	switch {
	case qty == 0 && i < 0:
		return Unchanged, nil
	case qty == 0:
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return Removed, nil
	case i < 0:
		c.Lines = append(c.Lines, Line{Product: p, Quantity: qty})
		return Added, nil
	default:
		c.Lines[i].Quantity = qty
		return Updated, nil
	}
}

// Adjust changes the quantity of an existing line by delta, floored at zero.
func (c *Cart) Adjust(p upstream.Product, delta float64) (Change, error) {
	next := c.Quantity(p.ID) + delta
	if next < 0 {
		next = 0
	}
	return c.Set(p, next)
}

func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

func (c *Cart) Line(productID string) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

func (c *Cart) Quantity(productID string) float64 {
	l, _ := c.Line(productID)
	return l.Quantity
}

// Count is the total-item counter shown next to the cart.
func (c *Cart) Count() float64 {
	var n float64
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Empty() bool { return len(c.Lines) == 0 }

func (c *Cart) Submission(userID string) upstream.Submission {
	items := make([]upstream.SubmitItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, upstream.SubmitItem{ProductID: l.ID, Quantity: l.Quantity})
	}
	return upstream.Submission{UserID: userID, Items: items}
}

func (c *Cart) index(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ID == productID {
			return i
		}
	}
	return -1
}
