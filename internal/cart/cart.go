// Package cart holds the per-session shopping cart: an ordered set of lines
// keyed by product id, with quantities kept within the product's stock.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	ErrOutOfStock     = errors.New("product is out of stock")
	ErrNotPurchasable = errors.New("product is not purchasable")
	ErrLineNotFound   = errors.New("product is not in the cart")
)

type Line struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable view of a cart taken right after a mutation.
type Snapshot struct {
	Lines      []Line          `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Observer receives a snapshot after every state-changing mutation.
type Observer func(Snapshot)

type subscription struct {
	id       int
	observer Observer
}

type Cart struct {
	mu    sync.Mutex
	lines []Line

	subs    []subscription
	nextSub int

	dispatching bool
	pending     []Snapshot
}

func New() *Cart {
	return &Cart{}
}

// Restore builds a cart from previously stored lines. Lines that no longer
// satisfy the quantity bounds are clamped or dropped.
func Restore(lines []Line) *Cart {
	c := New()
	for _, l := range lines {
		if l.Quantity < 1 || l.Product.Stock < 1 || c.indexOf(l.Product.ID) >= 0 {
			continue
		}
		l.Quantity = clamp(l.Quantity, l.Product.Stock)
		c.lines = append(c.lines, l)
	}
	return c
}

// Subscribe registers o and returns a func that removes it again.
func (c *Cart) Subscribe(o Observer) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscription{id: id, observer: o})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// AddItem adds quantity units of p. An existing line for p.ID is increased
// instead of appending a second line; the result is clamped to p.Stock.
func (c *Cart) AddItem(p domain.Product, quantity int) (Line, error) {
	if !p.Price.IsPositive() {
		return Line{}, ErrNotPurchasable
	}
	if p.Stock < 1 {
		return Line{}, ErrOutOfStock
	}
	if quantity < 1 {
		quantity = 1
	}

	var line Line
	c.mutate(func() bool {
		if i := c.indexOf(p.ID); i >= 0 {
			c.lines[i].Product = p
			c.lines[i].Quantity = clamp(c.lines[i].Quantity+quantity, p.Stock)
			line = c.lines[i]
			return true
		}
		line = Line{Product: p, Quantity: clamp(quantity, p.Stock)}
		c.lines = append(c.lines, line)
		return true
	})
	return line, nil
}

// UpdateQuantity sets the quantity of the line for productID. A quantity
// below 1 removes the line. It reports whether the line existed.
func (c *Cart) UpdateQuantity(productID uint64, quantity int) bool {
	found := false
	c.mutate(func() bool {
		i := c.indexOf(productID)
		if i < 0 {
			return false
		}
		found = true
		if quantity < 1 {
			c.removeAt(i)
			return true
		}
		q := clamp(quantity, c.lines[i].Product.Stock)
		if q == c.lines[i].Quantity {
			return false
		}
		c.lines[i].Quantity = q
		return true
	})
	return found
}

func (c *Cart) RemoveItem(productID uint64) {
	c.mutate(func() bool {
		i := c.indexOf(productID)
		if i < 0 {
			return false
		}
		c.removeAt(i)
		return true
	})
}

func (c *Cart) Clear() {
	c.mutate(func() bool {
		if len(c.lines) == 0 {
			return false
		}
		c.lines = nil
		return true
	})
}

func (c *Cart) Line(productID uint64) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLines()
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalItems(c.lines)
}

func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalPrice(c.lines)
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// mutate applies fn under the lock and, when fn reports a change, notifies
// observers outside of it. Notifications raised while a dispatch is already
// running are queued and drained by that dispatch.
func (c *Cart) mutate(fn func() bool) {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, c.snapshotLocked())
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.pending) > 0 {
		snap := c.pending[0]
		c.pending = c.pending[1:]
		subs := append([]subscription(nil), c.subs...)
		c.mu.Unlock()
		for _, s := range subs {
			s.observer(snap)
		}
		c.mu.Lock()
	}
	c.dispatching = false
	c.mu.Unlock()
}

func (c *Cart) snapshotLocked() Snapshot {
	return Snapshot{
		Lines:      c.copyLines(),
		TotalItems: totalItems(c.lines),
		TotalPrice: totalPrice(c.lines),
	}
}

func (c *Cart) copyLines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) indexOf(productID uint64) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
}

func totalItems(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func totalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// clamp bounds q to [1, stock].
func clamp(q, stock int) int {
	if q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}
