package cart

import (
	"context"
	"sync"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// memProducts mimics the atomic conditional update of the product store.
type memProducts struct {
	mu       sync.Mutex
	products map[int64]catalog.Product

	// failStock lets a test fail a specific stock mutation.
	failStock func(id int64, delta int) error
	// findGate, when set, holds every FindByID until the gate opens.
	findGate *sync.WaitGroup

	stockCalls int
}

func newMemProducts(products ...catalog.Product) *memProducts {
	m := &memProducts{products: map[int64]catalog.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memProducts) FindByID(ctx context.Context, id int64) (catalog.Product, error) {
	m.mu.Lock()
	p, ok := m.products[id]
	m.mu.Unlock()

	if m.findGate != nil {
		m.findGate.Done()
		m.findGate.Wait()
	}
	if !ok {
		return catalog.Product{}, &catalog.ProductNotFoundError{ID: id}
	}
	return p, nil
}

func (m *memProducts) UpdateStockQuantity(ctx context.Context, id int64, delta int) (catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stockCalls++

	if m.failStock != nil {
		if err := m.failStock(id, delta); err != nil {
			return catalog.Product{}, err
		}
	}
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, &catalog.ProductNotFoundError{ID: id}
	}
	if p.StockQuantity+delta < 0 {
		return catalog.Product{}, &catalog.NegativeStockError{ProductID: id, Current: p.StockQuantity, Delta: delta}
	}
	p.StockQuantity += delta
	p.StockStatus = catalog.ResolveStockStatus(p.StockStatus, p.StockQuantity)
	m.products[id] = p
	return p, nil
}

func (m *memProducts) get(id int64) catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

// memCarts joins lines with the current product row, like the SQL store does.
type memCarts struct {
	mu       sync.Mutex
	products *memProducts
	lines    map[string][]Item
	nextID   int64

	addErr    error
	updateErr error
	removeErr error
	clearErr  error

	// beforeWrite runs once, outside the lock, at the start of the next
	// UpdateItem, RemoveItem or ClearCart. It lets a test slip another
	// request in between a use-case's reads and its cart write.
	beforeWrite func()
}

func newMemCarts(products *memProducts) *memCarts {
	return &memCarts{products: products, lines: map[string][]Item{}}
}

func (c *memCarts) FindBySession(ctx context.Context, sessionID string) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []Item{}
	for _, it := range c.lines[sessionID] {
		it.Product = c.products.get(it.ProductID)
		out = append(out, it)
	}
	return out, nil
}

func (c *memCarts) GetItem(ctx context.Context, sessionID string, productID int64) (Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.lines[sessionID] {
		if it.ProductID == productID {
			it.Product = c.products.get(productID)
			return it, nil
		}
	}
	return Item{}, &ItemNotFoundError{ProductID: productID}
}

func (c *memCarts) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return Item{}, c.addErr
	}
	lines := c.lines[sessionID]
	for i, it := range lines {
		if it.ProductID == productID {
			lines[i].Quantity += quantity
			out := lines[i]
			out.Product = c.products.get(productID)
			return out, nil
		}
	}
	c.nextID++
	it := Item{ID: c.nextID, SessionID: sessionID, ProductID: productID, Quantity: quantity, CreatedAt: time.Now()}
	c.lines[sessionID] = append(lines, it)
	it.Product = c.products.get(productID)
	return it, nil
}

func (c *memCarts) interleave() {
	c.mu.Lock()
	fn := c.beforeWrite
	c.beforeWrite = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *memCarts) UpdateItem(ctx context.Context, sessionID string, productID int64, from, to int) (Item, error) {
	c.interleave()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return Item{}, c.updateErr
	}
	for i, it := range c.lines[sessionID] {
		if it.ProductID == productID && it.Quantity == from {
			c.lines[sessionID][i].Quantity = to
			out := c.lines[sessionID][i]
			out.Product = c.products.get(productID)
			return out, nil
		}
	}
	return Item{}, &ItemChangedError{ProductID: productID}
}

func (c *memCarts) RemoveItem(ctx context.Context, sessionID string, productID int64, quantity int) error {
	c.interleave()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeErr != nil {
		return c.removeErr
	}
	lines := c.lines[sessionID]
	for i, it := range lines {
		if it.ProductID == productID && it.Quantity == quantity {
			c.lines[sessionID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return &ItemChangedError{ProductID: productID}
}

func (c *memCarts) ClearCart(ctx context.Context, sessionID string, expected []Item) ([]int64, error) {
	c.interleave()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return nil, c.clearErr
	}
	want := make(map[int64]int, len(expected))
	for _, it := range expected {
		want[it.ID] = it.Quantity
	}
	removed := []int64{}
	kept := []Item{}
	for _, it := range c.lines[sessionID] {
		if q, ok := want[it.ID]; ok && q == it.Quantity {
			removed = append(removed, it.ID)
			continue
		}
		kept = append(kept, it)
	}
	c.lines[sessionID] = kept
	return removed, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	stock   []StockAdjustment
	changes []ItemChange
	err     error
}

func (p *recordingPublisher) PublishStockAdjusted(ctx context.Context, adj StockAdjustment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock = append(p.stock, adj)
	return p.err
}

func (p *recordingPublisher) PublishItemChanged(ctx context.Context, change ItemChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func product(id int64, qty int, status catalog.StockStatus) catalog.Product {
	return catalog.Product{
		ID:            id,
		Name:          "Product",
		Price:         catalog.MustMoney("2.50"),
		Tags:          []string{"xmas"},
		StockQuantity: qty,
		StockStatus:   status,
	}
}
