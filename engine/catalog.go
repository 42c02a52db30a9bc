package engine

import (
	"sync"

	"options_venue/errs"
	"options_venue/models"
)

// Catalog holds the tradable assets. Assets are immutable except for
// the payout percentage, which an admin can adjust.
type Catalog struct {
	mtx    sync.RWMutex
	assets map[string]models.Asset
	order  []string
}

func NewCatalog(assets []models.Asset) *Catalog {
	c := &Catalog{assets: make(map[string]models.Asset)}
	for _, a := range assets {
		if _, exists := c.assets[a.Name]; exists {
			continue
		}
		c.assets[a.Name] = a
		c.order = append(c.order, a.Name)
	}
	return c
}

// Asset resolves one catalogue entry.
func (c *Catalog) Asset(name string) (models.Asset, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	a, ok := c.assets[name]
	if !ok {
		return models.Asset{}, errs.NotFoundf("asset %q", name)
	}
	return a, nil
}

// List returns the catalogue in its stable boot order.
func (c *Catalog) List() []models.Asset {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	out := make([]models.Asset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.assets[name])
	}
	return out
}

// UpdatePayout adjusts an asset's payout percentage.
func (c *Catalog) UpdatePayout(name string, payout float64) error {
	if payout < 0 || payout > 100 {
		return errs.Validationf("payout must be between 0 and 100, got %.2f", payout)
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	a, ok := c.assets[name]
	if !ok {
		return errs.NotFoundf("asset %q", name)
	}
	a.Payout = payout
	c.assets[name] = a
	return nil
}

// Restore replaces the catalogue with a persisted snapshot.
func (c *Catalog) Restore(assets []models.Asset) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.assets = make(map[string]models.Asset, len(assets))
	c.order = c.order[:0]
	for _, a := range assets {
		if _, exists := c.assets[a.Name]; exists {
			continue
		}
		c.assets[a.Name] = a
		c.order = append(c.order, a.Name)
	}
}
