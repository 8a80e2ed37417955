// Package cart keeps the bikes a session has selected for rental.
package cart

import (
	"slices"
	"sync"

	"github.com/semanticallynull/campusbike/catalog"
)

// Line is one selected bike model. The fields are a snapshot of the catalog entry at the
// time it was added.
type Line struct {
	BikeID int     `json:"id"`
	Name   string  `json:"name"`
	Range  float64 `json:"range"`
	Price  float64 `json:"price"`
	Image  string  `json:"image,omitempty"`
}

// Cart holds at most one Line per bike id. Readers always see a whole mutation or none
// of it.
type Cart struct {
	mu    sync.RWMutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add inserts the model unless a line with the same id is already present. It reports
// whether a line was added.
func (c *Cart) Add(m catalog.BikeModel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(m.ID) >= 0 {
		return false
	}
	c.lines = append(c.lines, Line{
		BikeID: m.ID,
		Name:   m.Name,
		Range:  m.Range,
		Price:  m.Price,
		Image:  m.Image,
	})
	return true
}

// Remove deletes the line for id and reports whether there was one.
func (c *Cart) Remove(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	return true
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.lines)
}

func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// Subtotal is the sum of the hourly prices of all lines.
func (c *Cart) Subtotal() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Subtotal(c.lines)
}

func Subtotal(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.Price
	}
	return total
}

func (c *Cart) indexOf(id int) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.BikeID == id })
}
