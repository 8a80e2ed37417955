package catalog

import (
	"errors"
	"slices"
)

var ErrNotFound = errors.New("bike model not found")

// Catalog is an immutable list of bike models.
type Catalog struct {
	models []BikeModel
}

func New(models []BikeModel) *Catalog {
	return &Catalog{models: slices.Clone(models)}
}

// Default returns the campus fleet.
func Default() *Catalog {
	return New([]BikeModel{
		{
			ID:    1,
			Name:  "E-Bike Model 1",
			Range: 20,
			Price: 5,
			Image: "/images/e-bike-model-1.png",
		},
		{
			ID:    2,
			Name:  "E-Bike Model 2",
			Range: 25,
			Price: 6,
			Image: "/images/e-bike-model-2.jpg",
		},
		{
			ID:    3,
			Name:  "Cardinal Cruiser",
			Range: 30,
			Price: 7,
			Image: "/images/cardinal-cruiser.jpeg",
		},
	})
}

func (c *Catalog) List() []BikeModel {
	return slices.Clone(c.models)
}

func (c *Catalog) Get(id int) (BikeModel, error) {
	for _, m := range c.models {
		if m.ID == id {
			return m, nil
		}
	}
	return BikeModel{}, ErrNotFound
}
