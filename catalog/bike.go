// Package catalog holds the bike models that can be rented.
package catalog

// BikeModel represents a bike which can be added to a cart and rented by the hour.
type BikeModel struct {
	// ID is a stable identifier for the model. It is what the cart dedupes on.
	ID int `json:"id"`
	// Name is the user-facing name of the model (e.g. "Cardinal Cruiser")
	Name string `json:"name"`
	// Range is how far the bike travels on a full battery, in miles.
	Range float64 `json:"range"`
	// Price is the hourly rental price.
	Price float64 `json:"price"`
	// Image is a URL to an image of the bike
	Image string `json:"image,omitempty"`
}
