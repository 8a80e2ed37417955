package catalog

import "slices"

// Locations are the campus stations a bike can be picked up from or dropped off at.
var Locations = []string{
	"Angel College Center",
	"Hawkins Hall",
	"Wilson Hall",
}

func IsLocation(name string) bool {
	return slices.Contains(Locations, name)
}
