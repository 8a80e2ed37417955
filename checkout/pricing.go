package checkout

import "math"

const TaxRate = 0.08

// MaxRentalHours caps a single checkout at 30 days.
const MaxRentalHours = 24 * 30

// Totals returns the taxed hourly total of the cart and the amount charged for the whole
// rental.
func Totals(subtotal float64, hours int) (finalTotal, totalWithDuration float64) {
	finalTotal = subtotal * (1 + TaxRate)
	totalWithDuration = finalTotal * float64(hours)
	return finalTotal, totalWithDuration
}

// LinePrice is what one rented bike costs, tax included, rounded to cents.
func LinePrice(price float64, hours int) float64 {
	return math.Round(price*(1+TaxRate)*float64(hours)*100) / 100
}

// MinorUnits converts an amount to whole cents.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
