package pricing

import (
	"math"

	"github.com/noah-isme/jwfoods/internal/common"
)

// DefaultTaxRate is the Ontario HST applied to subtotal plus shipping.
const DefaultTaxRate = 0.13

// Coefficients convert trip distance and parcel weight into a delivery price.
type Coefficients struct {
	DistanceCoefficient float64 `json:"distance_coefficient"`
	WeightCoefficient   float64 `json:"weight_coefficient"`
}

// DefaultCoefficients are used when the remote store cannot be reached and nothing was seen before.
func DefaultCoefficients() Coefficients {
	return Coefficients{DistanceCoefficient: 0.5, WeightCoefficient: 2.0}
}

// Validate rejects non-positive or non-finite coefficients.
func (c Coefficients) Validate() error {
	details := map[string]string{}
	if !positive(c.DistanceCoefficient) {
		details["distance_coefficient"] = "must be a positive number"
	}
	if !positive(c.WeightCoefficient) {
		details["weight_coefficient"] = "must be a positive number"
	}
	if len(details) > 0 {
		return common.NewValidationError("coefficients must be positive numbers", details)
	}
	return nil
}

// Trip carries the inputs of a delivery quote as submitted by a client.
type Trip struct {
	Distance Number `json:"distance"`
	Weight   Number `json:"weight"`
}

// NewTrip builds a Trip from known values.
func NewTrip(distance, weight float64) Trip {
	return Trip{Distance: NumberOf(distance), Weight: NumberOf(weight)}
}

// Validate returns the numeric distance and weight or a validation error.
func (t Trip) Validate() (float64, float64, error) {
	if !t.Distance.Valid || !t.Weight.Valid {
		return 0, 0, common.NewValidationError("distance and weight required", nil)
	}
	distance, weight := t.Distance.Value, t.Weight.Value
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		return 0, 0, common.NewValidationError("distance must be a non-negative number", map[string]string{"distance": "must be >= 0"})
	}
	if !positive(weight) {
		return 0, 0, common.NewValidationError("weight must be a positive number", map[string]string{"weight": "must be > 0"})
	}
	return distance, weight, nil
}

// DeliveryQuote is a computed, not yet committed, delivery price.
type DeliveryQuote struct {
	Distance float64 `json:"distance"`
	Weight   float64 `json:"weight"`
	Price    float64 `json:"price"`
	Source   string  `json:"source,omitempty"`
}

// DeliveryPrice applies the linear pricing formula. Both the remote and local paths must
// produce exactly this value for the same inputs.
func DeliveryPrice(distance, weight float64, c Coefficients) float64 {
	return distance*c.DistanceCoefficient + weight*c.WeightCoefficient
}

// QuoteDelivery validates the trip and prices it with the supplied coefficients.
func QuoteDelivery(trip Trip, c Coefficients) (float64, error) {
	distance, weight, err := trip.Validate()
	if err != nil {
		return 0, err
	}
	return DeliveryPrice(distance, weight, c), nil
}

// Line describes a cart line used for order totals.
type Line struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Totals aggregates computed order components.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shippingFee"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

// Subtotal sums price*quantity over lines, skipping lines without a positive quantity.
func Subtotal(lines []Line) float64 {
	var subtotal float64
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal += l.Price * float64(l.Quantity)
	}
	return subtotal
}

// QuoteOrderTotal computes subtotal, tax on subtotal plus shipping, and the grand total.
func QuoteOrderTotal(lines []Line, shippingFee, taxRate float64) Totals {
	subtotal := Subtotal(lines)
	taxable := subtotal + shippingFee
	tax := taxable * taxRate
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Tax:         tax,
		Total:       taxable + tax,
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
