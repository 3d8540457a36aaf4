// Package scope decides what part of an order a staff member may see and act
// on: the lines whose product that staff member owns.
package scope

import (
	"math"

	"order-management-service/internal/apperr"
)

// Line is an order line with a resolvable owner.
type Line interface {
	LineProductID() string
	LineQuantity() int
	LineUnitPrice() float64
}

// Owners maps product id to the owning staff id.
type Owners map[string]string

func (o Owners) Owns(staffID string, l Line) bool {
	owner, ok := o[l.LineProductID()]
	return ok && owner == staffID
}

// StaffLines returns the lines owned by staffID, preserving order.
func StaffLines[L Line](lines []L, owners Owners, staffID string) []L {
	out := make([]L, 0, len(lines))
	for _, l := range lines {
		if owners.Owns(staffID, l) {
			out = append(out, l)
		}
	}
	return out
}

// Total is the sum of unit price times quantity, rounded to cents.
func Total[L Line](lines []L) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.LineUnitPrice() * float64(l.LineQuantity())
	}
	return Round2(sum)
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Authorize fails with an authorization error unless staffID owns at least
// one of the lines.
func Authorize[L Line](lines []L, owners Owners, staffID string) error {
	for _, l := range lines {
		if owners.Owns(staffID, l) {
			return nil
		}
	}
	return apperr.New(apperr.KindAuthorization, "You do not have any products in this order.")
}
