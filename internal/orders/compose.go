package orders

import (
	"order-management-service/internal/products"
	"order-management-service/internal/scope"
)

// ownersOf derives product ownership from a fetched catalog.
func ownersOf(catalog map[string]products.Product) scope.Owners {
	owners := make(scope.Owners, len(catalog))
	for id, p := range catalog {
		owners[id] = p.StaffID
	}
	return owners
}

func itemView(it Item, catalog map[string]products.Product, owners scope.Owners, staffID string) ItemView {
	v := ItemView{
		ProductID:    it.ProductID,
		ProductPrice: it.UnitPrice,
		Quantity:     it.Quantity,
		Subtotal:     scope.Round2(it.UnitPrice * float64(it.Quantity)),
	}
	if p, ok := catalog[it.ProductID]; ok {
		v.ProductName = p.Name
		v.ProductDescription = p.Description
		v.Category = p.Category
		v.Stock = p.Stock
		v.InStock = p.Stock > 0
	}
	if staffID != "" {
		v.IsStaffProduct = owners.Owns(staffID, it)
	}
	return v
}

func customerOf(o Order, customers map[string]Customer) Customer {
	if c, ok := customers[o.CustomerID]; ok {
		return c
	}
	return Customer{ID: o.CustomerID}
}

// Compose joins an order with its customer and products. When staffID is set
// the lines are annotated with ownership; the item list itself is never
// filtered.
func Compose(o Order, customers map[string]Customer, catalog map[string]products.Product, staffID string) View {
	owners := ownersOf(catalog)
	v := View{
		ID:               o.ID,
		Customer:         customerOf(o, customers),
		Status:           o.Status,
		Locked:           o.Locked,
		PaymentCollected: o.PaymentCollected,
		Items:            make([]ItemView, 0, len(o.Items)),
		Total:            scope.Total(o.Items),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView(it, catalog, owners, staffID))
		v.TotalItems += it.Quantity
	}
	if staffID != "" {
		v.StaffRelatedItems = len(scope.StaffLines(o.Items, owners, staffID))
	}
	return v
}

// ComposeStaffDetail builds the staff view of one order. It fails with an
// authorization error when staffID owns none of the order's products.
func ComposeStaffDetail(o Order, customers map[string]Customer, catalog map[string]products.Product, staffID string) (StaffDetail, error) {
	owners := ownersOf(catalog)
	if err := scope.Authorize(o.Items, owners, staffID); err != nil {
		return StaffDetail{}, err
	}
	mine := scope.StaffLines(o.Items, owners, staffID)

	d := StaffDetail{
		OrderID:           o.ID,
		Customer:          customerOf(o, customers),
		Status:            o.Status,
		Locked:            o.Locked,
		PaymentCollected:  o.PaymentCollected,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		TotalItems:        len(o.Items),
		StaffRelatedItems: len(mine),
		OrderTotal:        scope.Total(o.Items),
		StaffTotal:        scope.Total(mine),
		AllItems:          make([]ItemView, 0, len(o.Items)),
		StaffItems:        make([]ItemView, 0, len(mine)),
	}
	for _, it := range o.Items {
		d.AllItems = append(d.AllItems, itemView(it, catalog, owners, staffID))
	}
	for _, it := range mine {
		d.StaffItems = append(d.StaffItems, itemView(it, catalog, owners, staffID))
	}
	return d, nil
}

func summarize(o Order, customers map[string]Customer, catalog map[string]products.Product, staffID string) StaffSummary {
	c := customerOf(o, customers)
	return StaffSummary{
		OrderID:    o.ID,
		Status:     o.Status,
		Locked:     o.Locked,
		Customer:   c.Username,
		CustomerID: o.CustomerID,
		UpdatedAt:  o.UpdatedAt,
		StaffItems: len(scope.StaffLines(o.Items, ownersOf(catalog), staffID)),
		TotalItems: len(o.Items),
	}
}
