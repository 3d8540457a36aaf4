package cart

import (
	"order-management-service/internal/products"
	"order-management-service/internal/scope"
)

// Compose joins a cart with already fetched products. A nil cart yields the
// empty view for userID. Lines whose product has disappeared are kept and
// marked unavailable so the customer can remove them.
func Compose(userID string, c *Cart, catalog map[string]products.Product) View {
	v := View{UserID: userID, Items: make([]LineView, 0)}
	if c == nil {
		return v
	}
	v.ID = c.ID

	var total float64
	for _, it := range c.Items {
		line := LineView{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity}
		if p, ok := catalog[it.ProductID]; ok {
			line.Name = p.Name
			line.Description = p.Description
			line.Category = p.Category
			line.Price = p.Price
			line.Stock = p.Stock
			line.InStock = p.Stock >= it.Quantity
			line.Available = true
			line.Subtotal = scope.Round2(p.Price * float64(it.Quantity))
			total += p.Price * float64(it.Quantity)
		}
		v.TotalItems += it.Quantity
		v.Items = append(v.Items, line)
	}
	v.Total = scope.Round2(total)
	return v
}
