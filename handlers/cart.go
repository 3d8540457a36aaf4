package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-management-service/internal/cart"
)

type addToCartRequest struct {
	Items []cart.NewItem `json:"items"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) AddToCart(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req addToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.cConf.AddItems(c.Request.Context(), s.UserID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Items added to cart successfully", "cart": view})
}

func (h *Handler) GetCart(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	view, err := h.cConf.GetCart(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": view})
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.cConf.UpdateQuantity(c.Request.Context(), s.UserID, c.Param("itemId"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart item updated successfully", "cart": view})
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	view, err := h.cConf.RemoveItem(c.Request.Context(), s.UserID, c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart successfully", "cart": view})
}

func (h *Handler) ClearCart(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := h.cConf.Clear(c.Request.Context(), s.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully"})
}
