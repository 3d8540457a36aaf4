package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"order-management-service/internal/apperr"
	"order-management-service/internal/products"
)

func (h *Handler) ListProducts(c *gin.Context) {
	f := products.Filter{Name: c.Query("name")}

	if raw := c.Query("category"); raw != "" {
		category, err := products.ParseCategory(raw)
		if err != nil {
			respondError(c, apperr.Wrap(apperr.KindValidation, err, "Unknown category."))
			return
		}
		f.Category = category
	}

	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		respondError(c, err)
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		respondError(c, err)
		return
	}

	list, err := h.pConf.ListProducts(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Newf(apperr.KindValidation, "%s must be a non-negative integer.", key)
	}
	return n, nil
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.pConf.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var np products.NewProduct
	if !bindJSON(c, &np) {
		return
	}
	if err := h.validate.Struct(np); err != nil {
		respondError(c, validationError(err))
		return
	}

	product, err := h.pConf.InsertProduct(c.Request.Context(), s.UserID, np)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var up products.UpdateProduct
	if !bindJSON(c, &up) {
		return
	}
	if err := h.validate.Struct(up); err != nil {
		respondError(c, validationError(err))
		return
	}

	product, err := h.pConf.UpdateProduct(c.Request.Context(), s.UserID, c.Param("id"), up)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := h.pConf.DeleteProduct(c.Request.Context(), s.UserID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
