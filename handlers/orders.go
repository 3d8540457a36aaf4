package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-management-service/internal/apperr"
	"order-management-service/internal/auth"
	"order-management-service/internal/orders"
	"order-management-service/internal/stores/kafka"
	"order-management-service/pkg/ctxmanage"
)

type createOrderRequest struct {
	Items []orders.NewItem `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.oConf.CreateOrder(c.Request.Context(), s.UserID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	event := kafka.OrderCreatedEvent{
		OrderID:    view.ID,
		CustomerID: view.Customer.ID,
		Status:     string(view.Status),
		Total:      view.Total,
		Items:      make([]kafka.OrderLineItem, 0, len(view.Items)),
		CreatedAt:  view.CreatedAt.UTC(),
	}
	for _, it := range view.Items {
		event.Items = append(event.Items, kafka.OrderLineItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.ProductPrice})
	}
	h.publish(ctxmanage.GetTraceIdOfRequest(c), kafka.TopicOrderCreated, view.ID, event)

	c.JSON(http.StatusCreated, gin.H{"message": "Order created successfully", "order": view})
}

// MyOrders lists the caller's orders: a customer's own orders, or for staff
// the orders containing their products.
func (h *Handler) MyOrders(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var (
		list []orders.View
		err  error
	)
	switch s.Role {
	case auth.RoleCustomer:
		list, err = h.oConf.ListForCustomer(c.Request.Context(), s.UserID)
	case auth.RoleStaff:
		list, err = h.oConf.ListForStaff(c.Request.Context(), s.UserID)
	default:
		err = apperr.New(apperr.KindAuthorization, "Access denied.")
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	switch s.Role {
	case auth.RoleCustomer:
		view, err := h.oConf.GetForCustomer(c.Request.Context(), s.UserID, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": view})
	case auth.RoleStaff:
		h.StaffOrder(c)
	default:
		respondError(c, apperr.New(apperr.KindAuthorization, "Access denied."))
	}
}

func (h *Handler) StaffOrders(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	list, err := h.oConf.ListForStaff(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Orders containing your products", "orders": list})
}

func (h *Handler) StaffOrder(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	detail, err := h.oConf.DetailForStaff(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order details retrieved successfully", "order": detail})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Status == "" {
		respondError(c, apperr.New(apperr.KindValidation, "Status is required."))
		return
	}

	summary, err := h.oConf.UpdateStatus(c.Request.Context(), s.UserID, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	h.publishStatusChange(c, s, summary)
	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated to '" + string(summary.Status) + "' successfully",
		"order":   summary,
	})
}

func (h *Handler) LockOrder(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	summary, err := h.oConf.Lock(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.publishStatusChange(c, s, summary)
	c.JSON(http.StatusOK, gin.H{"message": "Order locked successfully", "order": summary})
}

func (h *Handler) UnlockOrder(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	summary, err := h.oConf.Unlock(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.publishStatusChange(c, s, summary)
	c.JSON(http.StatusOK, gin.H{"message": "Order unlocked successfully", "order": summary})
}

func (h *Handler) publishStatusChange(c *gin.Context, s auth.Session, summary orders.StaffSummary) {
	h.publish(ctxmanage.GetTraceIdOfRequest(c), kafka.TopicOrderStatusChanged, summary.OrderID, kafka.OrderStatusChangedEvent{
		OrderID:        summary.OrderID,
		StaffID:        s.UserID,
		PreviousStatus: string(summary.PreviousStatus),
		Status:         string(summary.Status),
		Locked:         summary.Locked,
		UpdatedAt:      summary.UpdatedAt.UTC(),
	})
}
