package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"order-management-service/internal/apperr"
	"order-management-service/internal/auth"
	"order-management-service/internal/cart"
	"order-management-service/internal/orders"
	"order-management-service/internal/products"
	"order-management-service/internal/users"
	"order-management-service/middleware"
	"order-management-service/pkg/ctxmanage"
	"order-management-service/pkg/logkey"
)

const maxBodyBytes = 64 * 1024

// Publisher delivers domain events. A nil Publisher disables events.
type Publisher interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error
}

type Handler struct {
	keys      *auth.Keys
	revoker   auth.Revoker
	uConf     users.Conf
	pConf     products.Conf
	cConf     cart.Conf
	oConf     orders.Conf
	publisher Publisher
	validate  *validator.Validate
}

func NewHandler(keys *auth.Keys, revoker auth.Revoker, uConf users.Conf, pConf products.Conf,
	cConf cart.Conf, oConf orders.Conf, publisher Publisher) *Handler {
	return &Handler{
		keys:      keys,
		revoker:   revoker,
		uConf:     uConf,
		pConf:     pConf,
		cConf:     cConf,
		oConf:     oConf,
		publisher: publisher,
		validate:  validator.New(),
	}
}

func API(endpointPrefix string, keys *auth.Keys, revoker auth.Revoker, uConf users.Conf, pConf products.Conf,
	cConf cart.Conf, oConf orders.Conf, publisher Publisher) (*gin.Engine, error) {
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode || mode == gin.TestMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys, revoker)
	if err != nil {
		return nil, err
	}
	h := NewHandler(keys, revoker, uConf, pConf, cConf, oConf, publisher)

	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.POST("/auth/user/register", h.Register)
		v1.POST("/auth/user/login", h.Login)
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)
	}

	everyone := []auth.Role{auth.RoleCustomer, auth.RoleStaff}
	secured := r.Group(endpointPrefix, m.Authentication())
	{
		secured.POST("/auth/user/logout", m.Authorize(h.Logout, everyone...))
		secured.GET("/user/profile", m.Authorize(h.Profile, everyone...))

		secured.POST("/products", m.Authorize(h.CreateProduct, auth.RoleStaff))
		secured.PUT("/products/:id", m.Authorize(h.UpdateProduct, auth.RoleStaff))
		secured.DELETE("/products/:id", m.Authorize(h.DeleteProduct, auth.RoleStaff))

		secured.POST("/orders/cart/add-to-cart", m.Authorize(h.AddToCart, auth.RoleCustomer))
		secured.GET("/orders/cart", m.Authorize(h.GetCart, auth.RoleCustomer))
		secured.PUT("/orders/cart/:itemId", m.Authorize(h.UpdateCartItem, auth.RoleCustomer))
		secured.DELETE("/orders/cart/remove/:productId", m.Authorize(h.RemoveCartItem, auth.RoleCustomer))
		secured.DELETE("/orders/cart/clear", m.Authorize(h.ClearCart, auth.RoleCustomer))

		secured.POST("/orders/create", m.Authorize(h.CreateOrder, auth.RoleCustomer))
		secured.GET("/orders/customer/orders", m.Authorize(h.MyOrders, everyone...))
		secured.GET("/orders/:id", m.Authorize(h.GetOrder, everyone...))

		secured.GET("/orders/staff/orders", m.Authorize(h.StaffOrders, auth.RoleStaff))
		secured.GET("/orders/staff/orders/:id", m.Authorize(h.StaffOrder, auth.RoleStaff))
		secured.PATCH("/orders/staff/updateStatus/:id", m.Authorize(h.UpdateStatus, auth.RoleStaff))
		secured.PATCH("/orders/staff/:id/lock", m.Authorize(h.LockOrder, auth.RoleStaff))
		secured.PATCH("/orders/staff/:id/unlock", m.Authorize(h.UnlockOrder, auth.RoleStaff))
	}
	return r, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// respondError writes err in the {"error", "message"} shape. Only the message
// of a typed error reaches the client; anything else becomes a generic 500.
func respondError(c *gin.Context, err error) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	kind := apperr.KindOf(err)

	msg := "Server error"
	var appErr *apperr.Error
	if kind != apperr.KindInternal && errors.As(err, &appErr) {
		msg = appErr.Message
	}

	if kind == apperr.KindInternal {
		slog.Error("request failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
	} else {
		slog.Warn("request rejected", slog.String(logkey.TraceID, traceId),
			slog.String("Kind", kind.String()), slog.String(logkey.ERROR, err.Error()))
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{"error": kind.String(), "message": msg})
}

// bindJSON decodes the request body into v, capping its size. On failure the
// response has already been written.
func bindJSON(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, apperr.New(apperr.KindValidation, "Request body too large."))
			return false
		}
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "Invalid request body."))
		return false
	}
	return true
}

// session returns the caller's session. Routes using it sit behind
// Authentication, so a missing session is a wiring bug.
func session(c *gin.Context) (auth.Session, bool) {
	s, ok := middleware.Session(c)
	if !ok {
		respondError(c, apperr.New(apperr.KindAuthentication, "No token, authorization denied."))
	}
	return s, ok
}

// publish sends event in the background so a slow broker never delays the
// response. Failures are only logged.
func (h *Handler) publish(traceId, topic, key string, event any) {
	if h.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.publisher.ProduceMessage(ctx, topic, []byte(key), data); err != nil {
			slog.Error("failed to produce message", slog.String(logkey.TraceID, traceId),
				slog.String("Topic", topic), slog.String(logkey.ERROR, err.Error()))
			return
		}
		slog.Info("message produced", slog.String(logkey.TraceID, traceId), slog.String("Topic", topic))
	}()
}
