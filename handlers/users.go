package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"order-management-service/internal/apperr"
	"order-management-service/internal/auth"
	"order-management-service/internal/users"
)

type userResponse struct {
	ID       string    `json:"id,omitempty"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
}

func (h *Handler) Register(c *gin.Context) {
	var nu users.NewUser
	if !bindJSON(c, &nu) {
		return
	}

	if err := h.validate.Struct(nu); err != nil {
		respondError(c, validationError(err))
		return
	}

	u, err := h.uConf.InsertUser(c.Request.Context(), nu)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role},
	})
}

// validationError turns the first failed field rule into a readable message.
func validationError(err error) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, err, http.StatusText(http.StatusBadRequest))
	}

	vErr := vErrs[0]
	switch vErr.Tag() {
	case "required":
		return apperr.Wrap(apperr.KindValidation, err, vErr.Field()+" value missing")
	case "min":
		return apperr.Wrap(apperr.KindValidation, err, vErr.Field()+" must be at least "+vErr.Param()+" characters")
	case "max":
		return apperr.Wrap(apperr.KindValidation, err, vErr.Field()+" must be at most "+vErr.Param()+" characters")
	case "gte":
		return apperr.Wrap(apperr.KindValidation, err, vErr.Field()+" must not be negative")
	case "email":
		return apperr.Wrap(apperr.KindValidation, err, "Email is not valid")
	case "oneof":
		return apperr.Wrap(apperr.KindValidation, err, vErr.Field()+" must be one of: "+vErr.Param())
	default:
		return apperr.Wrap(apperr.KindValidation, err, http.StatusText(http.StatusBadRequest))
	}
}

func (h *Handler) Login(c *gin.Context) {
	var creds users.Credentials
	if !bindJSON(c, &creds) {
		return
	}

	u, err := h.uConf.Authenticate(c.Request.Context(), creds.Email, creds.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, _, err := h.keys.GenerateToken(auth.Identity{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse{Username: u.Username, Email: u.Email, Role: u.Role},
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (h *Handler) Logout(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := h.revoker.Revoke(c.Request.Context(), s.TokenID, s.ExpiresAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) Profile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	u, err := h.uConf.GetUserByID(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"username":  u.Username,
		"createdAt": u.CreatedAt,
	})
}
