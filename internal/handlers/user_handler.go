package handlers

import (
	"net/http"
	"time"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/services"
	jwtutil "github.com/Dias221467/finance-goals/pkg/jwt"
	"github.com/Dias221467/finance-goals/pkg/middleware"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles HTTP requests related to user operations.
type UserHandler struct {
	Service     *services.UserService
	JWTSecret   string
	TokenExpiry time.Duration
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service *services.UserService, jwtSecret string, tokenExpiry time.Duration) *UserHandler {
	return &UserHandler{
		Service:     service,
		JWTSecret:   jwtSecret,
		TokenExpiry: tokenExpiry,
	}
}

// RegisterUserHandler handles POST /users/register.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("RegisterUserHandler called")
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	createdUser, err := h.Service.RegisterUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "Failed to register user")
		return
	}

	log.WithField("userID", createdUser.ID.Hex()).Info("User registered successfully")
	middleware.WriteJSON(w, http.StatusCreated, createdUser)
}

// VerifyEmailHandler handles GET /users/verify?token=.
func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing token")
		return
	}

	if err := h.Service.VerifyEmail(r.Context(), token); err != nil {
		writeServiceError(w, err, "Failed to verify email")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

// LoginUserHandler handles POST /users/login.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("LoginUserHandler called")
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Service.AuthenticateUser(r.Context(), req)
	if err != nil {
		log.WithFields(log.Fields{
			"email": req.Email,
			"error": err,
		}).Warn("Authentication failed")
		writeServiceError(w, err, "Failed to authenticate user")
		return
	}

	// Generate a JWT token
	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Email, user.Role, h.JWTSecret, h.TokenExpiry)
	if err != nil {
		log.WithError(err).Error("Failed to generate JWT token")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	log.WithField("userID", user.ID.Hex()).Info("User logged in successfully")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// GetMeHandler handles GET /users/me.
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.Service.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to get user")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// UpdateMeHandler handles PATCH /users/me.
func (h *UserHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "Failed to update user")
		return
	}

	log.WithField("userID", user.ID.Hex()).Info("User profile updated")
	middleware.WriteJSON(w, http.StatusOK, user)
}
