package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"speedguard/models"
	"speedguard/services"
)

// AuthHandler manages operator accounts for the alert dashboard. Telemetry
// ingestion does not authenticate; only the query surface does.
type AuthHandler struct {
	db   *gorm.DB
	auth *services.AuthService
}

func NewAuthHandler(db *gorm.DB, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{db: db, auth: auth}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// session is what both register and login hand back: a token plus the
// account it belongs to (the model never serializes the password).
type session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an operator account. Every self-registered account gets
// the operator role; admin promotion happens outside the API.
func (h *AuthHandler) Register(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := models.User{
		Email:    normalizeEmail(req.Email),
		Password: hash,
		Role:     services.RoleOperator,
	}
	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	h.respondWithSession(c, http.StatusCreated, user)
}

// Login verifies credentials and opens a session. Lookup and password
// failures are indistinguishable to the caller.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if err != nil || !h.auth.VerifyPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.respondWithSession(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithSession(c *gin.Context, code int, user models.User) {
	token, err := h.auth.IssueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(code, session{Token: token, User: user})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
