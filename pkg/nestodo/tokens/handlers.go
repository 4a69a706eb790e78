package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nestodo/nestodo/pkg/nestodo/auth"
	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"gorm.io/gorm"
)

const (
	// TokenLength is the length of the generated token in bytes (32 bytes = 64 hex chars)
	TokenLength = 32
	// PrefixLength is the number of characters kept as prefix for identification
	PrefixLength = 8
)

// Handler handles personal access token requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tokens handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TokenResponse represents an access token in responses
type TokenResponse struct {
	ID         uint       `json:"id"`
	Prefix     string     `json:"prefix"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateTokenRequest represents a request to create an access token
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// CreateTokenResponse includes the plaintext token (only shown once)
type CreateTokenResponse struct {
	ID        uint      `json:"id"`
	Token     string    `json:"token"`
	Prefix    string    `json:"prefix"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// generateToken generates a new random access token
func generateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashToken creates a SHA-256 hash of an access token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Create creates a new access token for the authenticated user
// @Summary Create an access token
// @Description Create a personal access token; the plaintext value is only returned once
// @Tags tokens
// @Accept json
// @Produce json
// @Param request body CreateTokenRequest true "Token details"
// @Success 201 {object} CreateTokenResponse
// @Security BearerAuth
// @Router /tokens [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Name is optional, so binding might fail with empty body
		req.Name = ""
	}

	token, err := generateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	accessToken := models.AccessToken{
		UserID:    userID,
		TokenHash: hashToken(token),
		Prefix:    token[:PrefixLength],
		Name:      req.Name,
	}

	if err := h.db.Create(&accessToken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	// Return the full token - this is the only time it's visible
	c.JSON(http.StatusCreated, CreateTokenResponse{
		ID:        accessToken.ID,
		Token:     token,
		Prefix:    accessToken.Prefix,
		Name:      accessToken.Name,
		CreatedAt: accessToken.CreatedAt,
	})
}

// List returns all access tokens for the authenticated user
// @Summary List access tokens
// @Description Get the current user's access tokens (prefixes only)
// @Tags tokens
// @Produce json
// @Success 200 {array} TokenResponse
// @Security BearerAuth
// @Router /tokens [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var accessTokens []models.AccessToken
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&accessTokens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tokens"})
		return
	}

	responses := make([]TokenResponse, len(accessTokens))
	for i, token := range accessTokens {
		responses[i] = TokenResponse{
			ID:         token.ID,
			Prefix:     token.Prefix,
			Name:       token.Name,
			LastUsedAt: token.LastUsedAt,
			CreatedAt:  token.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// Delete revokes an access token
// @Summary Revoke an access token
// @Description Revoke one of the current user's access tokens
// @Tags tokens
// @Produce json
// @Param id path int true "Token ID"
// @Success 200 {object} map[string]string "Token revoked"
// @Failure 404 {object} map[string]string "Token not found"
// @Security BearerAuth
// @Router /tokens/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tokenID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	var accessToken models.AccessToken
	if err := h.db.Where("id = ? AND user_id = ?", tokenID, userID).First(&accessToken).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	if err := h.db.Delete(&accessToken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token revoked"})
}

// ValidateToken checks if an access token is valid and returns its record
func ValidateToken(db *gorm.DB, token string) (*models.AccessToken, error) {
	var accessToken models.AccessToken
	if err := db.Where("token_hash = ?", hashToken(token)).First(&accessToken).Error; err != nil {
		return nil, err
	}
	return &accessToken, nil
}

// touchLastUsed updates the last_used_at timestamp for an access token
func touchLastUsed(db *gorm.DB, tokenID uint) {
	db.Model(&models.AccessToken{}).Where("id = ?", tokenID).Update("last_used_at", time.Now())
}

// CombinedAuthMiddleware returns a middleware that authenticates via JWT or
// access token. Both arrive as "Bearer <value>"; JWTs contain dots, access
// tokens are hex strings without dots.
func CombinedAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token := parts[1]

		if strings.Contains(token, ".") {
			claims, err := auth.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}

			c.Set(auth.ContextKeyUserID, claims.UserID)
			c.Set(auth.ContextKeyEmail, claims.Email)
			c.Set(auth.ContextKeySystemRole, claims.SystemRole)
			c.Next()
			return
		}

		accessToken, err := ValidateToken(db, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
			c.Abort()
			return
		}

		// Update last used (fire and forget)
		go touchLastUsed(db, accessToken.ID)

		var user models.User
		if err := db.First(&user, accessToken.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		c.Set(auth.ContextKeyUserID, user.ID)
		c.Set(auth.ContextKeyEmail, user.Email)
		c.Set(auth.ContextKeySystemRole, string(user.SystemRole))

		c.Next()
	}
}

// RegisterRoutes registers access token routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tokens", h.Create)
	rg.GET("/tokens", h.List)
	rg.DELETE("/tokens/:id", h.Delete)
}
