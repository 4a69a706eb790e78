package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nestodo/nestodo/pkg/nestodo/auth"
	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	SystemRole string `json:"system_role"`
	CreatedAt  string `json:"created_at"`
	GroupCount int64  `json:"group_count"`
	TodoCount  int64  `json:"todo_count"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers      int64 `json:"total_users"`
	TotalGroups     int64 `json:"total_groups"`
	TotalTodos      int64 `json:"total_todos"`
	CompletedTodos  int64 `json:"completed_todos"`
	IncompleteTodos int64 `json:"incomplete_todos"`
	AdminUsers      int64 `json:"admin_users"`
	ActiveTokens    int64 `json:"active_tokens"`
}

// userCounts returns the group and todo counts for a user
func (h *Handler) userCounts(userID uint) (int64, int64) {
	var groupCount, todoCount int64
	h.db.Model(&models.Group{}).Where("owner_id = ?", userID).Count(&groupCount)
	h.db.Model(&models.Todo{}).
		Joins("JOIN groups ON groups.id = todos.group_id").
		Where("groups.owner_id = ? AND groups.deleted_at IS NULL", userID).
		Count(&todoCount)
	return groupCount, todoCount
}

func (h *Handler) userResponse(user *models.User) UserResponse {
	groupCount, todoCount := h.userCounts(user.ID)
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		SystemRole: string(user.SystemRole),
		CreatedAt:  user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		GroupCount: groupCount,
		TodoCount:  todoCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Description Get all users with group and todo counts (admin only)
// @Tags admin
// @Produce json
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")

	// Optional search by email or name
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	// Optional filter by role
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = h.userResponse(&users[i])
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get a user
// @Description Get a user with group and todo counts (admin only)
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, h.userResponse(&user))
}

// DeleteUser deletes a user along with every group they own and all todos
// in those groups (admin only)
// @Summary Delete a user
// @Description Delete a user, cascading to owned groups and their todos (admin only)
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string "User deleted"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Prevent admin from deleting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	// Delete user and related data in a transaction
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var groupIDs []uint
		if err := tx.Model(&models.Group{}).Where("owner_id = ?", user.ID).Pluck("id", &groupIDs).Error; err != nil {
			return err
		}
		if len(groupIDs) > 0 {
			if err := tx.Where("group_id IN ?", groupIDs).Delete(&models.Todo{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Group{}, groupIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.AccessToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetStats returns system-wide statistics (admin only)
// @Summary Get statistics
// @Description Get system-wide user, group, and todo counts (admin only)
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Group{}).Count(&stats.TotalGroups)
	h.db.Model(&models.Todo{}).Count(&stats.TotalTodos)
	h.db.Model(&models.AccessToken{}).Count(&stats.ActiveTokens)

	h.db.Model(&models.Todo{}).Where("completed_at IS NOT NULL").Count(&stats.CompletedTodos)
	h.db.Model(&models.Todo{}).Where("completed_at IS NULL").Count(&stats.IncompleteTodos)
	h.db.Model(&models.User{}).Where("system_role = ?", "admin").Count(&stats.AdminUsers)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.DELETE("/users/:id", h.DeleteUser)
}
