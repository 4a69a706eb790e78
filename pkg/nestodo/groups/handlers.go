package groups

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/nestodo/nestodo/pkg/nestodo/auth"
	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"gorm.io/gorm"
)

// MaxNameLength is the maximum length of a group name
const MaxNameLength = 255

// Handler handles group-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GroupRequest represents the request to create or rename a group
type GroupRequest struct {
	Name string `json:"name"`
}

// validateName checks the group name rules: present, within length, and
// unique among the acting user's groups. excludeID skips the record being
// updated in the uniqueness check. An empty message means the name is
// valid; a non-nil error means the check itself failed.
func (h *Handler) validateName(name string, ownerID uint, excludeID uint) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "The name field is required.", nil
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "The name field must not be greater than 255 characters.", nil
	}

	query := h.db.Model(&models.Group{}).Where("owner_id = ? AND name = ?", ownerID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "The name has already been taken.", nil
	}

	return "", nil
}

// findOwned fetches a group by ID scoped to the acting user. Groups owned
// by other users are invisible, not forbidden.
func (h *Handler) findOwned(groupID uint64, ownerID uint) (*models.Group, error) {
	var group models.Group
	if err := h.db.Where("owner_id = ?", ownerID).First(&group, groupID).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// List returns all groups owned by the current user
// @Summary List groups
// @Description Get all groups owned by the current user
// @Tags groups
// @Produce json
// @Success 200 {array} models.Group
// @Security BearerAuth
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var groups []models.Group
	if err := h.db.Where("owner_id = ?", userID).Order("created_at").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	c.JSON(http.StatusOK, groups)
}

// Create creates a new group owned by the current user
// @Summary Create a group
// @Description Create a new group with the current user as owner
// @Tags groups
// @Accept json
// @Produce json
// @Param request body GroupRequest true "Group details"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.validateName(req.Name, userID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate group name"})
		return
	}
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"name": msg}})
		return
	}

	group := models.Group{
		Name:    req.Name,
		OwnerID: userID,
	}
	if err := h.db.Create(&group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "New group has been created.",
		"data":    group,
	})
}

// Get returns a specific group owned by the current user
// @Summary Get a group
// @Description Get details of a specific group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} models.Group
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	group, err := h.findOwned(groupID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	c.JSON(http.StatusOK, group)
}

// Update renames a group owned by the current user
// @Summary Update a group
// @Description Rename a group (owner only)
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body GroupRequest true "Updated group details"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Group not found"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /groups/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	group, err := h.findOwned(groupID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.validateName(req.Name, userID, group.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate group name"})
		return
	}
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"name": msg}})
		return
	}

	group.Name = req.Name
	if err := h.db.Save(group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Group has been updated.",
		"data":    group,
	})
}

// Delete deletes a group and every todo it contains
// @Summary Delete a group
// @Description Delete a group and all of its todos (owner only)
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string "Group deleted"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	group, err := h.findOwned(groupID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	// The group and its whole todo tree go together or not at all
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.Todo{}).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group has been deleted."})
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
