package todos

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/nestodo/nestodo/pkg/nestodo/auth"
	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"gorm.io/gorm"
)

// MaxTitleLength is the maximum length of a todo title
const MaxTitleLength = 255

// Handler handles todo-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new todos handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateTodoRequest represents the request to create a todo
type CreateTodoRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	GroupID     uint       `json:"group_id"`
	ParentID    *uint      `json:"parent_id"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ownedGroup fetches a group by ID scoped to the acting user, so groups
// owned by other users are invisible.
func (h *Handler) ownedGroup(groupID uint, userID uint) (*models.Group, error) {
	var group models.Group
	if err := h.db.Where("owner_id = ?", userID).First(&group, groupID).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// findOwned resolves a todo through its containing group. Todos in groups
// the acting user does not own are invisible, not forbidden.
func (h *Handler) findOwned(todoID uint64, userID uint) (*models.Todo, error) {
	var todo models.Todo
	if err := h.db.First(&todo, todoID).Error; err != nil {
		return nil, err
	}
	if _, err := h.ownedGroup(todo.GroupID, userID); err != nil {
		return nil, err
	}
	return &todo, nil
}

// validateTitle checks the todo title rules
func validateTitle(title string) (string, bool) {
	if strings.TrimSpace(title) == "" {
		return "The title field is required.", false
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "The title field must not be greater than 255 characters.", false
	}
	return "", true
}

// Index returns the root todos of a group with their direct children
// attached. Completed roots are excluded unless the "completed" query
// parameter is present; the filter applies to roots only, never to the
// nested children.
// @Summary List todos for a group
// @Description Get the root todos of a group, each with one level of children
// @Tags todos
// @Produce json
// @Param id path int true "Group ID"
// @Param completed query string false "Include completed root todos"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id}/todos [get]
func (h *Handler) Index(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	group, err := h.ownedGroup(uint(groupID), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	query := h.db.Where("group_id = ? AND parent_id IS NULL", group.ID).Preload("Children")
	if _, includeCompleted := c.GetQuery("completed"); !includeCompleted {
		query = query.Where("completed_at IS NULL")
	}

	roots := []models.Todo{}
	if err := query.Order("created_at").Find(&roots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch todos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group": group,
		"data":  roots,
	})
}

// Create creates a new todo in a group, optionally nested under a parent
// @Summary Create a todo
// @Description Create a new todo in one of the current user's groups
// @Tags todos
// @Accept json
// @Produce json
// @Param request body CreateTodoRequest true "Todo details"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /todos [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	errs := gin.H{}
	if msg, ok := validateTitle(req.Title); !ok {
		errs["title"] = msg
	}
	if req.GroupID == 0 {
		errs["group_id"] = "The group id field is required."
	} else if _, err := h.ownedGroup(req.GroupID, userID); err != nil {
		errs["group_id"] = "The selected group id is invalid."
	}
	if req.ParentID != nil {
		var parent models.Todo
		if err := h.db.First(&parent, *req.ParentID).Error; err != nil {
			errs["parent_id"] = "The selected parent id is invalid."
		} else if parent.GroupID != req.GroupID {
			errs["parent_id"] = "The parent id must belong to the same group."
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	todo := models.Todo{
		Title:       req.Title,
		Description: req.Description,
		GroupID:     req.GroupID,
		ParentID:    req.ParentID,
		CompletedAt: req.CompletedAt,
	}
	if err := h.db.Create(&todo).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create todo"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Todo created successfully.",
		"data":    todo,
	})
}

// Get returns a todo with its direct children, its group, and the ordered
// list of ancestors from the tree root down to (excluding) the todo itself
// @Summary Get a todo
// @Description Get a todo with children, group, and ancestor chain
// @Tags todos
// @Produce json
// @Param id path int true "Todo ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Todo not found"
// @Security BearerAuth
// @Router /todos/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	todoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid todo ID"})
		return
	}

	todo, err := h.findOwned(todoID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}

	if err := h.db.Preload("Children").Preload("Group").First(todo, todo.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch todo"})
		return
	}

	ancestors, err := Ancestors(h.db, todo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve ancestors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      todo,
		"ancestors": ancestors,
	})
}

// Update partially updates a todo: fields absent from the request keep
// their stored values, and description may be set to null explicitly
// @Summary Update a todo
// @Description Partially update a todo's title, description, parent, group, or completion timestamp
// @Tags todos
// @Accept json
// @Produce json
// @Param id path int true "Todo ID"
// @Param request body map[string]interface{} true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Todo not found"
// @Failure 422 {object} map[string]interface{} "Validation error"
// @Security BearerAuth
// @Router /todos/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	todoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid todo ID"})
		return
	}

	todo, err := h.findOwned(todoID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}

	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	errs := gin.H{}
	updates := map[string]interface{}{}
	targetGroupID := todo.GroupID

	if raw, ok := input["group_id"]; ok {
		if id, isNum := raw.(float64); isNum && id > 0 {
			if _, err := h.ownedGroup(uint(id), userID); err != nil {
				errs["group_id"] = "The selected group id is invalid."
			} else {
				targetGroupID = uint(id)
				updates["group_id"] = uint(id)
			}
		} else {
			errs["group_id"] = "The selected group id is invalid."
		}
	}

	if raw, ok := input["title"]; ok {
		title, isStr := raw.(string)
		if !isStr {
			errs["title"] = "The title field is required."
		} else if msg, ok := validateTitle(title); !ok {
			errs["title"] = msg
		} else {
			updates["title"] = title
		}
	}

	if raw, ok := input["description"]; ok {
		if raw == nil {
			updates["description"] = nil
		} else if description, isStr := raw.(string); isStr {
			updates["description"] = description
		} else {
			errs["description"] = "The description field must be a string."
		}
	}

	if raw, ok := input["parent_id"]; ok {
		if raw == nil {
			updates["parent_id"] = nil
		} else if id, isNum := raw.(float64); isNum && id > 0 {
			var parent models.Todo
			if err := h.db.First(&parent, uint(id)).Error; err != nil {
				errs["parent_id"] = "The selected parent id is invalid."
			} else if parent.GroupID != targetGroupID {
				errs["parent_id"] = "The parent id must belong to the same group."
			} else {
				updates["parent_id"] = uint(id)
			}
		} else {
			errs["parent_id"] = "The selected parent id is invalid."
		}
	} else if targetGroupID != todo.GroupID && todo.ParentID != nil {
		// Moving a nested todo between groups would strand it under a
		// parent in the old group
		errs["group_id"] = "The group id cannot be changed while the todo is nested under a parent."
	}

	if raw, ok := input["completed_at"]; ok {
		if raw == nil {
			updates["completed_at"] = nil
		} else if value, isStr := raw.(string); isStr {
			completedAt, err := time.Parse(time.RFC3339, value)
			if err != nil {
				errs["completed_at"] = "The completed at field must be a valid date."
			} else {
				updates["completed_at"] = completedAt
			}
		} else {
			errs["completed_at"] = "The completed at field must be a valid date."
		}
	}

	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	if len(updates) > 0 {
		err := h.db.Transaction(func(tx *gorm.DB) error {
			if targetGroupID != todo.GroupID {
				// The subtree moves with the todo, so no child is left
				// pointing at a parent in another group
				ids, err := DescendantIDs(tx, todo.ID)
				if err != nil {
					return err
				}
				if len(ids) > 0 {
					if err := tx.Model(&models.Todo{}).Where("id IN ?", ids).Update("group_id", targetGroupID).Error; err != nil {
						return err
					}
				}
			}
			return tx.Model(todo).Updates(updates).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
			return
		}
	}

	h.db.First(todo, todo.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Todo updated successfully.",
		"data":    todo,
	})
}

// Delete removes a todo and every descendant nested under it
// @Summary Delete a todo
// @Description Delete a todo and its whole subtree
// @Tags todos
// @Produce json
// @Param id path int true "Todo ID"
// @Success 200 {object} map[string]string "Todo deleted"
// @Failure 404 {object} map[string]string "Todo not found"
// @Security BearerAuth
// @Router /todos/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	todoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid todo ID"})
		return
	}

	todo, err := h.findOwned(todoID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		return deleteSubtree(tx, todo)
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete todo"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully."})
}

// ToggleCompleted flips a todo's completion state: an incomplete todo gets
// the current instant as its completion timestamp, a completed one goes
// back to null. Concurrent togglers race; last write wins.
// @Summary Toggle todo completion
// @Description Mark an incomplete todo completed, or a completed one incomplete
// @Tags todos
// @Produce json
// @Param id path int true "Todo ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Todo not found"
// @Security BearerAuth
// @Router /todos/{id}/toggle [patch]
func (h *Handler) ToggleCompleted(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	todoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid todo ID"})
		return
	}

	todo, err := h.findOwned(todoID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}

	wasIncomplete := !todo.IsCompleted()
	var completedAt interface{}
	if wasIncomplete {
		completedAt = time.Now()
	} else {
		completedAt = nil
	}

	if err := h.db.Model(todo).Update("completed_at", completedAt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
		return
	}

	h.db.First(todo, todo.ID)

	message := "Todo marked as incomplete"
	if wasIncomplete {
		message = "Todo marked as completed"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    todo,
	})
}

// RegisterRoutes registers todo routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups/:id/todos", h.Index)
	rg.POST("/todos", h.Create)
	rg.GET("/todos/:id", h.Get)
	rg.PATCH("/todos/:id", h.Update)
	rg.DELETE("/todos/:id", h.Delete)
	rg.PATCH("/todos/:id/toggle", h.ToggleCompleted)
}
