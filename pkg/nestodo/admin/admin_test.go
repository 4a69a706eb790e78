package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nestodo/nestodo/pkg/nestodo/auth"
	"github.com/nestodo/nestodo/pkg/nestodo/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.SystemRole) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		SystemRole:   role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)

	adminGroup := r.Group("/admin")
	adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
	handler.RegisterRoutes(adminGroup)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return "Bearer " + token
}

func doRequest(router *gin.Engine, user models.User, method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestListUsersRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", models.SystemRoleUser)

	resp := doRequest(router, user, "GET", "/admin/users")

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.SystemRoleAdmin)
	user := createTestUser(t, db, "user@example.com", models.SystemRoleUser)

	group := models.Group{Name: "Inbox", OwnerID: user.ID}
	db.Create(&group)
	db.Create(&models.Todo{Title: "One", GroupID: group.ID})
	db.Create(&models.Todo{Title: "Two", GroupID: group.ID})

	resp := doRequest(router, admin, "GET", "/admin/users")

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var users []UserResponse
	json.Unmarshal(resp.Body.Bytes(), &users)

	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.Email == "user@example.com" {
			if u.GroupCount != 1 {
				t.Errorf("Expected 1 group, got %d", u.GroupCount)
			}
			if u.TodoCount != 2 {
				t.Errorf("Expected 2 todos, got %d", u.TodoCount)
			}
		}
	}
}

func TestListUsersFilterByRole(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.SystemRoleAdmin)
	createTestUser(t, db, "user@example.com", models.SystemRoleUser)

	resp := doRequest(router, admin, "GET", "/admin/users?role=admin")

	var users []UserResponse
	json.Unmarshal(resp.Body.Bytes(), &users)

	if len(users) != 1 {
		t.Fatalf("Expected 1 admin user, got %d", len(users))
	}
	if users[0].SystemRole != "admin" {
		t.Errorf("Expected admin role, got %s", users[0].SystemRole)
	}
}

func TestGetUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.SystemRoleAdmin)

	resp := doRequest(router, admin, "GET", "/admin/users/999")

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.SystemRoleAdmin)
	user := createTestUser(t, db, "doomed@example.com", models.SystemRoleUser)

	group := models.Group{Name: "Inbox", OwnerID: user.ID}
	db.Create(&group)
	root := models.Todo{Title: "Root", GroupID: group.ID}
	db.Create(&root)
	db.Create(&models.Todo{Title: "Child", GroupID: group.ID, ParentID: &root.ID})
	db.Create(&models.AccessToken{UserID: user.ID, TokenHash: "hash", Prefix: "prefix"})

	resp := doRequest(router, admin, "DELETE", "/admin/users/2")

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Error("Expected user deleted")
	}
	db.Model(&models.Group{}).Where("owner_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Error("Expected groups deleted")
	}
	db.Model(&models.Todo{}).Where("group_id = ?", group.ID).Count(&count)
	if count != 0 {
		t.Error("Expected todos deleted")
	}
	db.Model(&models.AccessToken{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Error("Expected access tokens deleted")
	}
}

func TestDeleteSelf(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.SystemRoleAdmin)

	resp := doRequest(router, admin, "DELETE", "/admin/users/1")

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}

	var count int64
	db.Model(&models.User{}).Where("id = ?", admin.ID).Count(&count)
	if count != 1 {
		t.Error("Expected admin to remain")
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.SystemRoleAdmin)
	user := createTestUser(t, db, "user@example.com", models.SystemRoleUser)

	group := models.Group{Name: "Inbox", OwnerID: user.ID}
	db.Create(&group)
	now := time.Now()
	db.Create(&models.Todo{Title: "Done", GroupID: group.ID, CompletedAt: &now})
	db.Create(&models.Todo{Title: "Open", GroupID: group.ID})

	resp := doRequest(router, admin, "GET", "/admin/stats")

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var stats StatsResponse
	json.Unmarshal(resp.Body.Bytes(), &stats)

	if stats.TotalUsers != 2 {
		t.Errorf("Expected 2 users, got %d", stats.TotalUsers)
	}
	if stats.TotalGroups != 1 {
		t.Errorf("Expected 1 group, got %d", stats.TotalGroups)
	}
	if stats.TotalTodos != 2 {
		t.Errorf("Expected 2 todos, got %d", stats.TotalTodos)
	}
	if stats.CompletedTodos != 1 {
		t.Errorf("Expected 1 completed todo, got %d", stats.CompletedTodos)
	}
	if stats.IncompleteTodos != 1 {
		t.Errorf("Expected 1 incomplete todo, got %d", stats.IncompleteTodos)
	}
	if stats.AdminUsers != 1 {
		t.Errorf("Expected 1 admin user, got %d", stats.AdminUsers)
	}
}
