package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turnoverhq/turnover-api/pkg/auth"
	"github.com/turnoverhq/turnover-api/pkg/database"
	"github.com/turnoverhq/turnover-api/pkg/service"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB         *gorm.DB
	Scheduling *service.Scheduling
}

// NewHandler wires a handler over a database connection.
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		DB:         db,
		Scheduling: service.New(db),
	}
}

// AuthMiddleware verifies the JWT token for coordinator routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// SyncKeyMiddleware verifies the HMAC-signed key the calendar-sync
// collaborator presents on ingestion routes
func (h *Handler) SyncKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sync key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		name, err := auth.VerifySyncKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid sync key signature"})
			c.Abort()
			return
		}

		// Fetch or create the key record so usage is attributable
		var syncKey database.SyncKey
		h.DB.Where(database.SyncKey{Key: key}).FirstOrCreate(&syncKey, database.SyncKey{
			Key:  key,
			Name: name,
		})

		now := time.Now()
		h.DB.Model(&syncKey).UpdateColumn("last_used", &now)

		c.Set("syncKey", &syncKey)
		c.Next()
	}
}

// Login handles coordinator login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.AdminUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey mints a new sync key for an ingestion collaborator
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	key := auth.GenerateSyncKey(req.Name)

	preview := "****"
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	}

	syncKey := database.SyncKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
	}

	if err := h.DB.Create(&syncKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all sync keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.SyncKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes a sync key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.SyncKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// GetUsage returns ingestion stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.SyncUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// RecordUsage records ingestion volume in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, obligationCount int) {
	keyRaw, exists := c.Get("syncKey")
	if !exists {
		return
	}
	syncKey := keyRaw.(*database.SyncKey)

	today := time.Now().Format("2006-01-02")

	// OnConflict gives a single-query upsert on both Postgres and SQLite
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":     gorm.Expr("request_count + ?", 1),
			"total_obligations": gorm.Expr("total_obligations + ?", obligationCount),
		}),
	}).Create(&database.SyncUsage{
		KeyID:            syncKey.ID,
		Date:             today,
		RequestCount:     1,
		TotalObligations: obligationCount,
	})
}
