package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/gradebot_v1/internal/models"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/utils"
)

// RosterController exposes roster provisioning and inspection to staff.
// Binding itself stays with the bot; this surface never writes
// platform_user_id.
type RosterController struct {
	DB    *gorm.DB
	Store *store.Store
}

func (r *RosterController) ListGroups(c *gin.Context) {
	var groups []models.Group
	if err := r.DB.Order("name").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, groups)
}

type createGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

func (r *RosterController) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	grp, err := r.Store.CreateGroup(req.Name)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "group already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, grp)
}

type identityResponse struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"display_name"`
	RosterNumber   *string `json:"roster_number"`
	PlatformUserID *string `json:"platform_user_id"`
	GroupID        string  `json:"group_id"`
	Bound          bool    `json:"bound"`
}

func (r *RosterController) ListIdentities(c *gin.Context) {
	q := r.DB.Model(&models.Identity{}).Order("display_name")
	if g := c.Query("group_id"); g != "" {
		q = q.Where("group_id = ?", g)
	}
	var identities []models.Identity
	if err := q.Find(&identities).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]identityResponse, 0, len(identities))
	for _, i := range identities {
		out = append(out, identityResponse{
			ID:             i.ID,
			DisplayName:    i.DisplayName,
			RosterNumber:   i.RosterNumber,
			PlatformUserID: i.PlatformUserID,
			GroupID:        i.GroupID,
			Bound:          i.Bound(),
		})
	}
	c.JSON(http.StatusOK, out)
}

type createIdentityRequest struct {
	DisplayName  string `json:"display_name" binding:"required"`
	RosterNumber string `json:"roster_number" binding:"required"`
	GroupName    string `json:"group_name" binding:"required"`
	Secret       string `json:"secret" binding:"required,min=4"`
}

// CreateIdentity provisions one roster row (the per-row equivalent of a
// spreadsheet import). The secret is stored hashed.
func (r *RosterController) CreateIdentity(c *gin.Context) {
	var req createIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grp, err := r.Store.GetOrCreateGroup(req.GroupName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	hash, err := utils.HashPassword(req.Secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash secret"})
		return
	}

	identity := models.Identity{
		DisplayName:  req.DisplayName,
		RosterNumber: &req.RosterNumber,
		GroupID:      grp.ID,
		SecretHash:   &hash,
	}
	if err := r.Store.CreateIdentity(&identity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, identityResponse{
		ID:           identity.ID,
		DisplayName:  identity.DisplayName,
		RosterNumber: identity.RosterNumber,
		GroupID:      identity.GroupID,
	})
}

func (r *RosterController) ListSubmissions(c *gin.Context) {
	q := r.DB.Model(&models.Submission{}).Order("created_at desc")
	if g := c.Query("group_id"); g != "" {
		q = q.Where("group_id = ?", g)
	}
	if a := c.Query("assignment"); a != "" {
		q = q.Where("assignment_title = ?", a)
	}
	var subs []models.Submission
	if err := q.Limit(500).Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, subs)
}
