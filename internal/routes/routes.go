package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/gradebot_v1/internal/config"
	"github.com/zaqqye/gradebot_v1/internal/controllers"
	"github.com/zaqqye/gradebot_v1/internal/middleware"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/ws"
)

func Register(r *gin.Engine, db *gorm.DB, st *store.Store, hub *ws.EventHub, cfg *config.Config) {
	expiresMins, err := time.ParseDuration(cfg.JWTExpiresIn + "m")
	if err != nil || expiresMins == 0 {
		expiresMins = 60 * time.Minute
	}
	authCtrl := &controllers.AuthController{DB: db, JWTSecret: cfg.JWTSecret, ExpiresIn: expiresMins}
	rosterCtrl := &controllers.RosterController{DB: db, Store: st}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authCtrl.Login)
	}

	// Protected
	authMW := middleware.AuthMiddleware(db, middleware.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		JWTExpiresIn: expiresMins,
	})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)

		admin := api.Group("/admin", middleware.RequireRoles("admin", "staff"))
		{
			admin.GET("/groups", rosterCtrl.ListGroups)
			admin.POST("/groups", rosterCtrl.CreateGroup)
			admin.GET("/identities", rosterCtrl.ListIdentities)
			admin.POST("/identities", rosterCtrl.CreateIdentity)
			admin.GET("/submissions", rosterCtrl.ListSubmissions)
		}

		api.GET("/ws/events", ws.EventsHandler(hub))
	}
}
