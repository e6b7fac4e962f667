package api

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	health_module "github.com/NikoToRA/koereq-sync/internal/api/modules/health"
	sync_module "github.com/NikoToRA/koereq-sync/internal/api/modules/sync"
	"github.com/NikoToRA/koereq-sync/pkg/blob"
	"github.com/NikoToRA/koereq-sync/pkg/session"
	syncpkg "github.com/NikoToRA/koereq-sync/pkg/sync"
	"github.com/NikoToRA/koereq-sync/pkg/utils"
)

// Dependencies holds the services the API modules operate on
type Dependencies struct {
	Cache       *session.Cache
	Coordinator *syncpkg.Coordinator
	BlobClient  *blob.Client
}

// Start configures the engine and serves the operational API. Blocks until
// the server exits.
func Start(cfg *utils.Config, deps *Dependencies) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	// Add app level settings/routes
	engine := gin.Default()

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	sync_module.RegisterRoutes(baseGroup)
	sync_module.Init(cfg, deps.Cache, deps.Coordinator, deps.BlobClient)

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
