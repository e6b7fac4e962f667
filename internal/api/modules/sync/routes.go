package sync_module

import (
	"github.com/gin-gonic/gin"
)

// Register routes for the sync module
func RegisterRoutes(g *gin.RouterGroup) {
	// Create base group for sync routes
	group := g.Group("/sync")

	// Local sync state
	group.GET("/status", GetStatus)

	// Manual recovery surface against the remote store
	group.GET("/remote", ListRemoteSessions)
	group.GET("/remote/:id/meta", GetRemoteMetadata)
	group.GET("/remote/:id/transcript", GetRemoteTranscript)

	// Explicit user-triggered re-upload, bypassing the dedup check
	group.POST("/sessions/:id", ResyncSession)
}
