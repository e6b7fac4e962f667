package sync_module

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NikoToRA/koereq-sync/pkg/blob"
	"github.com/NikoToRA/koereq-sync/pkg/session"
	syncpkg "github.com/NikoToRA/koereq-sync/pkg/sync"
	"github.com/NikoToRA/koereq-sync/pkg/utils"
)

// Module-level services injected by Init
var (
	sessionCache *session.Cache
	coordinator  *syncpkg.Coordinator
	blobClient   *blob.Client
	facilityID   string
)

// Init wires the sync module to its services
func Init(cfg *utils.Config, cache *session.Cache, coord *syncpkg.Coordinator, client *blob.Client) {
	sessionCache = cache
	coordinator = coord
	blobClient = client
	facilityID = cfg.Get("FACILITY_ID")
}

// GetStatus reports upload state for every cached session
func GetStatus(c *gin.Context) {
	type sessionStatus struct {
		SessionID string `json:"session_id"`
		StartedAt string `json:"started_at"`
		Ended     bool   `json:"ended"`
		Uploaded  bool   `json:"uploaded"`
	}

	var statuses []sessionStatus
	uploaded := 0
	for _, record := range sessionCache.Sessions() {
		isUploaded, err := coordinator.IsUploaded(c.Request.Context(), record.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded set", "detail": err.Error()})
			return
		}
		if isUploaded {
			uploaded++
		}
		statuses = append(statuses, sessionStatus{
			SessionID: record.ID.String(),
			StartedAt: record.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			Ended:     record.Ended(),
			Uploaded:  isUploaded,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(statuses),
		"uploaded": uploaded,
		"pending":  len(statuses) - uploaded,
		"sessions": statuses,
	})
}

// ListRemoteSessions lists the session ids present in the cloud container
// under this facility's prefix
func ListRemoteSessions(c *gin.Context) {
	ids, err := blobClient.ListSessionIDs(c.Request.Context(), facilityID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list remote sessions", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"facility_id": facilityID,
		"session_ids": ids,
	})
}

// GetRemoteMetadata fetches a remote session's metadata object
func GetRemoteMetadata(c *gin.Context) {
	fetchRemoteArtifact(c, blob.MetaBlobName, "application/json")
}

// GetRemoteTranscript fetches a remote session's transcript object
func GetRemoteTranscript(c *gin.Context) {
	fetchRemoteArtifact(c, blob.TranscriptBlobName, "text/plain; charset=utf-8")
}

func fetchRemoteArtifact(c *gin.Context, artifact, contentType string) {
	path := blob.JoinPath(facilityID, c.Param("id"), artifact)
	data, err := blobClient.GetBlob(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Remote artifact not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch remote artifact", "detail": err.Error()})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// ResyncSession re-uploads a cached session on demand
func ResyncSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	record, ok := sessionCache.GetSession(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not cached"})
		return
	}

	if err := coordinator.ForceSync(c.Request.Context(), record); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Resync failed", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"session_id": record.ID.String(),
	})
}
