package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/commands"
	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/directory"
	"github.com/voxchat/backend/internal/drafts"
	"github.com/voxchat/backend/internal/giphy"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/storage"
	"github.com/voxchat/backend/internal/websocket"
)

// Handlers contains all HTTP handlers with their dependencies
type Handlers struct {
	composer    *composer.Manager
	authService auth.AuthServiceInterface
	drafts      *drafts.Store
	directory   *directory.Resolver
	commands    *commands.Registry
	giphy       *giphy.Client
	gifCache    *middleware.CacheManager
	uploader    storage.AttachmentUploader
	wsHandler   *websocket.Handler
}

// NewHandlers creates a new handlers instance
func NewHandlers(manager *composer.Manager, authService auth.AuthServiceInterface) *Handlers {
	return &Handlers{
		composer:    manager,
		authService: authService,
		commands:    commands.Default(),
	}
}

// SetDraftStore wires the draft persistence layer
func (h *Handlers) SetDraftStore(store *drafts.Store) {
	h.drafts = store
}

// SetDirectoryResolver wires mention autocomplete
func (h *Handlers) SetDirectoryResolver(resolver *directory.Resolver) {
	h.directory = resolver
}

// SetCommandRegistry replaces the default slash-command set
func (h *Handlers) SetCommandRegistry(registry *commands.Registry) {
	h.commands = registry
}

// SetGiphyClient enables /giphy previews
func (h *Handlers) SetGiphyClient(client *giphy.Client) {
	h.giphy = client
}

// SetGIFCache caches /giphy preview lookups so repeated phrases skip the API
func (h *Handlers) SetGIFCache(cm *middleware.CacheManager) {
	h.gifCache = cm
}

// SetUploader wires the CDN uploader used by multipart attachment uploads
func (h *Handlers) SetUploader(uploader storage.AttachmentUploader) {
	h.uploader = uploader
}

// SetWebSocketHandler enables real-time composer snapshot pushes
func (h *Handlers) SetWebSocketHandler(wsHandler *websocket.Handler) {
	h.wsHandler = wsHandler
}

// Health reports service liveness
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "voxchat-backend",
		"sessions":  h.composer.Len(),
	})
}
