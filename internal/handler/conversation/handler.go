// Package conversation exposes the conversation listing endpoint.
package conversation

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/middleware"
	chatmodel "github.com/yattcodes/ai-gateway/backend/internal/model/chat"
	chatService "github.com/yattcodes/ai-gateway/backend/internal/service/chat"
	"github.com/yattcodes/ai-gateway/backend/pkg/utils"
)

type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	return &Handler{chatSvc: chatSvc, logger: logger}
}

// HandleList returns the caller's conversations, most recent first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	summaries, err := h.chatSvc.Conversations(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to fetch conversations",
			zap.Error(err),
			zap.String("user_id", userID))
		utils.RespondError(w, http.StatusInternalServerError, "An error occurred while fetching conversations.")
		return
	}

	if summaries == nil {
		summaries = []chatmodel.Summary{}
	}
	utils.RespondJSON(w, http.StatusOK, summaries)
}
