// Package chat exposes the chat, history and upload endpoints.
package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/middleware"
	chatService "github.com/yattcodes/ai-gateway/backend/internal/service/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/service/document"
	"github.com/yattcodes/ai-gateway/backend/internal/service/generation"
	"github.com/yattcodes/ai-gateway/backend/pkg/utils"
)

const (
	defaultHistoryLimit = 50

	msgInvalid        = "Invalid message format or length"
	msgRateLimited    = "Too many image generation requests, please try again later."
	msgUpstreamAuth   = "API authentication failed. Please contact support."
	msgImageFailed    = "Failed to generate image. Please try again or rephrase your request."
	msgTextFailed     = "Failed to generate response. Please try again."
	msgNoFile         = "No file uploaded"
	msgFileTooLarge   = "File size exceeds 25MB limit."
	msgPDFFailed      = "An error occurred while processing the PDF."
	msgHistoryFailed  = "An error occurred while fetching chat history."
	msgUnexpected     = "An unexpected error occurred while processing your request."
)

// Handler serves the chat routes.
type Handler struct {
	chatSvc   *chatService.Service
	docSvc    *document.Service
	uploadDir string
	logger    *zap.Logger
}

func New(chatSvc *chatService.Service, docSvc *document.Service, uploadDir string, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		docSvc:    docSvc,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// HandleChat processes one chat submission.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgInvalid)
		return
	}

	result, err := h.chatSvc.HandleMessage(r.Context(), userID, payload.Message)
	if err != nil {
		h.respondChatError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrInvalidMessage):
		utils.RespondError(w, http.StatusBadRequest, msgInvalid)
	case errors.Is(err, chatService.ErrImageRateLimited):
		utils.RespondError(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, generation.ErrUpstreamAuth):
		utils.RespondError(w, http.StatusInternalServerError, msgUpstreamAuth)
	case errors.Is(err, generation.ErrUpstreamTimeout):
		utils.RespondError(w, http.StatusInternalServerError, msgImageFailed)
	case errors.Is(err, generation.ErrUpstreamGeneric):
		utils.RespondError(w, http.StatusInternalServerError, msgTextFailed)
	default:
		utils.RespondError(w, http.StatusInternalServerError, msgUnexpected)
	}
}

// HandleHistory serves one page of the caller's conversation.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultHistoryLimit)

	history, err := h.chatSvc.History(r.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("failed to fetch chat history",
			zap.Error(err),
			zap.String("user_id", userID))
		utils.RespondError(w, http.StatusInternalServerError, msgHistoryFailed)
		return
	}

	utils.RespondJSON(w, http.StatusOK, history)
}

// HandleUploadPDF ingests an uploaded document through the analysis
// pipeline. The temporary artifact is owned by the pipeline once
// saved; it guarantees removal on every path.
func (h *Handler) HandleUploadPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, document.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusBadRequest, msgFileTooLarge)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, msgNoFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	if header.Size > document.MaxUploadBytes {
		utils.RespondError(w, http.StatusBadRequest, msgFileTooLarge)
		return
	}

	tmp, err := os.CreateTemp(h.uploadDir, "upload-*.pdf")
	if err != nil {
		h.logger.Error("failed to create temporary artifact", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, msgPDFFailed)
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		h.logger.Error("failed to save uploaded artifact", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, msgPDFFailed)
		return
	}
	tmp.Close()

	analysis, err := h.docSvc.Analyze(r.Context(), userID, tmp.Name(), r.FormValue("message"))
	if err != nil {
		h.respondUploadError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"type":     "pdf-analysis",
		"analysis": analysis,
	})
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrFileTooLarge):
		utils.RespondError(w, http.StatusBadRequest, msgFileTooLarge)
	case errors.Is(err, generation.ErrUpstreamAuth):
		utils.RespondError(w, http.StatusInternalServerError, msgUpstreamAuth)
	default:
		utils.RespondError(w, http.StatusInternalServerError, msgPDFFailed)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
