package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parentdoctor/backend/internal/chat"
)

func (a *App) postChatMessage(c *gin.Context) {
	familyID, ok := familyIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chatMessageRequest
	if !mustJSON(c, &payload) {
		return
	}

	requestID := uuid.NewString()
	c.Header("X-Request-ID", requestID)

	result, err := a.engine.HandleMessage(c.Request.Context(), familyID, payload.Message)
	if errors.Is(err, chat.ErrInvalidInput) {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		log.Printf("chat message failed family_id=%s request_id=%s err=%v", familyID, requestID, err)
		writeError(c, http.StatusInternalServerError, "Failed to handle chat message")
		return
	}

	c.JSON(http.StatusOK, chatMessageResponse{
		Reply:     result.Reply,
		Extracted: toExtractedInfo(result.Extracted),
		RequestID: requestID,
	})
}

func (a *App) clearChatSession(c *gin.Context) {
	familyID, ok := familyIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := a.engine.ClearConversation(familyID); err != nil {
		writeError(c, http.StatusBadRequest, "family id is required")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) getChildProfile(c *gin.Context) {
	familyID, ok := familyIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	view, err := a.engine.Profile(c.Request.Context(), familyID)
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "family id is required")
		return
	case errors.Is(err, chat.ErrStore):
		log.Printf("child profile read failed family_id=%s err=%v", familyID, err)
		writeError(c, http.StatusServiceUnavailable, "Profile store unavailable")
		return
	case err != nil:
		log.Printf("child profile read failed family_id=%s err=%v", familyID, err)
		writeError(c, http.StatusInternalServerError, "Failed to load child profile")
		return
	}

	c.JSON(http.StatusOK, toChildProfileResponse(view, a.engine.Today()))
}
