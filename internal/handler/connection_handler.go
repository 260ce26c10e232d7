package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/linkup/internal/middleware"
	"github.com/hitoshi/linkup/internal/model"
)

// ConnectionServiceInterface はつながりハンドラーが必要とするサービスインターフェース。
type ConnectionServiceInterface interface {
	SendRequest(ctx context.Context, senderID, recipientID string) error
	ListOutgoing(ctx context.Context, userID string) ([]model.ConnectionWithUser, error)
	ListIncoming(ctx context.Context, userID string) ([]model.ConnectionWithUser, error)
	Decide(ctx context.Context, userID, requestID string, action model.DecisionAction) error
}

// ConnectionHandler はつながりリクエストのHTTPハンドラー。
type ConnectionHandler struct {
	service ConnectionServiceInterface
}

// NewConnectionHandler はConnectionHandlerを生成する。
func NewConnectionHandler(service ConnectionServiceInterface) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

type connectionResponse struct {
	ID             string `json:"id"`
	SenderID       string `json:"senderId"`
	RecipientID    string `json:"recipientId"`
	Accepted       *bool  `json:"accepted"`
	CreatedAt      string `json:"createdAt"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func toConnectionResponse(c *model.ConnectionWithUser) connectionResponse {
	return connectionResponse{
		ID:             c.ID,
		SenderID:       c.SenderID,
		RecipientID:    c.RecipientID,
		Accepted:       c.Accepted,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UserID:         c.User.ID,
		UserName:       c.User.Name,
		Username:       c.User.Username,
		ProfilePicture: c.User.ProfilePicture,
	}
}

type sendConnectionRequest struct {
	ConnectionID string `json:"connectionId"`
}

// SendRequest はつながりリクエストを送信する。
// POST /user/send_connection_request
func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req sendConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if err := h.service.SendRequest(r.Context(), userID, req.ConnectionID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "つながりリクエストを送信しました"})
}

// ListOutgoing は自分が送信したリクエストの一覧を返す。
// GET /user/getConnectionRequests
func (h *ConnectionHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	requests, err := h.service.ListOutgoing(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]connectionResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toConnectionResponse(&requests[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connectionRequest": out})
}

// ListIncoming は自分宛てのリクエストの一覧を返す。
// POST /user/user_connection_requests
func (h *ConnectionHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	requests, err := h.service.ListIncoming(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]connectionResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toConnectionResponse(&requests[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connectionRequest": out})
}

type decideRequest struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"` // "accept" または "reject"
}

// Decide はリクエストへの決定（承認/拒否）を処理する。
// POST /user/accept_connection_request
func (h *ConnectionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if err := h.service.Decide(r.Context(), userID, req.RequestID, model.DecisionAction(req.Action)); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "リクエストを処理しました"})
}
