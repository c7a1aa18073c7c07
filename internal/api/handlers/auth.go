package handlers

import (
	"context"
	"net/http"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

// AuthClient is the slice of the marketplace client the OAuth flow needs.
type AuthClient interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*meli.Token, error)
}

// AuthHandler handles the seller OAuth link flow.
type AuthHandler struct {
	*Base
	client AuthClient
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(client AuthClient, repo storage.Repository) *AuthHandler {
	return &AuthHandler{
		Base:   NewBase(repo),
		client: client,
	}
}

// AuthorizationURL handles GET / - returns the marketplace authorization link
// the seller must visit to grant access.
func (h *AuthHandler) AuthorizationURL(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, dto.AuthURLResponse{
		AuthorizationURL: h.client.AuthorizationURL(),
	})
}

// Callback handles GET /callback?code= - exchanges the authorization code and
// persists the token pair.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("code query parameter is required"))
		return
	}

	token, err := h.client.ExchangeCode(r.Context(), code)
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.UpstreamError("authorization code exchange failed"))
		return
	}

	if err := h.repo.SaveToken(token.AccessToken, token.RefreshToken); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.AuthCallbackResponse{
		Message:  "marketplace account linked",
		SellerID: token.UserID,
	})
}
