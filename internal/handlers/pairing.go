package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/internal/realtime"
	"github.com/charlesng35/classroom/pkg/errors"
	"github.com/charlesng35/classroom/pkg/logger"
	"github.com/charlesng35/classroom/pkg/response"
)

// TokenRegistry is the subset of the pairing registry used by the HTTP boundary.
type TokenRegistry interface {
	Issue() (pairing.Token, error)
	Authenticate(id string) pairing.Outcome
	Inspect(id string) (pairing.Token, bool)
}

// CodeRenderer renders a token id into a PNG QR code.
type CodeRenderer interface {
	Render(id string) ([]byte, error)
}

// WatchServer upgrades a request into a websocket that follows one token.
type WatchServer interface {
	Serve(tokenID string, snapshot func() realtime.Message, w http.ResponseWriter, r *http.Request)
}

// PairingHandler maps pairing registry operations onto HTTP responses.
type PairingHandler struct {
	tokens   TokenRegistry
	renderer CodeRenderer
	watchers WatchServer
	log      *zap.Logger
}

// NewPairingHandler constructs the handler. renderer and watchers are optional; their
// routes answer 404 when absent.
func NewPairingHandler(tokens TokenRegistry, renderer CodeRenderer, watchers WatchServer) *PairingHandler {
	return &PairingHandler{
		tokens:   tokens,
		renderer: renderer,
		watchers: watchers,
		log:      logger.WithModule("pairing"),
	}
}

type issueResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authenticateResponse struct {
	Status string `json:"status"`
}

type checkResponse struct {
	State       string     `json:"state"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Generate issues a new pairing token.
func (h *PairingHandler) Generate(c *gin.Context) {
	token, err := h.tokens.Issue()
	if err != nil {
		h.log.Error("issue pairing token", zap.Error(err))
		response.Error(c, errors.ErrPairingIssue.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, issueResponse{
		ID:        token.ID,
		ExpiresAt: token.Deadline,
	})
}

// Authenticate presents a token. Ids that are malformed, unknown or expired share one
// response so callers cannot tell them apart.
func (h *PairingHandler) Authenticate(c *gin.Context) {
	id, ok := tokenIDParam(c)
	if !ok {
		response.Error(c, errors.ErrPairingInvalid)
		return
	}

	switch h.tokens.Authenticate(id) {
	case pairing.OutcomeConfirmed:
		response.Success(c, http.StatusOK, authenticateResponse{Status: "confirmed"})
	case pairing.OutcomeAlreadyConfirmed:
		response.Error(c, errors.ErrPairingAlreadyConfirmed)
	default:
		response.Error(c, errors.ErrPairingInvalid)
	}
}

// Check reports the state of a token without changing it.
func (h *PairingHandler) Check(c *gin.Context) {
	id, ok := tokenIDParam(c)
	if !ok {
		response.Error(c, errors.ErrPairingNotFound)
		return
	}

	token, live := h.tokens.Inspect(id)
	if !live {
		response.Error(c, errors.ErrPairingNotFound)
		return
	}

	payload := checkResponse{State: token.State.String()}
	switch token.State {
	case pairing.StateValid:
		deadline := token.Deadline
		payload.ExpiresAt = &deadline
	case pairing.StateAuthenticated:
		confirmed := token.ConfirmedAt
		payload.ConfirmedAt = &confirmed
	}
	response.Success(c, http.StatusOK, payload)
}

// QRCode renders a live, unconfirmed token as a PNG image.
func (h *PairingHandler) QRCode(c *gin.Context) {
	id, ok := tokenIDParam(c)
	if !ok || h.renderer == nil {
		response.Error(c, errors.ErrPairingNotFound)
		return
	}

	token, live := h.tokens.Inspect(id)
	if !live || token.State != pairing.StateValid {
		response.Error(c, errors.ErrPairingNotFound)
		return
	}

	image, err := h.renderer.Render(token.ID)
	if err != nil {
		h.log.Error("render pairing qr code", zap.String("token_id", token.ID), zap.Error(err))
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	response.PNG(c, image)
}

// Watch upgrades the request and streams transitions of a single token.
func (h *PairingHandler) Watch(c *gin.Context) {
	id, ok := tokenIDParam(c)
	if !ok || h.watchers == nil {
		response.Error(c, errors.ErrPairingNotFound)
		return
	}

	h.watchers.Serve(id, func() realtime.Message {
		token, live := h.tokens.Inspect(id)
		return realtime.SnapshotMessage(id, token, live)
	}, c.Writer, c.Request)
}
