package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Live message types.
const (
	LiveTypeInvitations = "invitations"
	LiveTypeError       = "error"
)

// LiveMessage is pushed to websocket subscribers: the full invitation list on connect and after every change.
type LiveMessage struct {
	Type  string               `json:"type"`
	Data  []*domain.Invitation `json:"data"`
	Error string               `json:"error,omitempty"`
}

type RealtimeController struct {
	Logger   *slog.Logger
	Service  domain.InvitationService
	upgrader websocket.Upgrader
}

// NewRealtimeController accepts upgrades from the allowed browser origins and from clients that send no Origin.
func NewRealtimeController(logger *slog.Logger, svc domain.InvitationService, origins middleware.OriginSet) *RealtimeController {
	return &RealtimeController{
		Logger:  logger,
		Service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins.Allows(origin)
			},
		},
	}
}

// LiveInvitations godoc
// @Summary Stream the invitation list of an event
// @Description Websocket. Sends {"type":"invitations","data":[...]} on connect and again after every change to the event's invitations. Browsers pass the token as access_token.
// @Tags invitations
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param access_token query string false "Bearer token for browsers"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/invitations/live [get]
func (c *RealtimeController) LiveInvitations(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	// Subscribe before the snapshot read: a change committed in between then
	// leaves a pending refetch instead of being lost.
	changed := make(chan struct{}, 1)
	unsubscribe := c.Service.Subscribe(eventID, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// Visibility is checked before the upgrade so refusals are plain HTTP errors.
	initial, err := c.Service.List(r.Context(), eventID, caller)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.Logger.WarnContext(r.Context(), "websocket upgrade failed", "event_id", eventID, "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.readPump(conn, cancel)

	if err := c.write(conn, LiveMessage{Type: LiveTypeInvitations, Data: nonNil(initial)}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			msg := LiveMessage{Type: LiveTypeInvitations}
			list, err := c.Service.List(ctx, eventID, caller)
			if err != nil {
				c.Logger.WarnContext(ctx, "refetch invitations failed", "event_id", eventID, "err", err)
				msg = LiveMessage{Type: LiveTypeError, Error: "could not refresh invitations"}
			} else {
				msg.Data = nonNil(list)
			}
			if err := c.write(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed; it cancels the stream on disconnect.
func (c *RealtimeController) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger.Debug("websocket closed", "err", err)
			}
			return
		}
	}
}

func (c *RealtimeController) write(conn *websocket.Conn, msg LiveMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func nonNil(list []*domain.Invitation) []*domain.Invitation {
	if list == nil {
		return []*domain.Invitation{}
	}
	return list
}
