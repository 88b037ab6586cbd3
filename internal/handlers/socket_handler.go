package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/interfaces"
	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	socketModels "emrSocket/internal/models/socket"
	"emrSocket/internal/msgs"
	"emrSocket/internal/realtime"
	"emrSocket/internal/utils"
	"emrSocket/internal/validators"
)

const lifecycleTimeout = 5 * time.Second

type PresenceTracker interface {
	Connected(ctx context.Context, identity realtime.Identity)
	Disconnected(ctx context.Context, identity realtime.Identity)
}

type EventRelayer interface {
	Relay(ctx context.Context, identity realtime.Identity, frame socketModels.SocketEvent) error
}

type SocketOptions struct {
	AllowedOrigins []string
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
}

type SocketHandler struct {
	ctx      context.Context
	upgrader websocket.Upgrader
	options  SocketOptions
	hub      *realtime.Hub
	verifier TokenVerifier
	relay    EventRelayer
	presence PresenceTracker
	emitter  interfaces.RealtimeEmitter
	log      *logger.Logger
	active   sync.WaitGroup
}

func NewSocketHandler(
	ctx context.Context,
	hub *realtime.Hub,
	verifier TokenVerifier,
	relay EventRelayer,
	presence PresenceTracker,
	emitter interfaces.RealtimeEmitter,
	options SocketOptions,
	log *logger.Logger,
) *SocketHandler {
	if options.SendBuffer < 1 {
		options.SendBuffer = 256
	}
	if options.MaxMessageSize <= 0 {
		options.MaxMessageSize = 64 * 1024
	}
	if options.PongWait <= 0 {
		options.PongWait = 60 * time.Second
	}
	if options.WriteWait <= 0 {
		options.WriteWait = 10 * time.Second
	}

	sh := &SocketHandler{
		ctx:      ctx,
		options:  options,
		hub:      hub,
		verifier: verifier,
		relay:    relay,
		presence: presence,
		emitter:  emitter,
		log:      log.With("component", "SocketHandler"),
	}
	sh.InitializeSocketUpgrader()
	return sh
}

func (sh *SocketHandler) InitializeSocketUpgrader() {
	allowed := sh.options.AllowedOrigins
	sh.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			return slices.Contains(allowed, origin)
		},
	}
}

// HandleSocketRoute authenticates the handshake before upgrading. A request
// that fails verification gets a 401 and never reaches the hub.
//
// @Summary      Open a realtime connection
// @Description  Upgrades to a websocket after verifying the session token from the Authorization header or the token query parameter
// @Tags         realtime
// @Param        token  query  string  false  "Session token"
// @Success      101
// @Failure      401  {object}  models.Response
// @Router       /ws [get]
func (sh *SocketHandler) HandleSocketRoute(ctx *gin.Context) {
	token := utils.ExtractToken(ctx)
	identity, err := sh.verifier.VerifyToken(token)
	if err != nil {
		sh.log.Debug("handshake rejected", "remote", ctx.ClientIP(), "error", err)
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: msgs.MsgYouMustLoginFirst,
			Errors:  []error{errs.ErrUnauthorized},
		})
		return
	}

	sh.HandleConnections(ctx, identity)
}

func (sh *SocketHandler) HandleConnections(ctx *gin.Context, identity realtime.Identity) {
	ws, err := sh.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		sh.log.Warn("failed to upgrade connection", "userID", identity.UserID, "error", err)
		return
	}

	client := realtime.NewClient(identity, ws, sh.options.SendBuffer)
	if err := sh.hub.Register(client); err != nil {
		sh.log.Warn("failed to register client", "userID", identity.UserID, "error", err)
		_ = ws.Close()
		return
	}
	sh.active.Add(1)
	defer sh.active.Done()
	sh.log.Info("client connected",
		"clientID", client.ID,
		"userID", identity.UserID,
		"hospitalID", identity.HospitalID,
		"role", identity.Role,
	)

	go sh.writePump(ws, client)

	sh.connected(client)
	sh.readPump(ws, client)
	sh.Disconnect(client)
}

func (sh *SocketHandler) connected(client *realtime.Client) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sh.ctx), lifecycleTimeout)
	defer cancel()

	if sh.presence != nil {
		sh.presence.Connected(ctx, client.Identity)
	}
	sh.emitStatus(ctx, client.Identity, enums.USER_STATUS_ONLINE)
}

// Disconnect runs the disconnect side effects once per client no matter how
// many times it is called.
func (sh *SocketHandler) Disconnect(client *realtime.Client) {
	if !sh.hub.Unregister(client) {
		return
	}
	sh.log.Info("client disconnected", "clientID", client.ID, "userID", client.Identity.UserID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(sh.ctx), lifecycleTimeout)
	defer cancel()

	if sh.presence != nil {
		sh.presence.Disconnected(ctx, client.Identity)
	}
	sh.emitStatus(ctx, client.Identity, enums.USER_STATUS_OFFLINE)
}

func (sh *SocketHandler) emitStatus(ctx context.Context, identity realtime.Identity, status string) {
	err := sh.emitter.EmitToHospital(ctx, identity.HospitalID, enums.SOCKET_EVENT_USER_STATUS_CHANGED, socketModels.UserStatusChanged{
		UserID:    identity.UserID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		sh.log.Warn("failed to broadcast status", "userID", identity.UserID, "status", status, "error", err)
	}
}

func (sh *SocketHandler) readPump(ws *websocket.Conn, client *realtime.Client) {
	ws.SetReadLimit(sh.options.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(sh.options.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(sh.options.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sh.log.Debug("connection closed unexpectedly", "clientID", client.ID, "error", err)
			}
			return
		}

		var frame socketModels.SocketEvent
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			sh.sendError(client, frame.Event, errs.ErrInvalidEvent)
			continue
		}

		if err := sh.relay.Relay(sh.ctx, client.Identity, frame); err != nil {
			sh.sendError(client, frame.Event, err)
		}
	}
}

func (sh *SocketHandler) writePump(ws *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(sh.options.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(sh.options.WriteWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				sh.log.Debug("write failed", "clientID", client.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(sh.options.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError reports a rejected frame to the sending connection only.
func (sh *SocketHandler) sendError(client *realtime.Client, event string, err error) {
	payload := socketModels.ErrorPayload{Event: event}

	var validationErr *validators.ValidationError
	switch {
	case errors.As(err, &validationErr):
		payload.Message = errs.ErrInvalidPayload.Error()
		payload.Issues = validationErr.Strings()
	case errors.Is(err, errs.ErrUnknownEvent):
		payload.Message = errs.ErrUnknownEvent.Error()
	case errors.Is(err, errs.ErrInvalidEvent):
		payload.Message = errs.ErrInvalidEvent.Error()
	case errors.Is(err, errs.ErrInvalidPayload):
		payload.Message = errs.ErrInvalidPayload.Error()
	default:
		payload.Message = msgs.MsgOperationFailed
	}

	raw, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return
	}
	sh.hub.SendTo(client, socketModels.SocketEvent{Event: enums.SOCKET_EVENT_ERROR, Payload: raw})
}

// Shutdown closes every live connection and waits until each one has gone
// through the normal disconnect path or ctx expires.
func (sh *SocketHandler) Shutdown(ctx context.Context) error {
	sh.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		sh.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
