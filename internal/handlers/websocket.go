package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"solitaire-cipher/backend/internal/auth"
	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/middleware"
	"solitaire-cipher/backend/internal/models"
	"solitaire-cipher/backend/internal/solitaire"
	ws "solitaire-cipher/backend/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			// Non-browser clients (no Origin) are allowed.
			return true
		}
		if cfgDevAllowAll() {
			return true
		}
		if cfgIsDev() {
			return isLocalhostOrigin(origin) || isAllowedOrigin(origin)
		}
		return isAllowedOrigin(origin)
	},
}

// set by config at startup
var originMu sync.RWMutex
var allowedOrigins = map[string]bool{}
var devMode = false
var devAllowAll = false

func SetWebSocketOriginPolicy(isDev bool, allowAllDev bool, origins []string) {
	originMu.Lock()
	defer originMu.Unlock()
	devMode = isDev
	devAllowAll = allowAllDev
	allowedOrigins = map[string]bool{}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowedOrigins[o] = true
		}
	}
}

func cfgIsDev() bool {
	originMu.RLock()
	defer originMu.RUnlock()
	return devMode
}
func cfgDevAllowAll() bool {
	originMu.RLock()
	defer originMu.RUnlock()
	return devMode && devAllowAll
}
func isAllowedOrigin(origin string) bool {
	originMu.RLock()
	defer originMu.RUnlock()
	return allowedOrigins[origin]
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// wsConn is the per-connection state. It is only touched from the client's
// read goroutine.
type wsConn struct {
	client    *ws.Client
	hub       *ws.Hub
	db        *sql.DB
	sessions  *SessionManager
	cfg       config.Config
	sessionID string
}

// WebSocketHandler upgrades the connection, optionally attaching it to the
// session named by ?session=, and routes inbound cipher messages.
func WebSocketHandler(hubs func() (*ws.Hub, bool), db *sql.DB, sessions *SessionManager, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromHeaderOrQuery(c, cfg)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ParseAndValidateToken(token, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Preconditions before attempting the upgrade so we can return HTTP errors normally.
		room := ws.DefaultRoom
		sessionID := strings.TrimSpace(c.Query("session"))
		if sessionID != "" {
			if _, err := sessions.Get(sessionID, claims.UserID); err != nil {
				writeAPIError(c, err)
				return
			}
			room = sessionRoom(sessionID)
		}
		hub, ok := hubs()
		if !ok || hub == nil {
			logger.Error().Int64("user_id", claims.UserID).Str("room", room).Msg("websocket: no hub")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn().Err(err).
				Str("remote", c.ClientIP()).
				Str("origin", c.Request.Header.Get("Origin")).
				Msg("websocket upgrade failed")
			return
		}

		client := ws.NewClient(conn, hub, room, claims.UserID)
		hub.Register(client)

		state := &wsConn{client: client, hub: hub, db: db, sessions: sessions, cfg: cfg, sessionID: sessionID}
		go client.WritePump()
		go client.ReadPump(state.handle)

		_ = sendDirect(client, "connected", map[string]any{
			"user_id": client.UserID,
			"room":    room,
			"session": sessionID,
		})
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsCipherPayload struct {
	Session string `json:"session,omitempty"`
	Text    string `json:"text"`
	Policy  string `json:"policy,omitempty"`
}

func (w *wsConn) handle(msg []byte) {
	var in inboundMessage
	if err := json.Unmarshal(msg, &in); err != nil {
		_ = sendDirect(w.client, "error", map[string]any{"error": "invalid json"})
		return
	}

	switch in.Type {
	case "join_room":
		var p struct {
			Session string `json:"session"`
		}
		if err := json.Unmarshal(in.Payload, &p); err != nil || strings.TrimSpace(p.Session) == "" {
			_ = sendDirect(w.client, "error", map[string]any{"error": "invalid session"})
			return
		}
		id := strings.TrimSpace(p.Session)
		if _, err := w.sessions.Get(id, w.client.UserID); err != nil {
			sendWSError(w.client, models.ErrForbidden)
			return
		}
		w.sessionID = id
		w.hub.Join(w.client, sessionRoom(id))
		_ = sendDirect(w.client, "joined_room", map[string]any{"room": sessionRoom(id), "session": id})
	case "state":
		s, err := w.sessions.Get(w.sessionID, w.client.UserID)
		if err != nil {
			sendWSError(w.client, err)
			return
		}
		_ = sendDirect(w.client, "session_state", s.View())
	case models.DirectionEncrypt, models.DirectionDecrypt:
		var p wsCipherPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			_ = sendDirect(w.client, "error", map[string]any{"error": "invalid payload"})
			return
		}
		id := w.sessionID
		if p.Session != "" {
			id = p.Session
		}
		policy, err := parsePolicy(p.Policy)
		if err != nil {
			sendWSError(w.client, err)
			return
		}
		s, err := w.sessions.Get(id, w.client.UserID)
		if err != nil {
			sendWSError(w.client, err)
			return
		}
		update, err := s.Apply(context.Background(), in.Type, p.Text, policy, w.cfg.MaxMessageLetters)
		if err != nil {
			sendWSError(w.client, err)
			return
		}
		recordUsage(w.db, w.client.UserID, s.DeckID, in.Type, update.Letters)
		_ = sendDirect(w.client, in.Type+"_ok", update)
		w.hub.Broadcast(sessionRoom(s.ID), "session_update", update)
	default:
		_ = sendDirect(w.client, "error", map[string]any{"error": "unknown message type"})
	}
}

// sendWSError maps err the way writeAPIError does for HTTP, without leaking
// internal details.
func sendWSError(c *ws.Client, err error) {
	msg := "internal error"
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		msg = "session not found"
	case errors.Is(err, models.ErrForbidden):
		msg = "forbidden"
	case errors.Is(err, models.ErrInvalidPolicy):
		msg = "invalid decrypt policy"
	case errors.Is(err, models.ErrMessageTooLong):
		msg = "message too long"
	case errors.Is(err, solitaire.ErrInvalidCiphertext):
		msg = err.Error()
	default:
		logger.Error().Err(err).Int64("user_id", c.UserID).Msg("websocket message failed")
	}
	_ = sendDirect(c, "error", map[string]any{"error": msg})
}

func sendDirect(c *ws.Client, typ string, payload any) error {
	b, err := ws.Envelope(typ, payload)
	if err != nil {
		return err
	}
	if !c.Enqueue(b) {
		logger.Warn().Int64("user_id", c.UserID).Str("type", typ).Msg("ws send dropped")
	}
	return nil
}

// tokenFromHeaderOrQuery accepts the cookie or bearer header, and the token
// query parameter only when WS_ALLOW_QUERY_TOKENS is set.
func tokenFromHeaderOrQuery(c *gin.Context, cfg config.Config) string {
	if t := middleware.TokenFromRequest(c); t != "" {
		return t
	}
	if cfg.WSAllowQueryTokens {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
