package handlers

import (
	"database/sql"

	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/middleware"
	"solitaire-cipher/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes wires auth endpoints. /auth/me needs a token; the rest
// are public.
func RegisterAuthRoutes(rg *gin.RouterGroup, db *sql.DB, cfg config.Config) {
	rg.POST("/auth/register", RegisterHandler(db, cfg))
	rg.POST("/auth/login", LoginHandler(db, cfg))
	rg.GET("/auth/me", middleware.RequireAuth(cfg), MeHandler(db))
	rg.POST("/auth/logout", LogoutHandler(cfg))
}

// RegisterCipherRoutes wires the stateless endpoints. Callers may be
// anonymous; a valid token only attributes usage.
func RegisterCipherRoutes(rg *gin.RouterGroup, db *sql.DB, cfg config.Config) {
	open := rg.Group("")
	open.Use(middleware.OptionalAuth(cfg))
	open.POST("/cipher/encrypt", CipherHandler(db, cfg, models.DirectionEncrypt))
	open.POST("/cipher/decrypt", CipherHandler(db, cfg, models.DirectionDecrypt))
	open.POST("/deck/random", RandomDeckHandler())
	open.POST("/deck/keystream", KeystreamHandler(cfg))
}

// RegisterDeckRoutes expects rg to be behind RequireAuth.
func RegisterDeckRoutes(rg *gin.RouterGroup, db *sql.DB, cfg config.Config) {
	rg.GET("/decks", ListDecksHandler(db))
	rg.POST("/decks", CreateDeckHandler(db))
	rg.GET("/decks/:id", GetDeckHandler(db))
	rg.DELETE("/decks/:id", DeleteDeckHandler(db))
	rg.POST("/decks/:id/encrypt", SavedDeckCipherHandler(db, cfg, models.DirectionEncrypt))
	rg.POST("/decks/:id/decrypt", SavedDeckCipherHandler(db, cfg, models.DirectionDecrypt))
	rg.GET("/me/usage", UsageHandler(db))
}

// RegisterSessionRoutes expects rg to be behind RequireAuth.
func RegisterSessionRoutes(rg *gin.RouterGroup, db *sql.DB, sessions *SessionManager, cfg config.Config) {
	rg.GET("/sessions", ListSessionsHandler(sessions))
	rg.POST("/sessions", CreateSessionHandler(db, sessions))
	rg.GET("/sessions/:id", GetSessionHandler(sessions))
	rg.DELETE("/sessions/:id", DeleteSessionHandler(sessions))
	rg.POST("/sessions/:id/encrypt", SessionCipherHandler(db, sessions, cfg, models.DirectionEncrypt))
	rg.POST("/sessions/:id/decrypt", SessionCipherHandler(db, sessions, cfg, models.DirectionDecrypt))
}
