package handlers

import (
	"database/sql"
	"fmt"
	"net/http"

	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/models"
	"solitaire-cipher/backend/internal/solitaire"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	DeckID *int64 `json:"deck_id,omitempty"`
	deckInput
}

func CreateSessionHandler(db *sql.DB, sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeAPIError(c, models.ErrInvalidJSON)
			return
		}

		var d *solitaire.Deck
		var err error
		if req.DeckID != nil {
			if len(req.Cards) > 0 || req.Deck != "" {
				writeAPIError(c, fmt.Errorf("%w: give deck_id or an inline deck, not both", models.ErrInvalidDeck))
				return
			}
			var saved *models.SavedDeck
			if saved, err = models.GetDeckForOwner(db, *req.DeckID, userID); err == nil {
				d, err = saved.Deck()
			}
		} else {
			d, err = req.build()
		}
		if err != nil {
			writeAPIError(c, err)
			return
		}

		s := sessions.Create(userID, req.DeckID, d)
		logger.Debug().Str("session_id", s.ID).Int64("user_id", userID).Msg("session created")
		c.JSON(http.StatusCreated, s.View())
	}
}

func ListSessionsHandler(sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions.ListByOwner(userID)})
	}
}

func GetSessionHandler(sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		s, err := sessions.Get(c.Param("id"), userID)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.View())
	}
}

func DeleteSessionHandler(sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		if err := sessions.Delete(c.Param("id"), userID); err != nil {
			writeAPIError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// SessionCipherHandler continues the session keystream: the second of two
// calls uses the keys after the ones the first call drew.
func SessionCipherHandler(db *sql.DB, sessions *SessionManager, cfg config.Config, direction string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		var req savedDeckCipherRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeAPIError(c, models.ErrInvalidJSON)
			return
		}
		policy, err := parsePolicy(req.Policy)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		s, err := sessions.Get(c.Param("id"), userID)
		if err != nil {
			writeAPIError(c, err)
			return
		}

		update, err := s.Apply(c.Request.Context(), direction, req.Text, policy, cfg.MaxMessageLetters)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		recordUsage(db, userID, s.DeckID, direction, update.Letters)
		broadcastSessionUpdate(s.ID, update)
		c.JSON(http.StatusOK, gin.H{
			"result":     update.Output,
			"letters":    update.Letters,
			"keys_drawn": update.KeysDrawn,
		})
	}
}
