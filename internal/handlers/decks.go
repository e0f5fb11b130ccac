package handlers

import (
	"database/sql"
	"net/http"

	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/models"
	"solitaire-cipher/backend/internal/solitaire"

	"github.com/gin-gonic/gin"
)

type createDeckRequest struct {
	Name string `json:"name"`
	deckInput
	// Random asks the server to shuffle a fresh deck instead.
	Random bool `json:"random,omitempty"`
}

func ListDecksHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		decks, err := models.ListDecksByOwner(db, userID)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"decks": decks})
	}
}

func CreateDeckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		var req createDeckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeAPIError(c, models.ErrInvalidJSON)
			return
		}

		var d *solitaire.Deck
		if req.Random {
			d = solitaire.NewRandomDeck()
		} else {
			var err error
			if d, err = req.build(); err != nil {
				writeAPIError(c, err)
				return
			}
		}

		saved, err := models.CreateDeck(db, userID, req.Name, d)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusCreated, saved)
	}
}

func GetDeckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		saved, err := models.GetDeckForOwner(db, id, userID)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

func DeleteDeckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteDeck(db, id, userID); err != nil {
			writeAPIError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type savedDeckCipherRequest struct {
	Text   string `json:"text"`
	Policy string `json:"policy,omitempty"`
}

// SavedDeckCipherHandler encrypts or decrypts with a fresh keystream built
// from a stored deck, so repeated calls with the same text give the same result.
func SavedDeckCipherHandler(db *sql.DB, cfg config.Config, direction string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
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
		saved, err := models.GetDeckForOwner(db, id, userID)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		d, err := saved.Deck()
		if err != nil {
			writeAPIError(c, err)
			return
		}

		ks := solitaire.NewKeystream(d, solitaire.WithMaxRetries(cfg.KeystreamMaxRetries))
		out, letters, err := runCipher(c.Request.Context(), solitaire.NewCipher(ks, solitaire.WithDecryptPolicy(policy)), direction, req.Text, cfg.MaxMessageLetters)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		recordUsage(db, userID, &saved.ID, direction, letters)
		c.JSON(http.StatusOK, cipherResponse{Result: out, Letters: letters})
	}
}

func UsageHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		u, err := models.UsageForUser(db, userID)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// recordUsage is best-effort: a failed insert never fails the cipher call.
func recordUsage(db *sql.DB, userID int64, deckID *int64, direction string, letters int) {
	if db == nil {
		return
	}
	if err := models.RecordOperation(db, userID, deckID, direction, letters); err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Str("direction", direction).Msg("record usage failed")
	}
}
