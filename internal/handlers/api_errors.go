package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"solitaire-cipher/backend/internal/models"
	"solitaire-cipher/backend/internal/solitaire"

	"github.com/gin-gonic/gin"
)

func writeAPIError(c *gin.Context, err error) {
	if err == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	switch {
	case errors.Is(err, models.ErrDeckNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "deck not found"})
		return
	case errors.Is(err, models.ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	case errors.Is(err, models.ErrNotFound) || errors.Is(err, sql.ErrNoRows):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	// Validation messages from the cipher core name only cards and positions,
	// so they are safe to echo as detail.
	switch {
	case errors.Is(err, models.ErrInvalidJSON):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	case errors.Is(err, solitaire.ErrMalformedDeck),
		errors.Is(err, solitaire.ErrInvalidToken),
		errors.Is(err, models.ErrInvalidDeck):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid deck", "detail": err.Error()})
		return
	case errors.Is(err, solitaire.ErrInvalidCiphertext):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid ciphertext", "detail": err.Error()})
		return
	case errors.Is(err, models.ErrInvalidPolicy):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid decrypt policy"})
		return
	case errors.Is(err, models.ErrInvalidDirection):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid direction"})
		return
	case errors.Is(err, models.ErrInvalidDeckName):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "deck name must be 1-64 characters"})
		return
	case errors.Is(err, models.ErrDeckNameTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "deck name already taken"})
		return
	case errors.Is(err, models.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	case errors.Is(err, models.ErrMessageTooLong):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too long"})
		return
	}

	// Unknown/internal errors (including keystream exhaustion): log details,
	// return a generic message.
	logger.Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
