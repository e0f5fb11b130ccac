package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/models"
	"solitaire-cipher/backend/internal/solitaire"
	"solitaire-cipher/backend/internal/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxPreviewKeys = 1024

// deckInput is the inline deck accepted by the stateless endpoints: either
// 28 integers or the whitespace separated text format.
type deckInput struct {
	Cards []int  `json:"cards,omitempty"`
	Deck  string `json:"deck,omitempty"`
}

func (in deckInput) build() (*solitaire.Deck, error) {
	switch {
	case len(in.Cards) > 0 && in.Deck != "":
		return nil, fmt.Errorf("%w: give cards or deck, not both", models.ErrInvalidDeck)
	case len(in.Cards) > 0:
		return solitaire.NewDeck(in.Cards)
	case in.Deck != "":
		return solitaire.ParseDeck(in.Deck)
	default:
		return nil, fmt.Errorf("%w: cards or deck required", models.ErrInvalidDeck)
	}
}

type cipherRequest struct {
	deckInput
	Text   string `json:"text"`
	Policy string `json:"policy,omitempty"` // decrypt only: strict|strip|pass
}

type cipherResponse struct {
	Result  string `json:"result"`
	Letters int    `json:"letters"`
}

func parsePolicy(s string) (solitaire.DecryptPolicy, error) {
	p, err := solitaire.ParseDecryptPolicy(s)
	if err != nil {
		return p, fmt.Errorf("%w: %v", models.ErrInvalidPolicy, err)
	}
	return p, nil
}

// runCipher applies one direction of c to text inside a tracing span. It also
// returns how many keys the call drew, one per letter transformed.
func runCipher(ctx context.Context, c *solitaire.Cipher, direction, text string, maxLetters int) (string, int, error) {
	letters := solitaire.CountLetters(text)
	if maxLetters > 0 && letters > maxLetters {
		return "", 0, models.ErrMessageTooLong
	}
	before := c.Keystream().Drawn()

	_, span := tracing.StartSpan(ctx, "solitaire."+direction,
		attribute.String("cipher.direction", direction),
		attribute.Int("cipher.letters", letters),
	)
	var out string
	var err error
	switch direction {
	case models.DirectionEncrypt:
		out, err = c.Encrypt(text)
	case models.DirectionDecrypt:
		out, err = c.Decrypt(text)
	default:
		err = models.ErrInvalidDirection
	}
	drawn := c.Keystream().Drawn() - before
	span.SetAttributes(attribute.Int("cipher.keys_drawn", drawn))
	tracing.EndSpan(span, err)
	return out, drawn, err
}

// CipherHandler serves the stateless encrypt/decrypt endpoints: every call
// starts from the deck in the request body. Authenticated callers get the
// call recorded in their usage.
func CipherHandler(db *sql.DB, cfg config.Config, direction string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cipherRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeAPIError(c, models.ErrInvalidJSON)
			return
		}
		d, err := req.build()
		if err != nil {
			writeAPIError(c, err)
			return
		}
		policy, err := parsePolicy(req.Policy)
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
		if userID, ok := userIDFromContext(c); ok {
			recordUsage(db, userID, nil, direction, letters)
		}
		c.JSON(http.StatusOK, cipherResponse{Result: out, Letters: letters})
	}
}

func RandomDeckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := solitaire.NewRandomDeck()
		c.JSON(http.StatusOK, gin.H{"cards": d.Render(), "deck": d.String()})
	}
}

type keystreamRequest struct {
	deckInput
	Count int `json:"count"`
}

// KeystreamHandler previews the first count keys of a deck and the deck state
// after drawing them.
func KeystreamHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req keystreamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeAPIError(c, models.ErrInvalidJSON)
			return
		}
		if req.Count <= 0 || req.Count > maxPreviewKeys {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("count must be 1-%d", maxPreviewKeys)})
			return
		}
		d, err := req.build()
		if err != nil {
			writeAPIError(c, err)
			return
		}

		_, span := tracing.StartSpan(c.Request.Context(), "solitaire.keystream", attribute.Int("cipher.count", req.Count))
		ks := solitaire.NewKeystream(d, solitaire.WithMaxRetries(cfg.KeystreamMaxRetries))
		keys, err := ks.Keys(req.Count)
		tracing.EndSpan(span, err)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"keys": keys, "deck": ks.Deck().Render()})
	}
}
