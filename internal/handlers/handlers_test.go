package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"solitaire-cipher/backend/internal/config"
	"solitaire-cipher/backend/internal/database"
	"solitaire-cipher/backend/internal/middleware"
	"solitaire-cipher/backend/internal/solitaire"
	ws "solitaire-cipher/backend/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	r        *gin.Engine
	db       *sql.DB
	sessions *SessionManager
	cfg      config.Config
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		JWTSecret:           "test-secret",
		JWTIssuer:           "solitaire-cipher",
		JWTTTL:              time.Hour,
		AppEnv:              "test",
		KeystreamMaxRetries: solitaire.DefaultMaxRetries,
		SessionIdleTTL:      time.Minute,
		MaxMessageLetters:   1000,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	db, err := database.OpenAndMigrate(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := NewSessionManager(cfg.SessionIdleTTL, cfg.KeystreamMaxRetries)
	r := gin.New()
	api := r.Group("/api")
	RegisterAuthRoutes(api, db, cfg)
	RegisterCipherRoutes(api, db, cfg)
	protected := api.Group("")
	protected.Use(middleware.RequireAuth(cfg))
	RegisterDeckRoutes(protected, db, cfg)
	RegisterSessionRoutes(protected, db, sessions, cfg)

	return &testServer{r: r, db: db, sessions: sessions, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "correct horse"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func orderedCards() []int { return solitaire.OrderedDeck().Render() }

func TestStatelessCipher(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/cipher/encrypt", "", gin.H{"cards": orderedCards(), "text": "Hello, World!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp cipherResponse
	decode(t, w, &resp)
	require.Equal(t, cipherResponse{Result: "LBVJWVFXRU", Letters: 10}, resp)

	w = s.do(t, http.MethodPost, "/api/cipher/decrypt", "", gin.H{"deck": solitaire.OrderedDeck().String(), "text": "LBVJWVFXRU"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	require.Equal(t, "HELLOWORLD", resp.Result)
}

func TestStatelessCipherErrors(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MaxMessageLetters = 5 })

	cases := []struct {
		name string
		path string
		body gin.H
		code int
		msg  string
	}{
		{"no deck", "/api/cipher/encrypt", gin.H{"text": "abc"}, http.StatusBadRequest, "invalid deck"},
		{"both decks", "/api/cipher/encrypt", gin.H{"cards": orderedCards(), "deck": "1 2", "text": "abc"}, http.StatusBadRequest, "invalid deck"},
		{"short deck", "/api/cipher/encrypt", gin.H{"cards": []int{1, 2, 3}, "text": "abc"}, http.StatusBadRequest, "invalid deck"},
		{"bad token", "/api/cipher/encrypt", gin.H{"deck": "1 2 x", "text": "abc"}, http.StatusBadRequest, "invalid deck"},
		{"strict decrypt", "/api/cipher/decrypt", gin.H{"cards": orderedCards(), "text": "PUW-T"}, http.StatusBadRequest, "invalid ciphertext"},
		{"bad policy", "/api/cipher/decrypt", gin.H{"cards": orderedCards(), "text": "LBVJ", "policy": "lenient"}, http.StatusBadRequest, "invalid decrypt policy"},
		{"too long", "/api/cipher/encrypt", gin.H{"cards": orderedCards(), "text": "abcdef"}, http.StatusRequestEntityTooLarge, "message too long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tc.path, "", tc.body)
			require.Equal(t, tc.code, w.Code, w.Body.String())
			var resp map[string]any
			decode(t, w, &resp)
			require.Equal(t, tc.msg, resp["error"])
		})
	}
}

func TestDecryptStripPolicy(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/cipher/decrypt", "", gin.H{"cards": orderedCards(), "text": "LBVJW VFXRU", "policy": "strip"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp cipherResponse
	decode(t, w, &resp)
	require.Equal(t, "HELLOWORLD", resp.Result)
}

func TestDecryptPassPolicyCountsLetters(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/cipher/decrypt", alice, gin.H{"cards": orderedCards(), "text": "LBVJW, VFXRU!", "policy": "pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp cipherResponse
	decode(t, w, &resp)
	require.Equal(t, cipherResponse{Result: "HELLO, WORLD!", Letters: 10}, resp)

	w = s.do(t, http.MethodPost, "/api/decks", alice, gin.H{"name": "ordered", "cards": orderedCards()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &saved)
	w = s.do(t, http.MethodPost, "/api/decks/"+strconv.FormatInt(saved.ID, 10)+"/decrypt", alice, gin.H{"text": "LBVJ W!", "policy": "pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	require.Equal(t, cipherResponse{Result: "HELL O!", Letters: 5}, resp)

	w = s.do(t, http.MethodGet, "/api/me/usage", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		LettersDecrypted int64 `json:"letters_decrypted"`
	}
	decode(t, w, &usage)
	require.Equal(t, int64(15), usage.LettersDecrypted)
}

func TestKeystreamPreview(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/deck/keystream", "", gin.H{"cards": orderedCards(), "count": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Keys []int `json:"keys"`
		Deck []int `json:"deck"`
	}
	decode(t, w, &resp)
	require.Equal(t, []int{4, 23, 10, 24, 8, 25, 17, 6, 6, 17}, resp.Keys)
	_, err := solitaire.NewDeck(resp.Deck)
	require.NoError(t, err)

	w = s.do(t, http.MethodPost, "/api/deck/keystream", "", gin.H{"cards": orderedCards(), "count": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRandomDeck(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/deck/random", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Cards []int  `json:"cards"`
		Deck  string `json:"deck"`
	}
	decode(t, w, &resp)
	d, err := solitaire.NewDeck(resp.Cards)
	require.NoError(t, err)
	parsed, err := solitaire.ParseDeck(resp.Deck)
	require.NoError(t, err)
	require.True(t, d.Equal(parsed))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "password": "another pass"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong password"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Result().Cookies())

	w = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, w, &me)
	require.Equal(t, "alice", me.User.Username)

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", "", nil).Code)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/auth/logout", "", nil).Code)
}

func TestSavedDecksAndUsage(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/decks", alice, gin.H{"name": "ordered", "cards": orderedCards()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved struct {
		ID    int64 `json:"id"`
		Cards []int `json:"cards"`
	}
	decode(t, w, &saved)
	require.Equal(t, orderedCards(), saved.Cards)

	w = s.do(t, http.MethodPost, "/api/decks", alice, gin.H{"name": "ordered", "random": true})
	require.Equal(t, http.StatusConflict, w.Code)
	w = s.do(t, http.MethodPost, "/api/decks", alice, gin.H{"name": "shuffled", "random": true})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/decks", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Decks []json.RawMessage `json:"decks"`
	}
	decode(t, w, &list)
	require.Len(t, list.Decks, 2)

	deckPath := "/api/decks/" + strconv.FormatInt(saved.ID, 10)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, deckPath, bob, nil).Code)

	// Each call restarts from the stored deck.
	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, deckPath+"/encrypt", alice, gin.H{"text": "Hello, World!"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp cipherResponse
		decode(t, w, &resp)
		require.Equal(t, "LBVJWVFXRU", resp.Result)
	}
	w = s.do(t, http.MethodPost, deckPath+"/decrypt", alice, gin.H{"text": "LBVJW"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Anonymous calls are not recorded; authenticated stateless calls are.
	s.do(t, http.MethodPost, "/api/cipher/encrypt", "", gin.H{"cards": orderedCards(), "text": "abc"})
	s.do(t, http.MethodPost, "/api/cipher/encrypt", alice, gin.H{"cards": orderedCards(), "text": "abc"})

	w = s.do(t, http.MethodGet, "/api/me/usage", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		Operations       int64 `json:"operations"`
		LettersEncrypted int64 `json:"letters_encrypted"`
		LettersDecrypted int64 `json:"letters_decrypted"`
	}
	decode(t, w, &usage)
	require.Equal(t, int64(4), usage.Operations)
	require.Equal(t, int64(23), usage.LettersEncrypted)
	require.Equal(t, int64(5), usage.LettersDecrypted)

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, deckPath, bob, nil).Code)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, deckPath, alice, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, deckPath, alice, nil).Code)
}

func TestSessionContinuesKeystream(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/sessions", alice, gin.H{"cards": orderedCards()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view SessionView
	decode(t, w, &view)
	require.NotEmpty(t, view.ID)
	require.Zero(t, view.KeysDrawn)
	path := "/api/sessions/" + view.ID

	var out string
	for _, part := range []string{"Hello, ", "World!"} {
		w = s.do(t, http.MethodPost, path+"/encrypt", alice, gin.H{"text": part})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Result string `json:"result"`
		}
		decode(t, w, &resp)
		out += resp.Result
	}
	require.Equal(t, "LBVJWVFXRU", out)

	w = s.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	require.Equal(t, 10, view.KeysDrawn)

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, bob, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, path+"/encrypt", bob, gin.H{"text": "x"}).Code)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, alice, nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, alice, nil).Code)
}

func TestSessionFromSavedDeck(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/decks", alice, gin.H{"name": "ordered", "cards": orderedCards()})
	require.Equal(t, http.StatusCreated, w.Code)
	var saved struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &saved)

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/sessions", bob, gin.H{"deck_id": saved.ID}).Code)
	require.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/sessions", alice, gin.H{"deck_id": saved.ID, "cards": orderedCards()}).Code)

	w = s.do(t, http.MethodPost, "/api/sessions", alice, gin.H{"deck_id": saved.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view SessionView
	decode(t, w, &view)
	require.NotNil(t, view.DeckID)
	require.Equal(t, saved.ID, *view.DeckID)

	w = s.do(t, http.MethodGet, "/api/sessions", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []SessionView `json:"sessions"`
	}
	decode(t, w, &list)
	require.Len(t, list.Sessions, 1)
}

func TestWebSocketPreconditions(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice")
	noHub := func() (*ws.Hub, bool) { return nil, false }
	s.r.GET("/ws", WebSocketHandler(noHub, s.db, s.sessions, s.cfg))

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/ws", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/ws", "not-a-jwt", nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/ws?session=missing", alice, nil).Code)
	require.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodGet, "/ws", alice, nil).Code)
}
