package auth

// AuthCookieName is the httpOnly cookie carrying the session token for
// browser clients. HTTP middleware and the websocket upgrade both read it.
const AuthCookieName = "sc_token"
