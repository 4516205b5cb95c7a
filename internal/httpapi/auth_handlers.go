package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tau.org/internal/audit"
	"tau.org/internal/auth"
	"tau.org/internal/obs"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token  string     `json:"token"`
	Expiry time.Time  `json:"expiry"`
	User   *auth.User `json:"user"`
}

type loginLinkResponse struct {
	Link   string    `json:"link"`
	Expiry time.Time `json:"expiry"`
}

// handleLogin exchanges a login/password pair for a session. The raw
// token is returned in the body and set as a cookie; it is never
// recoverable afterwards.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "login and password are required")
		return
	}

	user, session, token, err := a.auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		obs.ObserveAuthAttempt("basic", "denied")
		obs.LogAuthFailure(RequestIDFromContext(r.Context()), "basic", err)
		writeAuthError(w, r, err)
		return
	}
	obs.ObserveAuthAttempt("basic", "ok")
	obs.ObserveSessionCreated()
	_ = audit.LogEvent(auth.ContextWithUser(r.Context(), user), audit.EventSessionCreate, map[string]any{
		"session_id": session.ID.String(),
	})

	setSessionCookie(w, token, a.auth.SessionTTL())
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:  token,
		Expiry: session.Expiry,
		User:   user,
	})
}

// handleClearSession destroys the session named by exactly one of the
// bearer header or the session cookie. Supplying both is rejected so a
// caller can never destroy a different session than the one it thinks
// it is naming.
func (a *API) handleClearSession(w http.ResponseWriter, r *http.Request) {
	headerToken := ""
	if h := r.Header.Get("Authorization"); h != "" {
		t, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || t == "" {
			writeError(w, r, http.StatusBadRequest, "authorization header must carry a bearer token")
			return
		}
		headerToken = t
	}
	cookieToken := sessionCookieValue(r)

	var token string
	switch {
	case headerToken != "" && cookieToken != "":
		writeError(w, r, http.StatusBadRequest, "supply one session token at a time, not both header and cookie")
		return
	case headerToken != "":
		token = headerToken
	case cookieToken != "":
		token = cookieToken
	default:
		writeError(w, r, http.StatusBadRequest, "no session token to clear")
		return
	}

	if err := a.auth.DestroySessionByToken(r.Context(), token); err != nil {
		writeAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventSessionDestroy, nil)

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

// handleRedeemLoginLink consumes a single-use login token from the
// magic-link path and starts a session.
func (a *API) handleRedeemLoginLink(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("token")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "login token is required")
		return
	}

	user, session, token, err := a.auth.RedeemLoginLink(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			obs.ObserveLoginLinkRedemption("invalid")
			writeError(w, r, http.StatusUnauthorized, "invalid login token")
		case errors.Is(err, auth.ErrTokenExpired):
			obs.ObserveLoginLinkRedemption("expired")
			writeError(w, r, http.StatusGone, "login token has expired")
		case errors.Is(err, auth.ErrTokenAlreadyUsed):
			obs.ObserveLoginLinkRedemption("used")
			writeError(w, r, http.StatusConflict, "login token has already been used")
		default:
			obs.ObserveLoginLinkRedemption("error")
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	obs.ObserveLoginLinkRedemption("ok")
	obs.ObserveSessionCreated()
	_ = audit.LogEvent(auth.ContextWithUser(r.Context(), user), audit.EventLinkRedeemed, map[string]any{
		"session_id": session.ID.String(),
	})

	setSessionCookie(w, token, a.auth.SessionTTL())
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:  token,
		Expiry: session.Expiry,
		User:   user,
	})
}

// handleIssueLoginLink mints a single-use login link for the target
// user. Restricted to the infrastructure admin.
func (a *API) handleIssueLoginLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	if !caller.IsInfrastructureAdmin() {
		writeError(w, r, http.StatusForbidden, "only the infrastructure admin may issue login links")
		return
	}

	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "user id must be a UUID")
		return
	}

	ctx := auth.ContextWithUser(r.Context(), caller)
	record, token, err := a.auth.IssueLoginLink(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(ctx, audit.EventLinkIssued, map[string]any{
		"target_user_id": userID.String(),
	})

	writeJSON(w, http.StatusCreated, loginLinkResponse{
		Link:   "/auth/login/" + token,
		Expiry: record.Expiry,
	})
}

// handleListSessions enumerates all sessions. Restricted to the
// infrastructure admin.
func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	if !caller.IsInfrastructureAdmin() {
		writeError(w, r, http.StatusForbidden, "only the infrastructure admin may list sessions")
		return
	}

	sessions, err := a.auth.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// authenticate resolves the caller from the Authorization header or
// session cookie. On session authentication the cookie is re-set so
// the client expiry slides with the server one. On failure the error
// response has already been written and ok is false.
func (a *API) authenticate(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	header := r.Header.Get("Authorization")
	cookie := sessionCookieValue(r)
	scheme := credentialScheme(header, cookie)

	user, token, err := a.auth.Authenticate(r.Context(), header, cookie)
	if err != nil {
		result := "denied"
		if statusForAuthError(err) == http.StatusBadRequest {
			result = "bad_request"
		}
		obs.ObserveAuthAttempt(scheme, result)
		obs.LogAuthFailure(RequestIDFromContext(r.Context()), scheme, err)
		writeAuthError(w, r, err)
		return nil, false
	}
	obs.ObserveAuthAttempt(scheme, "ok")
	if token != "" {
		setSessionCookie(w, token, a.auth.SessionTTL())
	}
	return user, true
}

func credentialScheme(header, cookie string) string {
	switch {
	case strings.HasPrefix(header, "Basic "):
		return "basic"
	case strings.HasPrefix(header, "Bearer "):
		return "bearer"
	case header != "":
		return "other"
	case cookie != "":
		return "cookie"
	}
	return "none"
}

// statusForAuthError maps the auth error taxonomy onto HTTP statuses.
// Credential failures are 401 and deliberately vague; header-shape
// failures are 400 and may explain themselves.
func statusForAuthError(err error) int {
	switch {
	case errors.Is(err, auth.ErrNoCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNonASCIIHeader),
		errors.Is(err, auth.ErrBadHeaderSchemeData),
		errors.Is(err, auth.ErrUnsupportedScheme),
		errors.Is(err, auth.ErrBadCredentialEncoding),
		errors.Is(err, auth.ErrNoBasicColonSplit),
		errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusForAuthError(err)
	switch code {
	case http.StatusUnauthorized:
		switch {
		case errors.Is(err, auth.ErrNoCredentials):
			writeError(w, r, code, "authentication required")
		case errors.Is(err, auth.ErrSessionExpired):
			writeError(w, r, code, "session expired")
		default:
			// Never explain which part of the credential failed.
			writeError(w, r, code, "invalid credentials")
		}
	case http.StatusBadRequest:
		writeError(w, r, code, strings.TrimPrefix(err.Error(), "auth: "))
	default:
		writeError(w, r, code, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}
