package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/needley/internal/apperror"
	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/model"
	"github.com/sakif/needley/internal/service"
)

const stateCookieName = "oauth_state"

// GitHubExchanger is the part of *auth.GitHubProvider the handler needs.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves the browser-facing session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, sign the GitHub user in
//   - HandleLogout         → revoke the token and clear the cookie
//   - HandleMe             → return the currently logged-in user
//
// Password login and registration live in the GraphQL API; GitHub sign-in
// needs redirects, which GraphQL cannot express.
type AuthHandler struct {
	github        GitHubExchanger // nil when GitHub sign-in is not configured
	auth          *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	github GitHubExchanger,
	authService *service.AuthService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:        github,
		auth:          authService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the GitHub URL.
// The callback only proceeds when both match, proving the flow started here.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub sign-in is not configured"})
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Sign in, creating the local account on first use
//  4. Set the session cookie and redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub sign-in is not configured"})
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Sign in ---
	if _, err := h.auth.LoginWithGitHub(r.Context(), ghUser); err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 4: Cookie + redirect ---
	auth.WriteSessionCookie(w, auth.SessionFromContext(r.Context()), h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout revokes the caller's token and clears the cookie.
//
// HTTP: POST /auth/logout
//
// POST, not GET: logout changes state, and browsers pre-fetch GET links.
// The token is put on the revocation list, so a copy kept elsewhere stops
// working too.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	auth.WriteSessionCookie(w, auth.SessionFromContext(r.Context()), h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// meResponse is the JSON view of the caller.
type meResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Nickname  string  `json:"nickname"`
	Avatar    string  `json:"avatar,omitempty"`
	LastLogin *string `json:"lastLogin,omitempty"`
}

func newMeResponse(u *model.User) meResponse {
	resp := meResponse{
		ID:       u.ID,
		Username: u.Username,
		Nickname: u.Profile.Nickname,
		Avatar:   u.Profile.Avatar,
	}
	if u.LastLogin != nil {
		s := u.LastLogin.UTC().Format(time.RFC3339)
		resp.LastLogin = &s
	}
	return resp
}

// HandleMe returns the currently authenticated user.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth runs first)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("HandleMe: loading user failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if user == nil {
		// The token outlived its user.
		writeError(w, apperror.NotAuthenticated("valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, newMeResponse(user))
}
