package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tgblog/apiserver/internal/auth"
	"github.com/tgblog/apiserver/internal/logutil"
)

const (
	maxLoginBodyBytes = 64 << 10

	msgInvalidLogin = "invalid username or password"
	msgUnauthorized = "could not validate credentials"
	bearerChallenge = "Bearer"
	tokenTypeBearer = "bearer"
)

// AuthHandler exchanges admin credentials for bearer tokens and guards
// protected routes.
type AuthHandler struct {
	authenticator *auth.Authenticator
	codec         *auth.TokenCodec
	sessions      *auth.SessionValidator
	tokenTTL      time.Duration
}

func NewAuthHandler(
	authenticator *auth.Authenticator,
	codec *auth.TokenCodec,
	sessions *auth.SessionValidator,
	tokenTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		codec:         codec,
		sessions:      sessions,
		tokenTTL:      tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/token", handler.Login)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved identity in the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			var identity auth.Identity
			identity, err = h.sessions.Resolve(token)
			if err == nil {
				ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		log := logutil.GetOrDefault(r.Context())

		log.Debug().Err(err).Msg("bearer authentication rejected")
		writeUnauthorized(w, msgUnauthorized)
	})
}

// Login verifies the admin credentials and returns an access token. It
// accepts the OAuth2 password form as well as a JSON body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseLoginRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	identity, err := h.authenticator.Authenticate(req.Username, req.Password)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Info().Str("username", req.Username).Msg("login rejected")
		writeUnauthorized(w, msgInvalidLogin)
		return
	}

	token, err := h.codec.Issue(identity.Username, h.tokenTTL)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("issue token failed")
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: tokenTypeBearer})
}

// Me returns the identity behind the presented token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func parseLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return LoginRequest{}, err
		}
		return req, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxLoginBodyBytes); err != nil {
			return LoginRequest{}, err
		}
	case "application/x-www-form-urlencoded", "":
		if err := r.ParseForm(); err != nil {
			return LoginRequest{}, err
		}
	default:
		return LoginRequest{}, errors.New("unsupported content type")
	}

	return LoginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", bearerChallenge)
	writeError(w, http.StatusUnauthorized, message)
}
