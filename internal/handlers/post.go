package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tgblog/apiserver/internal/logutil"
	"github.com/tgblog/apiserver/internal/services"
	"github.com/tgblog/apiserver/internal/store"
	"github.com/tgblog/apiserver/types"
)

const (
	defaultPage      = 1
	maxPostBodyBytes = 1 << 20
)

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// PostRouter registers post routes. Reads are public; writes go through
// authMiddleware.
func PostRouter(r chi.Router, posts *services.PostService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPostHandler(posts)

	r.Get("/", handler.ListPosts)
	r.With(authMiddleware).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(authMiddleware).Put("/", handler.UpdatePost)
		r.With(authMiddleware).Delete("/", handler.DeletePost)
	})
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, total, err := h.posts.List(r.Context(), offset, limit)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("list posts failed")
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if posts == nil {
		posts = []types.Post{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeCachedJSON(w, r, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to fetch post")
		return
	}

	writeCachedJSON(w, r, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Title == nil || req.Text == nil {
		writeError(w, http.StatusUnprocessableEntity, "title and text are required")
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	created, err := h.posts.Create(r.Context(), identity.Username, *req.Title, *req.Text)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to create post")
		return
	}

	w.Header().Set("Location", "/posts/"+strconv.Itoa(created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req PostUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	updated, err := h.posts.Patch(r.Context(), id, req.Title, req.Text, identity.Username)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := h.posts.Delete(r.Context(), id, identity.Username); err != nil {
		h.writeServiceError(w, r, err, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, services.ErrInvalidPost):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// PostCreateRequest is the body of POST /posts.
type PostCreateRequest struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
}

// PostUpdateRequest is the body of PUT /posts/{postID}. Absent fields are
// left unchanged.
type PostUpdateRequest struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parsePagination(r *http.Request) (offset, limit int, err error) {
	page := defaultPage
	limit = services.DefaultPageLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if limit > services.MaxPageLimit {
		limit = services.MaxPageLimit
	}

	return (page - 1) * limit, limit, nil
}

func parsePostID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "postID"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid post id")
	}
	return id, nil
}
