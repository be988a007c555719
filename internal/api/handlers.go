package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/UkralStul/animeblog-service/internal/dataloader"
	"github.com/UkralStul/animeblog-service/internal/domain"
	"github.com/UkralStul/animeblog-service/internal/storage"
)

// MetricsInterface defines the metrics the API records.
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	RecordCreated(ctx context.Context, entity string)
}

type Handler struct {
	store   storage.Storage
	logger  *zap.SugaredLogger
	metrics MetricsInterface
}

func NewHandler(store storage.Storage, logger *zap.SugaredLogger, metrics MetricsInterface) *Handler {
	return &Handler{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Anime endpoints

func (h *Handler) AddAnime(w http.ResponseWriter, r *http.Request) {
	var req AddAnimeRequest
	if !h.decode(w, r, &req) {
		return
	}

	anime := &domain.Anime{Title: req.Title, Description: req.Description, Image: req.Image}
	if _, err := h.store.CreateAnime(r.Context(), anime); err != nil {
		h.internalError(w, r, "create anime", err)
		return
	}
	h.metrics.RecordCreated(r.Context(), "anime")

	h.writeJSON(w, http.StatusOK, msgAnimeAdded)
}

func (h *Handler) GetAnime(w http.ResponseWriter, r *http.Request) {
	anime, err := h.store.ListAnime(r.Context())
	if err != nil {
		h.internalError(w, r, "list anime", err)
		return
	}
	h.writeJSON(w, http.StatusOK, serializeAnimeList(anime))
}

// User endpoints

func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user := &domain.User{UserName: req.UserName, Password: req.Password}
	if _, err := h.store.CreateUser(r.Context(), user); err != nil {
		h.internalError(w, r, "create user", err)
		return
	}
	h.metrics.RecordCreated(r.Context(), "user")

	h.writeJSON(w, http.StatusOK, msgUserAdded)
}

// GetUsers lists every user with blogs and reviews nested.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.internalError(w, r, "list users", err)
		return
	}

	loaders := dataloader.For(ctx)
	if loaders == nil {
		loaders = dataloader.New(h.store)
	}

	userIDs := make([]uint, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}
	blogsByUser, err := loaders.Blogs(ctx, userIDs)
	if err != nil {
		h.internalError(w, r, "load blogs", err)
		return
	}

	var blogIDs []uint
	for _, id := range userIDs {
		for _, b := range blogsByUser[id] {
			blogIDs = append(blogIDs, b.ID)
		}
	}
	reviewsByBlog, err := loaders.Reviews(ctx, blogIDs)
	if err != nil {
		h.internalError(w, r, "load reviews", err)
		return
	}

	h.writeJSON(w, http.StatusOK, serializeUsers(users, blogsByUser, reviewsByBlog))
}

// Login only checks that a user with the submitted name exists. The password
// is not compared against the stored one.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		h.writeJSON(w, http.StatusOK, msgNotJSON)
		return
	}

	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.store.FindUserByName(r.Context(), req.UserName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.writeJSON(w, http.StatusOK, msgNoUser)
	case err != nil:
		h.internalError(w, r, "find user", err)
	default:
		h.writeJSON(w, http.StatusOK, msgLoggedIn)
	}
}

// Blog and review endpoints

func (h *Handler) AddBlog(w http.ResponseWriter, r *http.Request) {
	var req AddBlogRequest
	if !h.decode(w, r, &req) {
		return
	}

	blog := &domain.Blog{Characters: req.Characters, UserFK: req.UserFK}
	if _, err := h.store.CreateBlog(r.Context(), blog); err != nil {
		h.internalError(w, r, "create blog", err)
		return
	}
	h.metrics.RecordCreated(r.Context(), "blog")

	h.writeJSON(w, http.StatusOK, msgBlogAdded)
}

func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req AddReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	review := &domain.Review{Post: req.Post, ReviewFK: req.ReviewFK}
	if _, err := h.store.CreateReview(r.Context(), review); err != nil {
		h.internalError(w, r, "create review", err)
		return
	}
	h.metrics.RecordCreated(r.Context(), "review")

	h.writeJSON(w, http.StatusOK, msgReviewAdded)
}

// Health endpoints

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warnw("Readiness check failed", "error", err)
		http.Error(w, "NOT READY", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// maxBodyBytes caps request bodies; no column holds more than 144 characters.
const maxBodyBytes = 1 << 20

var errNullBody = errors.New("request body is JSON null")

// decode reads a JSON object body into dst. It answers the request itself and
// returns false when the body is oversized (413), not valid JSON (400) or a
// literal null (500, there is no object to read fields from).
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return false
		}
		h.rejectBody(w, r, err)
		return false
	}

	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		h.internalError(w, r, "decode body", errNullBody)
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		h.rejectBody(w, r, err)
		return false
	}
	return true
}

func (h *Handler) rejectBody(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debugw("Rejected request body",
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	http.Error(w, "Failed to decode JSON object: "+err.Error(), http.StatusBadRequest)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorw("Failed to encode response", "error", err)
	}
}

// internalError logs err and answers a bare 500 with no JSON envelope.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Errorw("Request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", fmt.Errorf("%s: %w", op, err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
