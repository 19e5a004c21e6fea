package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"placement-exam-service/internal/app"
	"placement-exam-service/internal/domain"
)

// APIHandler serves the request/response glue around the exam: accounts,
// stored results, and broadcast messages.
type APIHandler struct {
	auth     *app.AuthService
	results  app.ResultStore
	messages app.MessageStore
	logger   *zap.Logger
}

func NewAPIHandler(auth *app.AuthService, results app.ResultStore, messages app.MessageStore, logger *zap.Logger) *APIHandler {
	return &APIHandler{auth: auth, results: results, messages: messages, logger: logger}
}

// Register mounts all REST routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/auth/verify", h.handleVerify)
	mux.HandleFunc("GET /api/results", h.handleListResults)
	mux.HandleFunc("GET /api/results/{id}", h.handleGetResult)
	mux.HandleFunc("GET /api/messages", h.handleListMessages)
	mux.HandleFunc("POST /api/messages", h.handleCreateMessage)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			h.writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		h.serverError(w, r, "register", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.serverError(w, r, "login", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *APIHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	user, err := h.auth.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h.serverError(w, r, "verify", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *APIHandler) handleListResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	results, err := h.results.ListResults(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "list results", err)
		return
	}
	if results == nil {
		results = []domain.Result{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *APIHandler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	result, err := h.results.GetResult(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrResultNotFound) {
			h.writeError(w, http.StatusNotFound, "result not found")
			return
		}
		h.serverError(w, r, "get result", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	messages, err := h.messages.ListMessages(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "list messages", err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type createMessageRequest struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	ReceiverID string `json:"receiverId"`
	Global     bool   `json:"isGlobal"`
}

func (h *APIHandler) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		h.writeError(w, http.StatusBadRequest, "title and body are required")
		return
	}
	message, err := h.messages.CreateMessage(r.Context(), domain.Message{
		SenderID:   userID,
		ReceiverID: req.ReceiverID,
		Title:      req.Title,
		Body:       req.Body,
		Global:     req.Global,
	})
	if err != nil {
		h.serverError(w, r, "create message", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, message)
}

// requireUser resolves the bearer token to a user id or writes a 401.
func (h *APIHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, http.StatusUnauthorized, "missing token")
		return "", false
	}
	userID := h.auth.Identify(token)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return userID, true
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Debug("write response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}

func (h *APIHandler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, zap.String("path", r.URL.Path), zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "internal error")
}
