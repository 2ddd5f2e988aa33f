package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"millionaire-quiz-service/internal/app"
	"millionaire-quiz-service/internal/domain"
)

// UserHeader carries the caller's user id on every authenticated request.
const UserHeader = "X-User-ID"

var errUnauthenticated = errors.New("unknown or missing user")

type APIHandler struct {
	service *app.GameService
	log     *zap.SugaredLogger
}

func NewAPIHandler(service *app.GameService, log *zap.SugaredLogger) *APIHandler {
	return &APIHandler{service: service, log: log}
}

// Register mounts the REST routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /prizes", h.prizes)
	mux.HandleFunc("POST /users", h.registerUser)
	mux.HandleFunc("GET /users", h.players)
	mux.HandleFunc("GET /users/{id}", h.profile)
	mux.HandleFunc("POST /games", h.createGame)
	mux.HandleFunc("GET /games/{id}", h.getGame)
	mux.HandleFunc("PUT /games/{id}/answer", h.answer)
	mux.HandleFunc("PUT /games/{id}/help", h.useHelp)
	mux.HandleFunc("PUT /games/{id}/take_money", h.takeMoney)
}

type registerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type answerRequest struct {
	Letter string `json:"letter"`
}

type helpRequest struct {
	HelpType domain.HelpType `json:"helpType"`
}

func (h *APIHandler) prizes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.PrizeTable())
}

func (h *APIHandler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "id and name are required"})
		return
	}
	u, err := h.service.RegisterUser(r.Context(), req.ID, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *APIHandler) players(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Players(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// profile is public; an identified viewer is told whether the page is their own.
func (h *APIHandler) profile(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if r.Header.Get(UserHeader) != "" {
		id, ok := h.identify(w, r)
		if !ok {
			return
		}
		viewerID = id
	}
	p, err := h.service.Profile(r.Context(), viewerID, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p.Games == nil {
		p.Games = []domain.GameSummary{}
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) createGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	g, err := h.service.CreateGame(r.Context(), userID)
	var existing *domain.ExistingGameError
	if errors.As(err, &existing) {
		w.Header().Set("Location", "/games/"+existing.GameID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/games/"+g.ID)
	writeJSON(w, http.StatusCreated, newGameView(g))
}

func (h *APIHandler) getGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	g, err := h.service.Game(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (h *APIHandler) answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid answer payload"})
		return
	}
	res, err := h.service.Answer(r.Context(), userID, r.PathValue("id"), req.Letter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerView{Correct: res.Correct, Game: newGameView(res.Game)})
}

func (h *APIHandler) useHelp(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	var req helpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid help payload"})
		return
	}
	g, err := h.service.UseHelp(r.Context(), userID, r.PathValue("id"), req.HelpType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (h *APIHandler) takeMoney(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	g, err := h.service.TakeMoney(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

// identify resolves the caller from UserHeader and answers 401 when it is
// missing or names no known user.
func (h *APIHandler) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	return identifyUser(w, r, h.service, r.Header.Get(UserHeader))
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, newErrorView(err))
}

func identifyUser(w http.ResponseWriter, r *http.Request, service *app.GameService, userID string) (string, bool) {
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorView{Error: errUnauthenticated.Error()})
		return "", false
	}
	if _, err := service.User(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorView{Error: errUnauthenticated.Error()})
		} else {
			writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
		}
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
