package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"millionaire-quiz-service/internal/app"
	"millionaire-quiz-service/internal/domain"
	"millionaire-quiz-service/internal/game"
	"millionaire-quiz-service/internal/infra/memory"
)

func TestCreateGameRequiresIdentity(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/games", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateGameConflictPointsToActiveGame(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/games", "u1", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[gameView](t, resp)
	assert.Equal(t, domain.StatusInProgress, created.Status)
	require.NotNil(t, created.Question)
	assert.Empty(t, created.Question.CorrectKey)
	assert.Len(t, created.Question.Variants, 4)

	resp = do(t, server, http.MethodPost, "/games", "u1", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "/games/"+created.ID, resp.Header.Get("Location"))
	conflict := decode[errorView](t, resp)
	assert.Equal(t, created.ID, conflict.GameID)
}

func TestOtherUserCannotTouchGame(t *testing.T) {
	server, _ := newTestServer(t)
	created := decode[gameView](t, do(t, server, http.MethodPost, "/games", "u1", nil))

	resp := do(t, server, http.MethodGet, "/games/"+created.ID, "u2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/games/"+created.ID+"/answer", "u2", answerRequest{Letter: "a"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/games/"+created.ID+"/take_money", "u2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/games/"+created.ID, "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[gameView](t, resp).CurrentLevel)
}

func TestAnswerAndTakeMoney(t *testing.T) {
	server, service := newTestServer(t)
	created := decode[gameView](t, do(t, server, http.MethodPost, "/games", "u1", nil))

	resp := do(t, server, http.MethodPut, "/games/"+created.ID+"/take_money", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/games/"+created.ID+"/answer", "u1", answerRequest{Letter: "z"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	key := correctKey(t, service, created.ID)
	resp = do(t, server, http.MethodPut, "/games/"+created.ID+"/answer", "u1", answerRequest{Letter: key})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	answered := decode[answerView](t, resp)
	assert.True(t, answered.Correct)
	assert.Equal(t, 1, answered.Game.CurrentLevel)

	resp = do(t, server, http.MethodPut, "/games/"+created.ID+"/take_money", "u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	taken := decode[gameView](t, resp)
	assert.Equal(t, domain.StatusMoney, taken.Status)
	require.NotNil(t, taken.Question)
	assert.NotEmpty(t, taken.Question.CorrectKey)

	resp = do(t, server, http.MethodPut, "/games/"+created.ID+"/answer", "u1", answerRequest{Letter: "a"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	profile := decode[domain.Profile](t, do(t, server, http.MethodGet, "/users/u1", "u1", nil))
	assert.True(t, profile.Own)
	assert.Equal(t, int64(100), profile.User.Balance)
	require.Len(t, profile.Games, 1)
	assert.Equal(t, domain.StatusMoney, profile.Games[0].Status)
}

func TestHelpOncePerGame(t *testing.T) {
	server, _ := newTestServer(t)
	created := decode[gameView](t, do(t, server, http.MethodPost, "/games", "u1", nil))
	path := "/games/" + created.ID + "/help"

	resp := do(t, server, http.MethodPut, path, "u1", helpRequest{HelpType: "phone_a_stranger"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, server, http.MethodPut, path, "u1", helpRequest{HelpType: domain.HelpFiftyFifty})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	helped := decode[gameView](t, resp)
	assert.Equal(t, []domain.HelpType{domain.HelpFiftyFifty}, helped.HelpsUsed)
	require.NotNil(t, helped.Question)
	assert.Len(t, helped.Question.Help.FiftyFifty, 2)
	assert.Empty(t, helped.Question.CorrectKey)

	resp = do(t, server, http.MethodPut, path, "u1", helpRequest{HelpType: domain.HelpFiftyFifty})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUsersEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/users", "", registerRequest{ID: "u3", Name: "Sasha"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/users", "", registerRequest{ID: "u3", Name: "Again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/users", "", registerRequest{ID: "u4"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	users := decode[[]domain.User](t, do(t, server, http.MethodGet, "/users", "", nil))
	assert.Len(t, users, 3)

	profile := decode[domain.Profile](t, do(t, server, http.MethodGet, "/users/u1", "u2", nil))
	assert.False(t, profile.Own)
	assert.Empty(t, profile.Games)

	resp = do(t, server, http.MethodGet, "/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	prizes := decode[[]game.Level](t, do(t, server, http.MethodGet, "/prizes", "", nil))
	assert.Len(t, prizes, 15)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotAuthorized, http.StatusForbidden},
		{domain.ErrGameNotFound, http.StatusNotFound},
		{domain.ErrAlreadyFinished, http.StatusConflict},
		{domain.ErrHelpAlreadyUsed, http.StatusConflict},
		{&domain.ExistingGameError{GameID: "g1"}, http.StatusConflict},
		{domain.ErrInvalidLevel, http.StatusUnprocessableEntity},
		{domain.ErrInvalidAnswer, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrTimeExpired), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.GameService) {
	t.Helper()
	store := memory.NewStore()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleQuestions(15)), time.Minute)
	machine := game.NewMachine(game.DefaultPrizeTable(), game.WithSeed(7), game.WithTimeLimit(35*time.Minute))
	service := app.NewGameService(store, store, questions, machine)
	for _, id := range []string{"u1", "u2"} {
		_, err := service.RegisterUser(context.Background(), id, "Player "+id)
		require.NoError(t, err)
	}

	log := zap.NewNop().Sugar()
	mux := http.NewServeMux()
	NewAPIHandler(service, log).Register(mux)
	mux.HandleFunc("GET /ws", NewWSHandler(service, log).ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func do(t *testing.T, server *httptest.Server, method, path, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func correctKey(t *testing.T, service *app.GameService, gameID string) string {
	t.Helper()
	g, err := service.Game(context.Background(), "u1", gameID)
	require.NoError(t, err)
	return g.CurrentQuestion().CorrectKey
}

func sampleQuestions(levels int) []domain.Question {
	out := make([]domain.Question, 0, levels)
	for level := 0; level < levels; level++ {
		out = append(out, domain.Question{
			ID:      fmt.Sprintf("q%d", level),
			Level:   level,
			Text:    fmt.Sprintf("Question %d?", level),
			Answers: [4]string{"right", "wrong 1", "wrong 2", "wrong 3"},
		})
	}
	return out
}
