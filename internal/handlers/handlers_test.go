package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"closer-backend/internal/auth"
	"closer-backend/internal/middleware"
	"closer-backend/internal/models"
	"closer-backend/internal/repository"
	"closer-backend/internal/repository/memstore"
	"closer-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type outbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (o *outbox) SendVerification(_ context.Context, to, verifyURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links[to] = verifyURL
	return nil
}

func (o *outbox) token(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	link, ok := o.links[email]
	require.True(t, ok, "no mail sent to %s", email)
	return link[strings.LastIndex(link, "/")+1:]
}

type apiTest struct {
	t      *testing.T
	server *httptest.Server
	store  *repository.Store
	mail   *outbox
}

func newAPITest(t *testing.T, limiter *middleware.RateLimiter) *apiTest {
	t.Helper()
	store := memstore.NewRepositories()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	mail := &outbox{links: map[string]string{}}

	router := NewRouter(RouterDeps{
		Users:       services.NewUserService(store.Users, hasher, auth.NewJWTManager("handler-secret"), mail, "https://closer.test", nil),
		Pairs:       services.NewPairService(store.Users, nil),
		Daily:       services.NewDailyService(store, nil),
		Memories:    services.NewMemoryService(store, nil, nil),
		Accounts:    services.NewAccountService(store.Accounts, nil),
		AuthLimiter: limiter,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &apiTest{t: t, server: server, store: store, mail: mail}
}

// call sends a JSON request and decodes the JSON response into out when out is non-nil
func (a *apiTest) call(method, path, token string, body any, out any) int {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signIn runs signup, verify and login and returns the session token
func (a *apiTest) signIn(email string) string {
	a.t.Helper()
	creds := CredentialsRequest{Email: email, Password: "pw-" + email}
	require.Equal(a.t, http.StatusOK, a.call(http.MethodPost, "/api/auth/signup", "", creds, nil))
	require.Equal(a.t, http.StatusOK, a.call(http.MethodGet, "/api/auth/verify/"+a.mail.token(a.t, email), "", nil, nil))

	var login LoginResponse
	require.Equal(a.t, http.StatusOK, a.call(http.MethodPost, "/api/auth/login", "", creds, &login))
	require.NotEmpty(a.t, login.Token)
	return login.Token
}

func (a *apiTest) pair(tokenA, tokenB string) string {
	a.t.Helper()
	var invite InviteCodeResponse
	require.Equal(a.t, http.StatusOK, a.call(http.MethodPost, "/api/invite/generate", tokenA, nil, &invite))
	var used UseInviteResponse
	require.Equal(a.t, http.StatusOK, a.call(http.MethodPost, "/api/invite/use", tokenB, UseInviteRequest{InviteCode: invite.InviteCode}, &used))
	return used.CoupleID
}

func TestHealthz(t *testing.T) {
	api := newAPITest(t, nil)

	var body map[string]string
	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	api := newAPITest(t, nil)
	creds := CredentialsRequest{Email: "a@x.com", Password: "secret"}

	var msg MessageResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/signup", "", creds, &msg))
	assert.NotEmpty(t, msg.Message)

	var errBody models.ErrorBody
	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodPost, "/api/auth/signup", "", creds, &errBody))
	assert.Equal(t, "DUPLICATE_EMAIL", errBody.Error.Code)

	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusForbidden, api.call(http.MethodPost, "/api/auth/login", "", creds, &errBody))
	assert.Equal(t, "NOT_VERIFIED", errBody.Error.Code)

	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodGet, "/api/auth/verify/nope", "", nil, &errBody))
	assert.Equal(t, "INVALID_TOKEN", errBody.Error.Code)

	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/auth/verify/"+api.mail.token(t, "a@x.com"), "", nil, nil))

	errBody = models.ErrorBody{}
	wrong := CredentialsRequest{Email: "a@x.com", Password: "nope"}
	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodPost, "/api/auth/login", "", wrong, &errBody))
	assert.Equal(t, "INVALID_CREDENTIALS", errBody.Error.Code)

	var login LoginResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/auth/login", "", creds, &login))
	assert.NotEmpty(t, login.Token)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	api := newAPITest(t, nil)

	var errBody models.ErrorBody
	assert.Equal(t, http.StatusUnauthorized, api.call(http.MethodGet, "/api/memoryfeed", "", nil, &errBody))
	assert.Equal(t, "UNAUTHORIZED", errBody.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, api.call(http.MethodDelete, "/api/user", "garbage", nil, nil))
}

func TestCoupleDay(t *testing.T) {
	api := newAPITest(t, nil)
	require.NoError(t, api.store.Questions.Sync(context.Background(), []models.Question{
		{ID: "only", Position: 1, Text: "What made you laugh?", Category: "fun", IsActive: true},
	}))
	alice := api.signIn("alice@x.com")
	bob := api.signIn("bob@x.com")

	var errBody models.ErrorBody
	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodPost, "/api/memoryfeed", alice, PostMemoryRequest{Text: "hi"}, &errBody))
	assert.Equal(t, "NOT_PAIRED", errBody.Error.Code)

	coupleID := api.pair(alice, bob)
	assert.NotEmpty(t, coupleID)

	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodPost, "/api/invite/generate", alice, nil, &errBody))
	assert.Equal(t, "ALREADY_PAIRED", errBody.Error.Code)

	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusNotFound, api.call(http.MethodGet, "/api/mood/partner", alice, nil, &errBody))
	assert.Equal(t, "MOOD_NOT_SET_TODAY", errBody.Error.Code)

	var mood MoodResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/mood", bob, SetMoodRequest{Color: "#FFAA00"}, &mood))
	assert.Equal(t, "#FFAA00", mood.Mood.Color)

	var partnerMood PartnerMoodResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/mood/partner", alice, nil, &partnerMood))
	assert.Equal(t, "#FFAA00", partnerMood.PartnerMood.Color)

	var question QuestionResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/question/today", alice, nil, &question))
	assert.Equal(t, QuestionView{ID: "only", Text: "What made you laugh?", Category: "fun"}, question.Question)

	var answer AnswerResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodPost, "/api/question/answer", alice,
		SubmitAnswerRequest{AnswerText: "Your dance", QuestionID: "only"}, &answer))
	assert.Equal(t, "Your dance", answer.Answer.AnswerText)

	var partnerAnswer PartnerAnswerResponse
	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/question/partner", bob, nil, &partnerAnswer))
	assert.Equal(t, "Your dance", partnerAnswer.PartnerAnswer.AnswerText)

	var posted MemoryResponse
	assert.Equal(t, http.StatusCreated, api.call(http.MethodPost, "/api/memoryfeed", bob, PostMemoryRequest{Text: "picnic"}, &posted))
	assert.Equal(t, "#FFAA00", posted.Memory.Color)

	var feed services.MemoryPage
	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/api/memoryfeed?page=abc&limit=5", alice, nil, &feed))
	require.Len(t, feed.Memories, 1)
	assert.Equal(t, "bob@x.com", feed.Memories[0].AuthorEmail)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 5, Total: 1, HasMore: false}, feed.Pagination)

	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusNotFound, api.call(http.MethodDelete, "/api/memoryfeed/"+posted.Memory.ID, alice, nil, &errBody))
	assert.Equal(t, "MEMORY_NOT_FOUND", errBody.Error.Code)
	assert.Equal(t, http.StatusOK, api.call(http.MethodDelete, "/api/memoryfeed/"+posted.Memory.ID, bob, nil, nil))

	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusServiceUnavailable, api.call(http.MethodPost, "/api/memoryfeed/photo-upload", bob,
		PhotoUploadRequest{ContentType: "image/png"}, &errBody))
	assert.Equal(t, "PHOTO_UPLOADS_DISABLED", errBody.Error.Code)

	assert.Equal(t, http.StatusOK, api.call(http.MethodDelete, "/api/user", alice, nil, nil))
	errBody = models.ErrorBody{}
	assert.Equal(t, http.StatusNotFound, api.call(http.MethodGet, "/api/mood/partner", bob, nil, &errBody))
	assert.Equal(t, "NO_PARTNER", errBody.Error.Code)
}

func TestMalformedBody(t *testing.T) {
	api := newAPITest(t, nil)

	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/api/auth/login", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var errBody models.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errBody.Error.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 2, time.Minute)
	t.Cleanup(limiter.Stop)
	api := newAPITest(t, limiter)
	creds := CredentialsRequest{Email: "nobody@x.com", Password: "pw"}

	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodPost, "/api/auth/login", "", creds, nil))
	assert.Equal(t, http.StatusBadRequest, api.call(http.MethodPost, "/api/auth/login", "", creds, nil))

	var errBody models.ErrorBody
	assert.Equal(t, http.StatusTooManyRequests, api.call(http.MethodPost, "/api/auth/login", "", creds, &errBody))
	assert.Equal(t, "RATE_LIMITED", errBody.Error.Code)

	assert.Equal(t, http.StatusOK, api.call(http.MethodGet, "/healthz", "", nil, nil))
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/memoryfeed", nil)

	respondError(rec, req, errors.New("pq: connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	var errBody models.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "INTERNAL_ERROR", errBody.Error.Code)
}

func TestAuthFlow_LogsEachEventOnce(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	api := newAPITest(t, nil)
	api.signIn("a@x.com")

	assert.Equal(t, 1, strings.Count(buf.String(), "User registered"))
	assert.Equal(t, 1, strings.Count(buf.String(), "Email verified"))
	assert.NotContains(t, buf.String(), "User signed up")
}
