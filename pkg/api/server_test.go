package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackseek/stackseek/pkg/analysis"
	"github.com/stackseek/stackseek/pkg/auth"
	"github.com/stackseek/stackseek/pkg/config"
	"github.com/stackseek/stackseek/pkg/observability"
	"github.com/stackseek/stackseek/pkg/plans"
	"github.com/stackseek/stackseek/pkg/quota"
	"github.com/stackseek/stackseek/pkg/repos"
	"github.com/stackseek/stackseek/pkg/scm"
	"github.com/stackseek/stackseek/pkg/users"
)

// fakeProfiles implements users.Store and users.TokenStore in memory
type fakeProfiles struct {
	profiles map[string]*users.Profile
	tokens   map[string]string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles: make(map[string]*users.Profile),
		tokens:   make(map[string]string),
	}
}

func (f *fakeProfiles) GetProfile(ctx context.Context, userID string) (*users.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	clone := *profile
	return &clone, nil
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, userID, email string) (bool, error) {
	if _, ok := f.profiles[userID]; ok {
		return false, nil
	}
	f.profiles[userID] = &users.Profile{
		UserID:   userID,
		Email:    email,
		PlanName: plans.DefaultPlanName,
	}
	return true, nil
}

func (f *fakeProfiles) IncrementCount(ctx context.Context, userID string, kind users.ResourceKind) (int64, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return 0, users.ErrUserNotFound
	}
	switch kind {
	case users.ResourceAnalysis:
		profile.AnalysisCount++
		return profile.AnalysisCount, nil
	case users.ResourceRepository:
		profile.RepoCount++
		return profile.RepoCount, nil
	}
	return 0, fmt.Errorf("unknown resource kind: %s", kind)
}

func (f *fakeProfiles) DecrementCount(ctx context.Context, userID string, kind users.ResourceKind) error {
	profile, ok := f.profiles[userID]
	if !ok {
		return users.ErrUserNotFound
	}
	switch kind {
	case users.ResourceAnalysis:
		if profile.AnalysisCount > 0 {
			profile.AnalysisCount--
		}
	case users.ResourceRepository:
		if profile.RepoCount > 0 {
			profile.RepoCount--
		}
	}
	return nil
}

func (f *fakeProfiles) SetPlan(ctx context.Context, userID, planName string) error {
	profile, ok := f.profiles[userID]
	if !ok {
		return users.ErrUserNotFound
	}
	profile.PlanName = planName
	return nil
}

func (f *fakeProfiles) ListTopByAnalysisCount(ctx context.Context, limit int) ([]*users.Profile, error) {
	var result []*users.Profile
	for _, profile := range f.profiles {
		clone := *profile
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AnalysisCount != result[j].AnalysisCount {
			return result[i].AnalysisCount > result[j].AnalysisCount
		}
		return result[i].UserID < result[j].UserID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeProfiles) DeleteProfile(ctx context.Context, userID string) error {
	delete(f.profiles, userID)
	return nil
}

func (f *fakeProfiles) SaveProviderToken(ctx context.Context, userID string, provider scm.Provider, token, username, email string) error {
	if _, ok := f.profiles[userID]; !ok {
		return users.ErrUserNotFound
	}
	f.tokens[userID+"/"+provider.String()] = token
	return nil
}

func (f *fakeProfiles) GetProviderToken(ctx context.Context, userID string, provider scm.Provider) (string, error) {
	if _, ok := f.profiles[userID]; !ok {
		return "", users.ErrUserNotFound
	}
	token, ok := f.tokens[userID+"/"+provider.String()]
	if !ok || token == "" {
		return "", users.ErrTokenNotFound
	}
	return token, nil
}

// fakeRegistry serves plans from a map
type fakeRegistry struct {
	plans map[string]*plans.Plan
}

func (f *fakeRegistry) GetPlan(ctx context.Context, name string) (*plans.Plan, error) {
	plan, ok := f.plans[name]
	if !ok {
		return nil, plans.ErrPlanNotFound
	}
	return plan, nil
}

// fakeRepoStore implements repos.Store in memory
type fakeRepoStore struct {
	repos     map[string]*repos.Repository
	nextID    int
	createErr error
}

func newFakeRepoStore() *fakeRepoStore {
	return &fakeRepoStore{repos: make(map[string]*repos.Repository)}
}

func (f *fakeRepoStore) Create(ctx context.Context, repo *repos.Repository) error {
	if f.createErr != nil {
		return f.createErr
	}
	if repo.ID == "" {
		f.nextID++
		repo.ID = fmt.Sprintf("repo-%d", f.nextID)
	}
	repo.CreatedAt = time.Now()
	clone := *repo
	f.repos[repo.ID] = &clone
	return nil
}

func (f *fakeRepoStore) GetByID(ctx context.Context, id string) (*repos.Repository, error) {
	repo, ok := f.repos[id]
	if !ok {
		return nil, repos.ErrRepoNotFound
	}
	clone := *repo
	return &clone, nil
}

func (f *fakeRepoStore) FindByUserAndURL(ctx context.Context, userID, url string) (*repos.Repository, error) {
	for _, repo := range f.repos {
		if repo.UserID == userID && repo.URL == url {
			clone := *repo
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepoStore) ListByUser(ctx context.Context, userID string) ([]*repos.Repository, error) {
	var result []*repos.Repository
	for _, repo := range f.repos {
		if repo.UserID == userID {
			clone := *repo
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (f *fakeRepoStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.repos[id]; !ok {
		return repos.ErrRepoNotFound
	}
	delete(f.repos, id)
	return nil
}

func (f *fakeRepoStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var removed int64
	for id, repo := range f.repos {
		if repo.UserID == userID {
			delete(f.repos, id)
			removed++
		}
	}
	return removed, nil
}

// fakeAnalysisStore implements analysis.Store in memory
type fakeAnalysisStore struct {
	results   []*analysis.Result
	nextID    int
	createErr error
}

func (f *fakeAnalysisStore) Create(ctx context.Context, result *analysis.Result) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	result.ID = fmt.Sprintf("result-%d", f.nextID)
	result.CreatedAt = time.Now()
	clone := *result
	f.results = append(f.results, &clone)
	return nil
}

func (f *fakeAnalysisStore) ListByUser(ctx context.Context, userID string, limit int) ([]*analysis.Result, error) {
	var result []*analysis.Result
	for _, item := range f.results {
		if item.UserID == userID {
			result = append(result, item)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeAnalysisStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var kept []*analysis.Result
	var removed int64
	for _, item := range f.results {
		if item.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	f.results = kept
	return removed, nil
}

type testEnv struct {
	server    *Server
	profiles  *fakeProfiles
	repoStore *fakeRepoStore
	analyses  *fakeAnalysisStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	profiles := newFakeProfiles()
	registry := &fakeRegistry{plans: map[string]*plans.Plan{
		"free":      {Name: "free", AnalysisLimit: 5, RepoLimit: 2},
		"unlimited": {Name: "unlimited", AnalysisLimit: plans.Unlimited, RepoLimit: plans.Unlimited},
	}}
	repoStore := newFakeRepoStore()
	analysisStore := &fakeAnalysisStore{}

	server := NewServer(
		config.ServerConfig{
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Dependencies{
			Enforcer:      quota.NewEnforcer(profiles, registry, log, nil),
			Profiles:      profiles,
			Tokens:        profiles,
			Repos:         repoStore,
			Analyses:      analysis.NewService(analysisStore, log),
			AnalysisStore: analysisStore,
			Exchanger:     scm.NewExchanger(scm.ExchangerConfig{}, nil),
			Validator:     scm.NewAccessValidator(nil),
			Auth:          auth.NewMiddleware(nil, true, log),
			Logger:        log,
		},
	)

	return &testEnv{
		server:    server,
		profiles:  profiles,
		repoStore: repoStore,
		analyses:  analysisStore,
	}
}

func (e *testEnv) addUser(userID, planName string) {
	e.profiles.profiles[userID] = &users.Profile{UserID: userID, PlanName: planName}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-Test-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

func TestAnalyze_Success(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/useranalysis/analyze", "user-1",
		map[string]string{"error_text": "NullPointerException at Foo.bar"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result        *analysis.Result `json:"result"`
		AnalysisCount int64            `json:"analysis_count"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(1), resp.AnalysisCount)
	assert.Contains(t, resp.Result.Summary, "NullPointerException")
	assert.Equal(t, int64(1), env.profiles.profiles["user-1"].AnalysisCount)
}

func TestAnalyze_LimitExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.profiles["user-1"].AnalysisCount = 5

	rec := env.do(t, http.MethodPost, "/api/useranalysis/analyze", "user-1",
		map[string]string{"error_text": "boom"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "You have reached your error analysis limit. Please upgrade.", resp["error"])
	// Counter untouched on denial
	assert.Equal(t, int64(5), env.profiles.profiles["user-1"].AnalysisCount)
}

func TestAnalyze_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/useranalysis/analyze", "ghost",
		map[string]string{"error_text": "boom"})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "User profile not found.", resp["error"])
}

func TestAnalyze_EmptyText(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/useranalysis/analyze", "user-1",
		map[string]string{"error_text": "   "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), env.profiles.profiles["user-1"].AnalysisCount)
}

func TestAnalyze_MissingAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/useranalysis/analyze", "",
		map[string]string{"error_text": "boom"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyze_StoreFailureRestoresCount(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.profiles["user-1"].AnalysisCount = 2
	env.analyses.createErr = errors.New("connection reset")

	rec := env.do(t, http.MethodPost, "/api/useranalysis/analyze", "user-1",
		map[string]string{"error_text": "boom"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Reservation handed back after the persistence failure
	assert.Equal(t, int64(2), env.profiles.profiles["user-1"].AnalysisCount)
	assert.Empty(t, env.analyses.results)
}

func TestSetPlan_Success(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/useranalysis/plan/user-1", "admin",
		map[string]string{"plan_name": "unlimited"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unlimited", env.profiles.profiles["user-1"].PlanName)
}

func TestSetPlan_UnknownPlan(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/useranalysis/plan/user-1", "admin",
		map[string]string{"plan_name": "platinum"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "free", env.profiles.profiles["user-1"].PlanName)
}

func TestSetPlan_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/useranalysis/plan/ghost", "admin",
		map[string]string{"plan_name": "free"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopUsers(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("heavy", "free")
	env.addUser("light", "free")
	env.profiles.profiles["heavy"].AnalysisCount = 4
	env.profiles.profiles["light"].AnalysisCount = 1

	rec := env.do(t, http.MethodGet, "/api/useranalysis/top/10", "admin", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []*users.Profile
	decodeBody(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "heavy", resp[0].UserID)
}

func TestTopUsers_InvalidCount(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/useranalysis/top/0", "/api/useranalysis/top/101"} {
		rec := env.do(t, http.MethodGet, path, "admin", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestRegister_NewAndExisting(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/oauth/register", "user-1",
		map[string]string{"email": "u@example.com"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var profile users.Profile
	decodeBody(t, rec, &profile)
	assert.Equal(t, "user-1", profile.UserID)
	assert.Equal(t, "free", profile.PlanName)

	// Second registration is a no-op
	rec = env.do(t, http.MethodPost, "/api/oauth/register", "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOAuthExchange_MissingCode(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/oauth/github", "user-1",
		map[string]string{"code": ""})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthExchange_ProviderNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/oauth/github", "user-1",
		map[string]string{"code": "abc123"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavePAT_Success(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	pat := strings.Repeat("a", 52)
	rec := env.do(t, http.MethodPost, "/api/oauth/azure/save-pat", "user-1",
		map[string]string{"personal_access_token": pat})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pat, env.profiles.tokens["user-1/azure_devops"])
}

func TestSavePAT_BadFormat(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/oauth/azure/save-pat", "user-1",
		map[string]string{"personal_access_token": "short"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.profiles.tokens["user-1/azure_devops"])
}

func TestConnectRepo_Success(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.tokens["user-1/azure_devops"] = strings.Repeat("a", 52)

	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1",
		map[string]interface{}{"url": "https://dev.azure.com/org/project/_git/repo", "is_private": true})

	assert.Equal(t, http.StatusOK, rec.Code)

	var repo repos.Repository
	decodeBody(t, rec, &repo)
	assert.Equal(t, scm.AzureDevOps, repo.Provider)
	assert.True(t, repo.IsPrivate)
	assert.Equal(t, int64(1), env.profiles.profiles["user-1"].RepoCount)
}

func TestConnectRepo_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.tokens["user-1/azure_devops"] = strings.Repeat("a", 52)

	url := map[string]interface{}{"url": "https://dev.azure.com/org/project/_git/repo"}
	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1", url)
	require.Equal(t, http.StatusOK, rec.Code)

	// Reconnecting is a no-op that returns the existing repository and
	// leaves the counter alone
	rec = env.do(t, http.MethodPost, "/api/repository/connect", "user-1", url)
	assert.Equal(t, http.StatusOK, rec.Code)

	var repo repos.Repository
	decodeBody(t, rec, &repo)
	assert.NotEmpty(t, repo.ID)
	assert.Len(t, env.repoStore.repos, 1)
	assert.Equal(t, int64(1), env.profiles.profiles["user-1"].RepoCount)
}

func TestConnectRepo_LimitExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.profiles["user-1"].RepoCount = 2
	env.profiles.tokens["user-1/azure_devops"] = strings.Repeat("a", 52)

	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1",
		map[string]interface{}{"url": "https://dev.azure.com/org/project/_git/repo"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "You have reached your repository limit. Please upgrade.", resp["error"])
	assert.Equal(t, int64(2), env.profiles.profiles["user-1"].RepoCount)
}

func TestConnectRepo_NoLinkedToken(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1",
		map[string]interface{}{"url": "https://dev.azure.com/org/project/_git/repo"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Reservation handed back
	assert.Equal(t, int64(0), env.profiles.profiles["user-1"].RepoCount)
}

func TestConnectRepo_AccessDenied(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	// Stored token fails the provider check
	env.profiles.tokens["user-1/azure_devops"] = "short"

	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1",
		map[string]interface{}{"url": "https://dev.azure.com/org/project/_git/repo"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), env.profiles.profiles["user-1"].RepoCount)
}

func TestConnectRepo_StoreFailureRestoresCount(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.profiles["user-1"].RepoCount = 1
	env.profiles.tokens["user-1/azure_devops"] = strings.Repeat("a", 52)
	env.repoStore.createErr = errors.New("connection reset")

	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1",
		map[string]interface{}{"url": "https://dev.azure.com/org/project/_git/repo"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Reservation handed back after the persistence failure
	assert.Equal(t, int64(1), env.profiles.profiles["user-1"].RepoCount)
	assert.Empty(t, env.repoStore.repos)
}

func TestConnectRepo_UnsupportedHost(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodPost, "/api/repository/connect", "user-1",
		map[string]interface{}{"url": "https://example.com/owner/repo"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), env.profiles.profiles["user-1"].RepoCount)
}

func TestListRepos_Empty(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodGet, "/api/repository/user", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestDisconnectRepo_Success(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.profiles.profiles["user-1"].RepoCount = 1

	repo := &repos.Repository{UserID: "user-1", URL: "https://github.com/a/b", Provider: scm.GitHub}
	require.NoError(t, env.repoStore.Create(context.Background(), repo))

	rec := env.do(t, http.MethodDelete, "/api/repository/"+repo.ID, "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), env.profiles.profiles["user-1"].RepoCount)
	assert.Empty(t, env.repoStore.repos)
}

func TestDisconnectRepo_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	rec := env.do(t, http.MethodDelete, "/api/repository/missing", "user-1", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisconnectRepo_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	env.addUser("user-2", "free")

	repo := &repos.Repository{UserID: "user-1", URL: "https://github.com/a/b", Provider: scm.GitHub}
	require.NoError(t, env.repoStore.Create(context.Background(), repo))

	rec := env.do(t, http.MethodDelete, "/api/repository/"+repo.ID, "user-2", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, env.repoStore.repos, 1)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")

	repo := &repos.Repository{UserID: "user-1", URL: "https://github.com/a/b", Provider: scm.GitHub}
	require.NoError(t, env.repoStore.Create(context.Background(), repo))
	require.NoError(t, env.analyses.Create(context.Background(), &analysis.Result{UserID: "user-1", Summary: "s"}))

	rec := env.do(t, http.MethodDelete, "/api/account", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.repoStore.repos)
	assert.Empty(t, env.analyses.results)
	assert.NotContains(t, env.profiles.profiles, "user-1")
}

func TestAnalysisHistory(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("user-1", "free")
	require.NoError(t, env.analyses.Create(context.Background(), &analysis.Result{UserID: "user-1", Summary: "one"}))
	require.NoError(t, env.analyses.Create(context.Background(), &analysis.Result{UserID: "other", Summary: "two"}))

	rec := env.do(t, http.MethodGet, "/api/useranalysis/history", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []*analysis.Result
	decodeBody(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "one", resp[0].Summary)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
