package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/remote"
	"github.com/noah-isme/jwfoods/internal/store"
)

type fakeAccounts struct {
	user       remote.User
	loginErr   error
	registered []remote.Registration
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (remote.User, error) {
	if f.loginErr != nil {
		return remote.User{}, f.loginErr
	}
	u := f.user
	u.Email = email
	return u, nil
}

func (f *fakeAccounts) Register(_ context.Context, in remote.Registration) (string, error) {
	f.registered = append(f.registered, in)
	return "User registered successfully", nil
}

type topicRecorder struct{ topics []string }

func (t *topicRecorder) Publish(_ context.Context, topic, _ string, _ any) {
	t.topics = append(t.topics, topic)
}

func newTestService(t *testing.T, accounts Accounts) (*Service, *topicRecorder) {
	t.Helper()
	rec := &topicRecorder{}
	svc, err := NewService(Config{Store: store.New(store.NewMemoryBackend()), Accounts: accounts, Events: rec})
	require.NoError(t, err)
	return svc, rec
}

func sessionCtx() context.Context {
	return common.WithSessionID(context.Background(), "sess-1")
}

func TestLoginStoresUserAndRememberedEmail(t *testing.T) {
	svc, rec := newTestService(t, &fakeAccounts{user: remote.User{ID: "42", FirstName: "Ada"}})
	ctx := sessionCtx()

	user, err := svc.Login(ctx, " ada@example.com ", "secret", true)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.Equal(t, []string{events.TopicUserLoggedIn}, rec.topics)

	me, err := svc.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me.User)
	require.Equal(t, "42", me.User.ID)
	require.Equal(t, "ada@example.com", me.RememberedEmail)

	_, err = svc.Login(ctx, "ada@example.com", "secret", false)
	require.NoError(t, err)
	me, err = svc.Me(ctx)
	require.NoError(t, err)
	require.Empty(t, me.RememberedEmail)
}

func TestLoginRequiresBothFields(t *testing.T) {
	svc, _ := newTestService(t, &fakeAccounts{})
	_, err := svc.Login(sessionCtx(), "", "pw", false)
	require.True(t, common.IsValidation(err))
	_, err = svc.Login(sessionCtx(), "a@b.c", "", false)
	require.True(t, common.IsValidation(err))
}

func TestLoginSurfacesRemoteErrorText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
	}))
	defer srv.Close()

	svc, rec := newTestService(t, remote.New(srv.URL, httpDoer{srv.Client()}))
	_, err := svc.Login(sessionCtx(), "a@b.c", "nope", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid email or password")
	require.Empty(t, rec.topics)

	_, err = svc.CurrentUser(sessionCtx())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

type httpDoer struct{ c *http.Client }

func (d httpDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return d.c.Do(req.WithContext(ctx))
}

func TestLogoutKeepsRememberedEmail(t *testing.T) {
	svc, _ := newTestService(t, &fakeAccounts{user: remote.User{ID: "1"}})
	ctx := sessionCtx()
	_, err := svc.Login(ctx, "a@b.c", "pw", true)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	me, err := svc.Me(ctx)
	require.NoError(t, err)
	require.Nil(t, me.User)
	require.Equal(t, "a@b.c", me.RememberedEmail)
}

func TestRegisterValidation(t *testing.T) {
	accounts := &fakeAccounts{}
	svc, rec := newTestService(t, accounts)

	_, err := svc.Register(sessionCtx(), Registration{
		FirstName:    "",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		ConfirmEmail: "ada@example.org",
		Password:     "short",
	})
	require.True(t, common.IsValidation(err))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "firstName")
	require.Contains(t, details, "confirmEmail")
	require.Contains(t, details, "password")
	require.Empty(t, accounts.registered)

	msg, err := svc.Register(sessionCtx(), Registration{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		ConfirmEmail: "ada@example.com",
		Password:     "long-enough",
	})
	require.NoError(t, err)
	require.Equal(t, "User registered successfully", msg)
	require.Len(t, accounts.registered, 1)
	require.Equal(t, []string{events.TopicUserRegistered}, rec.topics)
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		pw    string
		score int
		label string
	}{
		{"", 0, "Too short"},
		{"abc", 1, "Weak"},
		{"abcdefgh", 2, "Weak"},
		{"abcdefgH", 3, "Medium"},
		{"abcdefH1", 4, "Strong"},
		{"abcdeH1!", 5, "Strong"},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			score := PasswordStrength(tt.pw)
			require.Equal(t, tt.score, score)
			require.Equal(t, tt.label, StrengthLabel(score))
		})
	}
}

func TestRequireUser(t *testing.T) {
	svc, _ := newTestService(t, &fakeAccounts{user: remote.User{ID: "7"}})
	h := Middleware{Service: svc}.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(u.ID))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(sessionCtx()))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := svc.Login(sessionCtx(), "a@b.c", "pw", false)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(sessionCtx()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "7", rec.Body.String())
}

func TestLoginHandler(t *testing.T) {
	svc, _ := newTestService(t, &fakeAccounts{user: remote.User{ID: "9", FirstName: "Grace"}})
	h := &Handler{Service: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"g@h.io","password":"pw","rememberMe":true}`))
	h.Login(rec, req.WithContext(sessionCtx()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"firstName":"Grace"`)

	rec = httptest.NewRecorder()
	h.Strength(rec, httptest.NewRequest(http.MethodPost, "/password-strength", strings.NewReader(`{"password":"abcdefgH"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"label":"Medium"`)
}
