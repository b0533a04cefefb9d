package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/api/apitest"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/session"
)

const testToken = "test-token"

func newClient(t *testing.T, srv *apitest.Server, sess *session.Session) *api.Client {
	t.Helper()
	client, err := api.New(api.Options{BaseURL: srv.BaseURL(), HealthURL: srv.HealthURL(), Timeout: 5 * time.Second}, sess)
	require.NoError(t, err)
	return client
}

func setup(t *testing.T) (*apitest.Server, *api.Client, *session.Session) {
	t.Helper()
	srv := apitest.NewServer(testToken)
	t.Cleanup(srv.Close)
	sess := session.New(session.NewMemoryStore(testToken))
	return srv, newClient(t, srv, sess), sess
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := api.New(api.Options{BaseURL: "localhost"}, nil)
	assert.Error(t, err)
}

func TestHabitLifecycle(t *testing.T) {
	srv, client, _ := setup(t)
	ctx := context.Background()

	desc := "20 minutes"
	created, err := client.CreateHabit(ctx, models.NewHabit{Name: "Read", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Read", created.Name)
	assert.Equal(t, "20 minutes", created.DescriptionText())

	habits, err := client.ListHabits(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, created.ID, habits[0].ID)

	got, err := client.GetHabit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", got.Name)

	require.NoError(t, client.DeleteHabit(ctx, created.ID))
	_, err = client.GetHabit(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)

	assert.Contains(t, srv.Calls(), "DELETE /habits/1")
}

func TestCompletionRoundTrip(t *testing.T) {
	srv, client, _ := setup(t)
	ctx := context.Background()
	id := srv.AddHabit("Stretch")

	require.NoError(t, client.MarkCompleted(ctx, id, "2024-03-05"))
	assert.True(t, srv.HasCompletion(id, "2024-03-05"))

	byDate, err := client.ListCompletionsForDate(ctx, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, id, byDate[0].HabitID)
	assert.Equal(t, "Stretch", byDate[0].HabitName)

	history, err := client.ListCompletionsForHabit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-05"}, models.Dates(history))

	require.NoError(t, client.UnmarkCompleted(ctx, id, "2024-03-05"))
	assert.False(t, srv.HasCompletion(id, "2024-03-05"))

	assert.Contains(t, srv.Calls(), "POST /habits/1/completions?date=2024-03-05")
	assert.Contains(t, srv.Calls(), "DELETE /habits/1/completions/2024-03-05")
}

func TestMarkWithoutDateOmitsQuery(t *testing.T) {
	srv, client, _ := setup(t)
	srv.SetToday("2024-06-01")
	id := srv.AddHabit("Walk")

	require.NoError(t, client.MarkCompleted(context.Background(), id, ""))
	assert.True(t, srv.HasCompletion(id, "2024-06-01"))
	assert.Contains(t, srv.Calls(), "POST /habits/1/completions")
}

func TestUnmarkRequiresDate(t *testing.T) {
	srv, client, _ := setup(t)
	err := client.UnmarkCompleted(context.Background(), 1, "")
	assert.Error(t, err)
	assert.Empty(t, srv.Calls())
}

func TestServerMessageExtracted(t *testing.T) {
	srv, client, _ := setup(t)
	id := srv.AddHabit("Read")
	srv.FailNext("POST /habits/1/completions", http.StatusInternalServerError, "database unavailable")

	err := client.MarkCompleted(context.Background(), id, "2024-03-05")
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
	assert.True(t, apiErr.IsServerError())
	assert.False(t, srv.HasCompletion(id, "2024-03-05"))
}

func TestAPIErrorWithoutMessage(t *testing.T) {
	err := &api.APIError{StatusCode: http.StatusBadGateway}
	assert.Equal(t, "request failed with status 502 Bad Gateway", err.Error())
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	srv := apitest.NewServer("server-token")
	t.Cleanup(srv.Close)
	sess := session.New(session.NewMemoryStore("stale-token"))
	fired := 0
	sess.OnUnauthorized(func() { fired++ })
	client := newClient(t, srv, sess)

	_, err := client.ListHabits(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 1, fired)
	assert.False(t, sess.Authenticated())
}

func TestLoginFailureDoesNotExpireSession(t *testing.T) {
	srv, client, sess := setup(t)
	srv.AddUser("a@example.com", "secret")
	fired := 0
	sess.OnUnauthorized(func() { fired++ })

	_, err := client.Login(context.Background(), models.Credentials{Email: "a@example.com", Password: "wrong"})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Zero(t, fired)
	assert.True(t, sess.Authenticated())

	token, err := client.Login(context.Background(), models.Credentials{Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestSignup(t *testing.T) {
	_, client, _ := setup(t)
	creds := models.Credentials{Email: "new@example.com", Password: "pw"}

	token, err := client.Signup(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	_, err = client.Signup(context.Background(), creds)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestTransportErrors(t *testing.T) {
	srv := apitest.NewServer(testToken)
	base := srv.BaseURL()
	srv.Close()

	client, err := api.New(api.Options{BaseURL: base, Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = client.ListHabits(context.Background())
	var te *api.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, api.KindUnreachable, te.Kind)
	assert.True(t, api.IsTransport(err, api.KindUnreachable))
}

func TestTimeoutClassified(t *testing.T) {
	srv := apitest.NewServer(testToken)
	t.Cleanup(srv.Close)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv.Hook = func(r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}

	client, err := api.New(api.Options{BaseURL: srv.BaseURL(), Timeout: 50 * time.Millisecond}, session.New(session.NewMemoryStore(testToken)))
	require.NoError(t, err)

	_, err = client.ListHabits(context.Background())
	assert.True(t, api.IsTransport(err, api.KindTimeout), "got %v", err)
}

func TestCanceledContextIsNotTransportError(t *testing.T) {
	_, client, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListHabits(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	var te *api.TransportError
	assert.False(t, errors.As(err, &te))
}

func TestWarmUp(t *testing.T) {
	policy := api.WarmUpPolicy{Attempts: 2, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}

	t.Run("healthy", func(t *testing.T) {
		srv, client, _ := setup(t)
		require.NoError(t, client.WarmUp(context.Background(), policy))
		assert.Equal(t, 1, srv.CountCalls("GET /health"))
	})

	t.Run("recovers on second attempt", func(t *testing.T) {
		srv, client, _ := setup(t)
		srv.FailHealth(1)
		require.NoError(t, client.WarmUp(context.Background(), policy))
		assert.Equal(t, 2, srv.CountCalls("GET /health"))
	})

	t.Run("gives up after two attempts", func(t *testing.T) {
		srv, client, _ := setup(t)
		srv.FailHealth(5)
		err := client.WarmUp(context.Background(), policy)
		assert.Error(t, err)
		assert.Equal(t, 2, srv.CountCalls("GET /health"))
	})
}
