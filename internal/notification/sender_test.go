// AngelaMos | 2026
// sender_test.go

package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/denemeapp/kpss-backend/internal/tokencache"
)

// redirect sends every request to target, keeping path and query.
type redirect struct {
	target *url.URL
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = ""
	return http.DefaultTransport.RoundTrip(out)
}

type fcmServer struct {
	*httptest.Server
	mu    sync.Mutex
	seen  []string
	auths []string
}

func newFCMServer(t *testing.T) *fcmServer {
	t.Helper()
	s := &fcmServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message struct {
				Token string `json:"token"`
			} `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck // test server

		s.mu.Lock()
		s.seen = append(s.seen, req.Message.Token)
		s.auths = append(s.auths, r.Header.Get("Authorization"))
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		token := req.Message.Token
		switch {
		case strings.HasPrefix(token, "gone"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"status":"NOT_FOUND","message":"Requested entity was not found.",` + //nolint:errcheck // test server
				`"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`))
		case strings.HasPrefix(token, "bad"):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"invalid token"}}`)) //nolint:errcheck // test server
		case strings.HasPrefix(token, "denied"):
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"status":"UNAUTHENTICATED","message":"expired credential"}}`)) //nolint:errcheck // test server
		default:
			_, _ = w.Write([]byte(`{"name":"projects/p/messages/1"}`)) //nolint:errcheck // test server
		}
	}))
	t.Cleanup(s.Close)
	return s
}

type countedFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *countedFetcher) Fetch(context.Context, bool) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &oauth2.Token{AccessToken: "ya29.test"}, nil
}

func (f *countedFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newTestSender routes the Firebase client to srv, authenticating through
// the token cache the same way option.WithTokenSource does in production.
func newTestSender(t *testing.T, srv *fcmServer, fetcher tokencache.Fetcher) (*FCMSender, *tokencache.Cache) {
	t.Helper()
	ctx := context.Background()

	cache := tokencache.New(fetcher, time.Hour, time.Minute, discard)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	hc := &http.Client{Transport: &oauth2.Transport{
		Source: cache.Source(ctx),
		Base:   redirect{target: target},
	}}

	sender, err := NewFCMSender(ctx, "p", cache, discard, option.WithHTTPClient(hc))
	require.NoError(t, err)
	return sender, cache
}

func TestFCMSender(t *testing.T) {
	srv := newFCMServer(t)
	fetcher := &countedFetcher{}
	sender, _ := newTestSender(t, srv, fetcher)

	res, err := sender.Send(context.Background(), Message{Title: "t", Body: "b"},
		[]string{"ok-1", "gone-1", "bad-1", "ok-2"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, []string{"gone-1"}, res.Unregistered)
	assert.ElementsMatch(t, []string{"ok-1", "gone-1", "bad-1", "ok-2"}, srv.seen)
	assert.Equal(t, 1, fetcher.count())
	for _, a := range srv.auths {
		assert.Equal(t, "Bearer ya29.test", a)
	}
}

func TestFCMSenderInvalidatesTokenOnAuthFailure(t *testing.T) {
	srv := newFCMServer(t)
	fetcher := &countedFetcher{}
	sender, cache := newTestSender(t, srv, fetcher)
	ctx := context.Background()

	res, err := sender.Send(ctx, Message{Title: "t"}, []string{"denied-1", "ok-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, res.Unregistered)
	require.Equal(t, 1, fetcher.count())

	_, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.count(), "auth failure drops the cached token")
}

func TestFCMSenderBatchBounds(t *testing.T) {
	srv := newFCMServer(t)
	sender, _ := newTestSender(t, srv, &countedFetcher{})
	ctx := context.Background()

	_, err := sender.Send(ctx, Message{}, make([]string, BatchSize+1))
	assert.Error(t, err)

	res, err := sender.Send(ctx, Message{Title: "t"}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Empty(t, srv.seen)
}
