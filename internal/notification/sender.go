// AngelaMos | 2026
// sender.go

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/denemeapp/kpss-backend/internal/tokencache"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// Sender delivers one message to at most BatchSize tokens.
type Sender interface {
	Send(ctx context.Context, msg Message, tokens []string) (BatchResult, error)
}

// LogSender records messages in the log instead of delivering them. Used
// when push is disabled.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message, tokens []string) (BatchResult, error) {
	s.Logger.Info("push disabled, message not delivered",
		"title", msg.Title,
		"tokens", len(tokens),
	)
	return BatchResult{Sent: len(tokens)}, nil
}

// multicaster is the slice of *messaging.Client the sender uses.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMSender delivers through the Firebase messaging client. Credentials come
// from the injected token cache; opts are appended after it, so a caller
// supplying its own HTTP client replaces that wiring.
type FCMSender struct {
	client multicaster
	tokens *tokencache.Cache
	logger *slog.Logger
}

func NewFCMSender(
	ctx context.Context,
	projectID string,
	tokens *tokencache.Cache,
	logger *slog.Logger,
	opts ...option.ClientOption,
) (*FCMSender, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(tokens.Source(ctx))}, opts...)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}

	return &FCMSender{client: client, tokens: tokens, logger: logger}, nil
}

func (s *FCMSender) Send(ctx context.Context, msg Message, tokens []string) (BatchResult, error) {
	if len(tokens) > BatchSize {
		return BatchResult{}, fmt.Errorf("batch of %d exceeds %d tokens", len(tokens), BatchSize)
	}
	if len(tokens) == 0 {
		return BatchResult{}, nil
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		return BatchResult{}, fmt.Errorf("fcm multicast: %w", err)
	}

	var (
		result      BatchResult
		invalidated bool
	)
	for i, r := range resp.Responses {
		if r.Success {
			result.Sent++
			continue
		}

		result.Failed++
		switch {
		case messaging.IsUnregistered(r.Error):
			result.Unregistered = append(result.Unregistered, tokens[i])
		case errorutils.IsUnauthenticated(r.Error):
			if !invalidated {
				s.tokens.Invalidate()
				invalidated = true
			}
		default:
			s.logger.Warn("fcm rejected message", "error", r.Error)
		}
	}
	return result, nil
}

// GoogleFetcher issues FCM access tokens from a service account file, or
// from application default credentials when no file is configured.
type GoogleFetcher struct {
	newSource func(ctx context.Context) (oauth2.TokenSource, error)
	mu        sync.Mutex
	source    oauth2.TokenSource
}

func NewGoogleFetcher(credentialsFile string) (*GoogleFetcher, error) {
	if credentialsFile == "" {
		return &GoogleFetcher{
			newSource: func(ctx context.Context) (oauth2.TokenSource, error) {
				return google.DefaultTokenSource(ctx, fcmScope)
			},
		}, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parse fcm credentials: %w", err)
	}

	return &GoogleFetcher{
		newSource: func(ctx context.Context) (oauth2.TokenSource, error) {
			return cfg.TokenSource(ctx), nil
		},
	}, nil
}

// Fetch reuses one token source across calls; force builds a fresh one so
// no token held by the previous source is returned.
func (f *GoogleFetcher) Fetch(ctx context.Context, force bool) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if force || f.source == nil {
		src, err := f.newSource(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("google token source: %w", err)
		}
		f.source = src
	}

	tok, err := f.source.Token()
	if err != nil {
		return nil, fmt.Errorf("google token: %w", err)
	}
	return tok, nil
}

var (
	_ Sender             = (*FCMSender)(nil)
	_ Sender             = LogSender{}
	_ tokencache.Fetcher = (*GoogleFetcher)(nil)
)
