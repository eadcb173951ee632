// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/metrics"
)

type Service struct {
	repo   Repository
	sender Sender
	logger *slog.Logger
}

func NewService(repo Repository, sender Sender, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		sender: sender,
		logger: logger,
	}
}

func (s *Service) RegisterDevice(
	ctx context.Context,
	userID string,
	req RegisterDeviceRequest,
) (*Device, error) {
	token := strings.TrimSpace(req.Token)
	if userID == "" || token == "" {
		return nil, fmt.Errorf("register device: %w", core.ErrInvalidInput)
	}

	now := time.Now().UTC()
	device := &Device{
		Token:     token,
		UserID:    userID,
		Platform:  Platform(req.Platform),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Upsert(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *Service) UnregisterDevice(ctx context.Context, userID, token string) error {
	return s.repo.Delete(ctx, userID, token)
}

// Send fans the message out in batches of BatchSize. A failed batch is
// counted and logged; the remaining batches are still attempted. Tokens the
// transport reports as unregistered are deleted afterwards.
func (s *Service) Send(ctx context.Context, req SendRequest) (*Report, error) {
	tokens, err := s.repo.Tokens(ctx, req.UserIDs)
	if err != nil {
		return nil, err
	}

	msg := Message{Title: req.Title, Body: req.Body, Data: req.Data}
	report := &Report{Targeted: len(tokens)}
	var stale []string

	for start := 0; start < len(tokens); start += BatchSize {
		end := min(start+BatchSize, len(tokens))
		batch := tokens[start:end]
		report.Batches++

		res, err := s.sender.Send(ctx, msg, batch)
		if err != nil {
			s.logger.Error("push batch failed",
				"batch", report.Batches,
				"size", len(batch),
				"error", err,
			)
			report.Failed += len(batch)
			metrics.PushDeliveriesTotal.WithLabelValues("error").Add(float64(len(batch)))
			continue
		}

		report.Sent += res.Sent
		report.Failed += res.Failed
		stale = append(stale, res.Unregistered...)
		metrics.PushDeliveriesTotal.WithLabelValues("sent").Add(float64(res.Sent))
		metrics.PushDeliveriesTotal.WithLabelValues("failed").Add(float64(res.Failed))
	}

	if len(stale) > 0 {
		pruned, err := s.repo.DeleteTokens(ctx, stale)
		if err != nil {
			s.logger.Warn("prune unregistered tokens failed", "error", err)
		}
		report.Pruned = pruned
	}

	s.logger.Info("push notification sent",
		"targeted", report.Targeted,
		"sent", report.Sent,
		"failed", report.Failed,
		"pruned", report.Pruned,
	)

	return report, nil
}
