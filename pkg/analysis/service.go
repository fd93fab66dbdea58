package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackseek/stackseek/pkg/observability"
)

// summaryPreviewLength bounds how much of the error text lands in the summary.
const summaryPreviewLength = 100

// Service runs analyses and persists their results
type Service struct {
	store Store
	log   *observability.Logger
}

// NewService creates a new Service
func NewService(store Store, log *observability.Logger) *Service {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{store: store, log: log}
}

// Analyze runs an analysis over the submitted error text and persists the
// result. The analysis engine itself is a placeholder; the result record
// carries a preview summary until the engine lands.
// TODO: call the analysis engine once its API is available.
func (s *Service) Analyze(ctx context.Context, userID, errorText string) (*Result, error) {
	errorText = strings.TrimSpace(errorText)
	if errorText == "" {
		return nil, ErrEmptyInput
	}

	preview := errorText
	if len(preview) > summaryPreviewLength {
		preview = preview[:summaryPreviewLength]
	}

	result := &Result{
		UserID:  userID,
		Summary: fmt.Sprintf("Analyzed: '%s'...", preview),
	}

	if err := s.store.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist analysis: %w", err)
	}

	s.log.WithField("user_id", userID).WithField("analysis_id", result.ID).
		Debug("analysis stored")

	return result, nil
}

// History returns a user's most recent analysis results
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListByUser(ctx, userID, limit)
}
