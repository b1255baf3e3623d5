package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

const fallbackScore = 50

// Assessor scores extracted text and decides acceptance. The model's own
// is_good_quality boolean is advisory only: the final verdict needs the
// score at or above the threshold and none of the significant issues.
type Assessor struct {
	rater             ports.QualityRater
	threshold         int
	significantIssues []string
	logger            *slog.Logger
}

func NewAssessor(rater ports.QualityRater, threshold int, significantIssues []string, logger *slog.Logger) *Assessor {
	if threshold <= 0 {
		threshold = 85
	}
	return &Assessor{
		rater:             rater,
		threshold:         threshold,
		significantIssues: significantIssues,
		logger:            logger,
	}
}

func (a *Assessor) Evaluate(ctx context.Context, text string) domain.QualityVerdict {
	if strings.TrimSpace(text) == "" {
		return domain.QualityVerdict{
			IsGoodQuality: false,
			Score:         0,
			Feedback:      "no extractable text",
		}
	}

	verdict, err := a.rater.RateText(ctx, text)
	if err != nil {
		// Fail open: a quality check that cannot run must not block the
		// pipeline.
		a.logger.Warn("quality_check_unavailable", "error", err)
		return domain.QualityVerdict{
			IsGoodQuality: true,
			Score:         fallbackScore,
			Feedback:      "quality check unavailable, accepting by default",
		}
	}

	verdict.IsGoodQuality = verdict.Score >= a.threshold && !a.hasSignificantIssue(verdict.Issues)
	return verdict
}

func (a *Assessor) hasSignificantIssue(issues []string) bool {
	for _, issue := range issues {
		normalized := strings.ToLower(strings.TrimSpace(issue))
		for _, significant := range a.significantIssues {
			if strings.Contains(normalized, strings.ToLower(significant)) {
				return true
			}
		}
	}
	return false
}

// Compare scores an original extraction against a fresh OCR pass. Any
// provider failure favors the fresh extraction.
func (a *Assessor) Compare(ctx context.Context, original, reocr string) domain.ComparisonVerdict {
	verdict, err := a.rater.CompareTexts(ctx, original, reocr)
	if err != nil {
		a.logger.Warn("comparison_unavailable", "error", err)
		return domain.ComparisonVerdict{Preferred: domain.PreferOCR}
	}
	return verdict
}
