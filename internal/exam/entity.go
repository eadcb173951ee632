// AngelaMos | 2026
// entity.go

package exam

import (
	"fmt"
	"slices"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

type Variant string

const (
	VariantMultipleChoice Variant = "multiple_choice"
	VariantTrueFalse      Variant = "true_false"
	VariantFillBlank      Variant = "fill_blank"
	VariantMatching       Variant = "matching"
	VariantTimed          Variant = "timed"
)

type Pair struct {
	Left  string `bson:"left"  json:"left"`
	Right string `bson:"right" json:"right"`
}

type Question struct {
	ID          string   `bson:"id"                    json:"id"`
	Prompt      string   `bson:"prompt"                json:"prompt"`
	Options     []string `bson:"options,omitempty"     json:"options,omitempty"`
	Answer      string   `bson:"answer,omitempty"      json:"answer,omitempty"`
	Pairs       []Pair   `bson:"pairs,omitempty"       json:"pairs,omitempty"`
	Explanation string   `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

type Exam struct {
	ID              string                  `bson:"_id"                       json:"id"`
	Title           string                  `bson:"title"                     json:"title"`
	Subject         string                  `bson:"subject"                   json:"subject"`
	Variant         Variant                 `bson:"variant"                   json:"variant"`
	PackageType     entitlement.PackageType `bson:"packageType"               json:"package_type"`
	DurationMinutes int                     `bson:"durationMinutes,omitempty" json:"duration_minutes,omitempty"`
	Questions       []Question              `bson:"questions"                 json:"questions"`
	Active          bool                    `bson:"active"                    json:"active"`
	CreatedAt       time.Time               `bson:"createdAt"                 json:"created_at"`
	UpdatedAt       time.Time               `bson:"updatedAt"                 json:"updated_at"`
}

// Summary is the public listing view; it never carries questions.
type Summary struct {
	ID              string                  `json:"id"`
	Title           string                  `json:"title"`
	Subject         string                  `json:"subject"`
	Variant         Variant                 `json:"variant"`
	PackageType     entitlement.PackageType `json:"package_type"`
	DurationMinutes int                     `json:"duration_minutes,omitempty"`
	QuestionCount   int                     `json:"question_count"`
}

func (e *Exam) Summary() Summary {
	return Summary{
		ID:              e.ID,
		Title:           e.Title,
		Subject:         e.Subject,
		Variant:         e.Variant,
		PackageType:     e.PackageType,
		DurationMinutes: e.DurationMinutes,
		QuestionCount:   len(e.Questions),
	}
}

var variants = []Variant{
	VariantMultipleChoice,
	VariantTrueFalse,
	VariantFillBlank,
	VariantMatching,
	VariantTimed,
}

func (v Variant) IsValid() bool {
	return slices.Contains(variants, v)
}

// Validate checks the shape rules of each variant.
func (e *Exam) Validate() error {
	if !e.Variant.IsValid() {
		return fmt.Errorf("unknown variant %q: %w", e.Variant, core.ErrInvalidInput)
	}
	if !e.PackageType.IsValid() {
		return fmt.Errorf("unknown package type %q: %w", e.PackageType, core.ErrInvalidInput)
	}
	if e.Variant == VariantTimed && e.DurationMinutes <= 0 {
		return fmt.Errorf("timed exam needs duration_minutes: %w", core.ErrInvalidInput)
	}

	for i, q := range e.Questions {
		if err := q.validate(e.Variant); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func (q Question) validate(v Variant) error {
	if q.Prompt == "" {
		return fmt.Errorf("prompt is required: %w", core.ErrInvalidInput)
	}

	switch v {
	case VariantMultipleChoice, VariantTimed:
		if len(q.Options) < 2 {
			return fmt.Errorf("at least two options required: %w", core.ErrInvalidInput)
		}
		if !slices.Contains(q.Options, q.Answer) {
			return fmt.Errorf("answer must be one of the options: %w", core.ErrInvalidInput)
		}
	case VariantTrueFalse:
		if q.Answer != "true" && q.Answer != "false" {
			return fmt.Errorf("answer must be true or false: %w", core.ErrInvalidInput)
		}
	case VariantFillBlank:
		if q.Answer == "" {
			return fmt.Errorf("answer is required: %w", core.ErrInvalidInput)
		}
	case VariantMatching:
		if len(q.Pairs) < 2 {
			return fmt.Errorf("at least two pairs required: %w", core.ErrInvalidInput)
		}
	}
	return nil
}
