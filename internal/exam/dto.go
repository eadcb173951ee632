// AngelaMos | 2026
// dto.go

package exam

type QuestionInput struct {
	ID          string   `json:"id"          validate:"omitempty,max=64"`
	Prompt      string   `json:"prompt"      validate:"required,max=4000"`
	Options     []string `json:"options"     validate:"omitempty,max=10,dive,required,max=1000"`
	Answer      string   `json:"answer"      validate:"max=1000"`
	Pairs       []Pair   `json:"pairs"       validate:"omitempty,max=20"`
	Explanation string   `json:"explanation" validate:"max=4000"`
}

type ExamInput struct {
	Title           string          `json:"title"            validate:"required,max=200"`
	Subject         string          `json:"subject"          validate:"required,max=100"`
	Variant         string          `json:"variant"          validate:"required,oneof=multiple_choice true_false fill_blank matching timed"`
	PackageType     string          `json:"package_type"     validate:"required,packagetype"`
	DurationMinutes int             `json:"duration_minutes" validate:"gte=0,max=600"`
	Questions       []QuestionInput `json:"questions"        validate:"max=500,dive"`
	Active          *bool           `json:"active"`
}

type BatchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

type BatchDeleteResponse struct {
	Deleted int `json:"deleted"`
}
