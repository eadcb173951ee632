// AngelaMos | 2026
// dto.go

package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token"    validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=android ios web"`
}

type SendRequest struct {
	Title   string            `json:"title"    validate:"required,max=200"`
	Body    string            `json:"body"     validate:"required,max=2000"`
	Data    map[string]string `json:"data"`
	UserIDs []string          `json:"user_ids" validate:"omitempty,max=10000,dive,required"`
}
