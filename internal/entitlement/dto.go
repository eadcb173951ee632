// AngelaMos | 2026
// dto.go

package entitlement

type AddPackageRequest struct {
	UserID        string `json:"user_id"        validate:"required,max=128"`
	PackageType   string `json:"package_type"   validate:"required,packagetype"`
	DurationHours int    `json:"duration_hours" validate:"required,gt=0,max=87600"`
}

type ExtendPackageRequest struct {
	UserID          string `json:"user_id"          validate:"required,max=128"`
	PackageType     string `json:"package_type"     validate:"required,packagetype"`
	AdditionalHours int    `json:"additional_hours" validate:"required,gt=0,max=87600"`
}

type RemovePackageRequest struct {
	UserID      string `json:"user_id"      validate:"required,max=128"`
	PackageType string `json:"package_type" validate:"required,packagetype"`
}
