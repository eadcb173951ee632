// AngelaMos | 2026
// dto.go

package catalog

type CreatePlanRequest struct {
	ID              string `json:"id"                validate:"omitempty,max=64,excludesall=/"`
	Name            string `json:"name"              validate:"required,min=1,max=120"`
	Description     string `json:"description"       validate:"max=2000"`
	Price           int64  `json:"price"             validate:"gte=0"`
	Currency        string `json:"currency"          validate:"required,len=3"`
	PeriodMonths    int    `json:"period_months"     validate:"required,gt=0,max=60"`
	Key             string `json:"key"               validate:"required,packagetype"`
	ProviderPriceID string `json:"provider_price_id" validate:"max=128"`
	Active          *bool  `json:"active"`
}

type UpdatePlanRequest struct {
	Name            *string `json:"name"              validate:"omitempty,min=1,max=120"`
	Description     *string `json:"description"       validate:"omitempty,max=2000"`
	Price           *int64  `json:"price"             validate:"omitempty,gte=0"`
	Currency        *string `json:"currency"          validate:"omitempty,len=3"`
	PeriodMonths    *int    `json:"period_months"     validate:"omitempty,gt=0,max=60"`
	Key             *string `json:"key"               validate:"omitempty,packagetype"`
	ProviderPriceID *string `json:"provider_price_id" validate:"omitempty,max=128"`
}
