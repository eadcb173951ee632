// AngelaMos | 2026
// entity.go

package entitlement

import (
	"time"
)

type PackageType string

const (
	PackageFullBundle      PackageType = "kpss_full_paket_subscription"
	PackageGenelYetenek    PackageType = "kpss_genel_yetenek_subscription"
	PackageGenelKultur     PackageType = "kpss_genel_kultur_subscription"
	PackageEgitimBilimleri PackageType = "kpss_egitim_bilimleri_subscription"
	PackageAlanBilgisi     PackageType = "kpss_alan_bilgisi_subscription"
	PackageTurkce          PackageType = "kpss_turkce_subscription"
	PackageMatematik       PackageType = "kpss_matematik_subscription"
	PackageTarih           PackageType = "kpss_tarih_subscription"
	PackageCografya        PackageType = "kpss_cografya_subscription"
	PackageVatandaslik     PackageType = "kpss_vatandaslik_subscription"
)

var AllPackageTypes = []PackageType{
	PackageFullBundle,
	PackageGenelYetenek,
	PackageGenelKultur,
	PackageEgitimBilimleri,
	PackageAlanBilgisi,
	PackageTurkce,
	PackageMatematik,
	PackageTarih,
	PackageCografya,
	PackageVatandaslik,
}

func (p PackageType) IsValid() bool {
	for _, known := range AllPackageTypes {
		if p == known {
			return true
		}
	}
	return false
}

// IsFullBundle reports whether p is mirrored into the legacy premium fields.
func (p PackageType) IsFullBundle() bool {
	return p == PackageFullBundle
}

// Record is the per-user entitlement document. Field names are camelCase in
// storage because mobile clients read the same document.
type Record struct {
	UserID             string                     `bson:"_id"                         json:"user_id"`
	OwnedPackages      map[PackageType]bool       `bson:"ownedPackages"               json:"owned_packages"`
	PackageExpiryDates map[PackageType]*time.Time `bson:"packageExpiryDates"          json:"package_expiry_dates"`
	IsPremium          bool                       `bson:"isPremium"                   json:"is_premium"`
	PremiumExpiryDate  *time.Time                 `bson:"premiumExpiryDate,omitempty" json:"premium_expiry_date,omitempty"`
	UpdatedAt          time.Time                  `bson:"updatedAt,omitempty"         json:"updated_at,omitempty"`
}

func NewRecord(userID string) *Record {
	return &Record{
		UserID:             userID,
		OwnedPackages:      make(map[PackageType]bool),
		PackageExpiryDates: make(map[PackageType]*time.Time),
	}
}

func (r *Record) ensureMaps() {
	if r.OwnedPackages == nil {
		r.OwnedPackages = make(map[PackageType]bool)
	}
	if r.PackageExpiryDates == nil {
		r.PackageExpiryDates = make(map[PackageType]*time.Time)
	}
}

func (r *Record) Expiry(p PackageType) *time.Time {
	if r == nil || r.PackageExpiryDates == nil {
		return nil
	}
	return r.PackageExpiryDates[p]
}

func (r *Record) IsActive(p PackageType, now time.Time) bool {
	return ComputeStatus(r, p, now).State() == StateActive
}

type State string

const (
	StateNotOwned State = "not_owned"
	StateActive   State = "active"
	StateExpired  State = "expired"
)

type Status struct {
	IsOwned    bool       `json:"is_owned"`
	IsExpired  bool       `json:"is_expired"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

func (s Status) State() State {
	switch {
	case !s.IsOwned:
		return StateNotOwned
	case s.IsExpired:
		return StateExpired
	default:
		return StateActive
	}
}

// ComputeStatus is pure: an owned package without an expiry is inactive, and
// expiry equal to now counts as expired.
func ComputeStatus(r *Record, p PackageType, now time.Time) Status {
	if r == nil {
		return Status{}
	}

	owned := r.OwnedPackages[p]
	expiry := r.Expiry(p)

	return Status{
		IsOwned:    owned,
		IsExpired:  owned && (expiry == nil || !expiry.After(now)),
		ExpiryDate: expiry,
	}
}

// Result is the outcome of a package mutation. Err carries the classified
// cause for the HTTP layer and is never set when Success is true.
type Result struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Record  *Record `json:"record,omitempty"`
	Err     error   `json:"-"`
}

type PackageView struct {
	PackageType PackageType `json:"package_type"`
	State       State       `json:"state"`
	Status
}

type Listing struct {
	UserID            string        `json:"user_id"`
	IsPremium         bool          `json:"is_premium"`
	PremiumExpiryDate *time.Time    `json:"premium_expiry_date,omitempty"`
	Packages          []PackageView `json:"packages"`
}

func BuildListing(r *Record, now time.Time) *Listing {
	listing := &Listing{
		UserID:            r.UserID,
		IsPremium:         r.IsPremium,
		PremiumExpiryDate: r.PremiumExpiryDate,
		Packages:          make([]PackageView, 0, len(AllPackageTypes)),
	}

	for _, p := range AllPackageTypes {
		status := ComputeStatus(r, p, now)
		listing.Packages = append(listing.Packages, PackageView{
			PackageType: p,
			State:       status.State(),
			Status:      status,
		})
	}

	return listing
}
