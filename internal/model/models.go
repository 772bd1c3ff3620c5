package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tender is the canonical procurement announcement record. TenderID is
// the source-system id and is unique; image URL fields are filled in
// progressively by the image pipeline.
type Tender struct {
	ID                    uuid.UUID        `db:"id" json:"id"`
	TenderID              string           `db:"tender_id" json:"tenderId"`
	Title                 string           `db:"title" json:"title"`
	Category              *string          `db:"category" json:"category,omitempty"`
	Type                  *string          `db:"type" json:"type,omitempty"`
	Wilaya                string           `db:"wilaya" json:"wilaya"`
	Region                *string          `db:"region" json:"region,omitempty"`
	PublicationDate       *time.Time       `db:"publication_date" json:"publicationDate,omitempty"`
	Deadline              *time.Time       `db:"deadline" json:"deadline,omitempty"`
	SpecificationsPrice   *decimal.Decimal `db:"specifications_price" json:"specificationsPrice,omitempty"`
	TenderNumber          *string          `db:"tender_number" json:"tenderNumber,omitempty"`
	QualificationRequired *string          `db:"qualification_required" json:"qualificationRequired,omitempty"`
	QualificationDetails  *string          `db:"qualification_details" json:"qualificationDetails,omitempty"`
	ProjectDescription    *string          `db:"project_description" json:"projectDescription,omitempty"`
	OrganizationName      *string          `db:"organization_name" json:"organizationName,omitempty"`
	OrganizationAddress   *string          `db:"organization_address" json:"organizationAddress,omitempty"`
	WithdrawalAddress     *string          `db:"withdrawal_address" json:"withdrawalAddress,omitempty"`
	TenderStatus          *string          `db:"tender_status" json:"tenderStatus,omitempty"`
	Link                  *string          `db:"link" json:"link,omitempty"`
	OriginalImageURL      *string          `db:"original_image_url" json:"originalImageUrl,omitempty"`
	ImageURL              *string          `db:"image_url" json:"imageUrl,omitempty"`
	ProcessedImageURL     *string          `db:"processed_image_url" json:"processedImageUrl,omitempty"`
	PNGImageURL           *string          `db:"png_image_url" json:"pngImageUrl,omitempty"`
	WatermarkedImageURL   *string          `db:"watermarked_image_url" json:"watermarkedImageUrl,omitempty"`
	ImageProcessingError  *string          `db:"image_processing_error" json:"-"`
	ProcessingStartedAt   *time.Time       `db:"processing_started_at" json:"-"`
	ProcessedAt           *time.Time       `db:"processed_at" json:"processedAt,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updatedAt"`
}

// DisplayImageURL returns the URL the UI should render, preferring the
// branded copy, then the working copy, then the raw source link.
func (t *Tender) DisplayImageURL() string {
	switch {
	case t.WatermarkedImageURL != nil && *t.WatermarkedImageURL != "":
		return *t.WatermarkedImageURL
	case t.ImageURL != nil && *t.ImageURL != "":
		return *t.ImageURL
	case t.OriginalImageURL != nil && *t.OriginalImageURL != "":
		return *t.OriginalImageURL
	default:
		return ""
	}
}

// NotificationPreferences controls how an alert match is surfaced.
// InApp defaults to true when the stored JSON omits it.
type NotificationPreferences struct {
	Email bool `json:"email"`
	InApp bool `json:"in_app"`
}

// Alert is a saved notification filter owned by one user. Multi-valued
// filter fields are persisted as delimited strings (see alert.go).
type Alert struct {
	ID                      uuid.UUID `db:"id" json:"id"`
	UserID                  uuid.UUID `db:"user_id" json:"userId"`
	Name                    string    `db:"name" json:"name"`
	Wilaya                  *string   `db:"wilaya" json:"-"`
	TenderType              *string   `db:"tender_type" json:"-"`
	Category                *string   `db:"category" json:"-"`
	NotificationPreferences []byte    `db:"notification_preferences" json:"-"`
	CreatedAt               time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time `db:"updated_at" json:"updatedAt"`
}

// TenderNotification is one alert-match event awaiting dispatch.
type TenderNotification struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"userId"`
	AlertID     uuid.UUID  `db:"alert_id" json:"alertId"`
	TenderID    uuid.UUID  `db:"tender_id" json:"tenderId"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ProcessedAt *time.Time `db:"processed_at" json:"processedAt,omitempty"`
}

// AlertEmailNotification is the at-most-once record for email sends:
// one row per (alert, tender, user) triple.
type AlertEmailNotification struct {
	ID          uuid.UUID `db:"id" json:"id"`
	AlertID     uuid.UUID `db:"alert_id" json:"alertId"`
	TenderID    uuid.UUID `db:"tender_id" json:"tenderId"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	EmailStatus string    `db:"email_status" json:"emailStatus"`
	SentAt      time.Time `db:"sent_at" json:"sentAt"`
}

type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type BillingInterval string

const (
	BillingMonthly BillingInterval = "monthly"
	BillingAnnual  BillingInterval = "annual"
)

type Subscription struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	UserID             uuid.UUID          `db:"user_id" json:"userId"`
	Plan               string             `db:"plan" json:"plan"`
	Status             SubscriptionStatus `db:"status" json:"status"`
	BillingInterval    BillingInterval    `db:"billing_interval" json:"billingInterval"`
	CurrentPeriodStart time.Time          `db:"current_period_start" json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time          `db:"current_period_end" json:"currentPeriodEnd"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
}

// PushToken is a registered native device token, unique per
// (user, token) pair.
type PushToken struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"userId"`
	PushToken  string    `db:"push_token" json:"pushToken"`
	DeviceType string    `db:"device_type" json:"deviceType"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// WebPushSubscription is a browser push endpoint, unique per
// (user, endpoint) pair.
type WebPushSubscription struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dh    string    `db:"p256dh" json:"p256dh"`
	Auth      string    `db:"auth" json:"auth"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Profile mirrors the managed-auth user record with app-level fields.
type Profile struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	SelectedCategories *string   `db:"selected_categories" json:"selectedCategories,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// Plan pricing in DZD. Annual totals carry a 25% discount at checkout.
type Plan struct {
	Name         string `json:"name"`
	MonthlyPrice int64  `json:"monthlyPrice"`
	AnnualPrice  int64  `json:"annualPrice"`
}

var Plans = []Plan{
	{Name: "Basic", MonthlyPrice: 1000, AnnualPrice: 12000},
	{Name: "Professional", MonthlyPrice: 2000, AnnualPrice: 24000},
	{Name: "Enterprise", MonthlyPrice: 10000, AnnualPrice: 120000},
}

// PlanByName returns the plan with the given name, or nil. Matching is
// case-insensitive.
func PlanByName(name string) *Plan {
	for i := range Plans {
		if strings.EqualFold(Plans[i].Name, name) {
			return &Plans[i]
		}
	}
	return nil
}

// DiscountedAnnualPrice applies the 25% annual discount.
func (p Plan) DiscountedAnnualPrice() int64 {
	return int64(math.Round(float64(p.AnnualPrice) * 0.75))
}
