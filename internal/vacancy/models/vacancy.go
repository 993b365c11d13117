package models

import (
	"strings"
	"time"

	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
)

// ActiveLifetime is how long a vacancy stays published.
const ActiveLifetime = 30 * 24 * time.Hour

// Vacancy is the aggregate root of the publication workflow.
//
// Invariants:
//   - PublishedAt, ExpiresAt and LastPromotionUpdate are nil and PromotionScore
//     is 0 while Status is DRAFT, PENDING_PAYMENT or PAID
//   - all three are set once PUBLISHED, and ExpiresAt = PublishedAt + 30 days
//   - Cities is non-empty whenever Status is past DRAFT
//   - Status changes only through the methods below, each validated by Transition
type Vacancy struct {
	ID    id.VacancyID `json:"id"`
	Owner string       `json:"owner"`

	Title          string   `json:"title"`
	Code           string   `json:"code,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	Description    string   `json:"description,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	EmploymentType string   `json:"employment_type,omitempty"`
	WorkFormat     string   `json:"work_format,omitempty"`
	Experience     string   `json:"experience,omitempty"`
	SalaryFrom     *int     `json:"salary_from,omitempty"`
	SalaryTo       *int     `json:"salary_to,omitempty"`
	ContactName    string   `json:"contact_name,omitempty"`
	ContactEmail   string   `json:"contact_email,omitempty"`
	ContactPhone   string   `json:"contact_phone,omitempty"`

	Status                 Status          `json:"status"`
	PublicationType        PublicationType `json:"publication_type,omitempty"`
	PublishOnExternalBoard bool            `json:"publish_on_external_board"`
	Cities                 []string        `json:"cities,omitempty"`
	RequestedPublishTime   *time.Time      `json:"requested_publish_time,omitempty"`

	PublishedAt         *time.Time `json:"published_at,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	PromotionScore      float64    `json:"promotion_score"`
	LastPromotionUpdate *time.Time `json:"last_promotion_update,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Draft carries the employer-provided fields of a new vacancy.
type Draft struct {
	Title          string
	Code           string
	Specialization string
	Description    string
	Skills         []string
	EmploymentType string
	WorkFormat     string
	Experience     string
	SalaryFrom     *int
	SalaryTo       *int
	ContactName    string
	ContactEmail   string
	ContactPhone   string
}

// NewVacancy builds a DRAFT vacancy regardless of what the caller asked for.
func NewVacancy(vacancyID id.VacancyID, owner string, d Draft, now time.Time) (*Vacancy, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "vacancy owner is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "vacancy title is required")
	}
	if d.SalaryFrom != nil && d.SalaryTo != nil && *d.SalaryFrom > *d.SalaryTo {
		return nil, dErrors.New(dErrors.CodeValidation, "salary_from must not exceed salary_to")
	}
	return &Vacancy{
		ID:             vacancyID,
		Owner:          owner,
		Title:          d.Title,
		Code:           d.Code,
		Specialization: d.Specialization,
		Description:    d.Description,
		Skills:         append([]string(nil), d.Skills...),
		EmploymentType: d.EmploymentType,
		WorkFormat:     d.WorkFormat,
		Experience:     d.Experience,
		SalaryFrom:     d.SalaryFrom,
		SalaryTo:       d.SalaryTo,
		ContactName:    d.ContactName,
		ContactEmail:   d.ContactEmail,
		ContactPhone:   d.ContactPhone,
		Status:         StatusDraft,
		CreatedAt:      now,
	}, nil
}

// PublishParams are the publication parameters stamped when payment starts.
type PublishParams struct {
	RequestedPublishTime   *time.Time
	PublicationType        PublicationType
	PublishOnExternalBoard bool
	Cities                 []string
}

// Validate checks the parameters without touching any vacancy.
func (p PublishParams) Validate() error {
	if !p.PublicationType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown publication type")
	}
	if len(p.Cities) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one city is required")
	}
	for _, c := range p.Cities {
		if strings.TrimSpace(c) == "" {
			return dErrors.New(dErrors.CodeValidation, "city must not be blank")
		}
	}
	return nil
}

// StartPayment stamps params and moves DRAFT -> PENDING_PAYMENT.
func (v *Vacancy) StartPayment(p PublishParams) error {
	if err := Transition(v.Status, StatusPendingPayment); err != nil {
		return err
	}
	v.RequestedPublishTime = p.RequestedPublishTime
	v.PublicationType = p.PublicationType
	v.PublishOnExternalBoard = p.PublishOnExternalBoard
	v.Cities = append([]string(nil), p.Cities...)
	v.Status = StatusPendingPayment
	return nil
}

func (v *Vacancy) MarkPaid() error {
	if err := Transition(v.Status, StatusPaid); err != nil {
		return err
	}
	v.Status = StatusPaid
	return nil
}

// IsDue reports whether a PAID vacancy's requested time has arrived. A vacancy
// without a requested time is due immediately.
func (v *Vacancy) IsDue(now time.Time) bool {
	return v.Status == StatusPaid && (v.RequestedPublishTime == nil || !v.RequestedPublishTime.After(now))
}

// Publish moves PAID -> PUBLISHED. publishedAt is the requested time when one
// was given, otherwise now.
func (v *Vacancy) Publish(now time.Time, initialScore float64) error {
	if err := Transition(v.Status, StatusPublished); err != nil {
		return err
	}
	publishedAt := now
	if v.RequestedPublishTime != nil {
		publishedAt = *v.RequestedPublishTime
	}
	expiresAt := publishedAt.Add(ActiveLifetime)
	v.PublishedAt = &publishedAt
	v.ExpiresAt = &expiresAt
	v.PromotionScore = initialScore
	v.LastPromotionUpdate = &publishedAt
	v.Status = StatusPublished
	return nil
}

// ResetToDraft reverts PENDING_PAYMENT or PAID back to DRAFT and clears the
// publication parameters.
func (v *Vacancy) ResetToDraft() error {
	if err := Transition(v.Status, StatusDraft); err != nil {
		return err
	}
	v.Status = StatusDraft
	v.RequestedPublishTime = nil
	v.PublishOnExternalBoard = false
	v.Cities = nil
	return nil
}

// IsExpired reports whether a PUBLISHED vacancy has outlived its expiry.
func (v *Vacancy) IsExpired(now time.Time) bool {
	return v.Status == StatusPublished && v.ExpiresAt != nil && v.ExpiresAt.Before(now)
}

func (v *Vacancy) Expire() error {
	if err := Transition(v.Status, StatusExpired); err != nil {
		return err
	}
	v.Status = StatusExpired
	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (v *Vacancy) Clone() *Vacancy {
	if v == nil {
		return nil
	}
	c := *v
	c.Skills = append([]string(nil), v.Skills...)
	c.Cities = append([]string(nil), v.Cities...)
	c.SalaryFrom = clonePtr(v.SalaryFrom)
	c.SalaryTo = clonePtr(v.SalaryTo)
	c.RequestedPublishTime = clonePtr(v.RequestedPublishTime)
	c.PublishedAt = clonePtr(v.PublishedAt)
	c.ExpiresAt = clonePtr(v.ExpiresAt)
	c.LastPromotionUpdate = clonePtr(v.LastPromotionUpdate)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
