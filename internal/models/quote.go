package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuoteStatus string

const (
	QuotePending    QuoteStatus = "pending"
	QuoteAccepted   QuoteStatus = "accepted"
	QuoteInProgress QuoteStatus = "in_progress"
	QuoteCompleted  QuoteStatus = "completed"
	QuoteRejected   QuoteStatus = "rejected"
	QuoteCancelled  QuoteStatus = "cancelled"
)

// quoteTransitions lists the statuses reachable from each status. Terminal
// statuses have no entry.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuotePending:    {QuoteAccepted, QuoteRejected, QuoteCancelled},
	QuoteAccepted:   {QuoteInProgress, QuoteCancelled},
	QuoteInProgress: {QuoteCompleted},
}

// CanTransitionTo reports whether a quote in status s may move to next.
func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, allowed := range quoteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s QuoteStatus) IsTerminal() bool {
	return len(quoteTransitions[s]) == 0
}

// Quote is a customer's request for work from a craftsman. Once accepted it
// doubles as the job record.
type Quote struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CustomerID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"customer_id"`
	CraftsmanID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"craftsman_id"`
	CategoryID    uuid.UUID   `gorm:"type:uuid;not null" json:"category_id"`
	Title         string      `gorm:"size:200;not null" json:"title"`
	Description   string      `gorm:"type:text" json:"description"`
	Address       string      `gorm:"size:300" json:"address,omitempty"`
	City          string      `gorm:"size:60;not null" json:"city"`
	PreferredDate *time.Time  `json:"preferred_date,omitempty"`
	OfferedPrice  *float64    `gorm:"type:numeric(12,2)" json:"offered_price,omitempty"`
	Status        QuoteStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AcceptedAt    *time.Time  `json:"accepted_at,omitempty"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	// Relations
	Customer  User      `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Craftsman Craftsman `gorm:"foreignKey:CraftsmanID" json:"craftsman,omitempty"`
	Category  Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Quote) TableName() string {
	return "quotes"
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Status == "" {
		q.Status = QuotePending
	}
	return nil
}
