package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	QuoteID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"quote_id"`
	CustomerID uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	Amount     float64       `gorm:"type:numeric(12,2);not null;check:chk_payments_amount,amount > 0" json:"amount"`
	Currency   string        `gorm:"type:varchar(3);not null;default:'TRY'" json:"currency"`
	Method     PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status     PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Currency == "" {
		p.Currency = "TRY"
	}
	return nil
}
