package investment

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
)

// Investment is one fixed-term position. LedgerTxID links the registry row
// to its audit entry in the transactions table; settling the position flips
// both in the same transaction, so neither representation can pay out twice.
type Investment struct {
	ID         snowflake.ID    `gorm:"column:id;primaryKey;autoIncrement:false"`
	UserID     int64           `gorm:"column:user_id;index;not null"`
	Plan       string          `gorm:"column:plan;not null"`
	Principal  decimal.Decimal `gorm:"column:principal;type:decimal(12,2);not null"`
	Earnings   decimal.Decimal `gorm:"column:earnings;type:decimal(12,2)"`
	Status     Status          `gorm:"column:status;default:'Active'"`
	LedgerTxID snowflake.ID    `gorm:"column:ledger_tx_id;index"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Investment) TableName() string {
	return "investments"
}

// View is the read-path shape: still-active positions carry their projected
// (unrealized) earnings and the date the payout becomes due.
type View struct {
	Investment
	ProjectedEarnings decimal.Decimal `json:"projected_earnings"`
	PayoutDate        time.Time       `json:"payout_date"`
}
