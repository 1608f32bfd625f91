package referral

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Referral is created once at registration; the bonus stays zero until the
// referred user's first completed deposit qualifies it.
type Referral struct {
	ID             snowflake.ID    `gorm:"column:id;primaryKey;autoIncrement:false"`
	ReferrerUserID int64           `gorm:"column:referrer_user_id;index;not null"`
	ReferredUserID int64           `gorm:"column:referred_user_id;uniqueIndex;not null"`
	BonusAmount    decimal.Decimal `gorm:"column:bonus_amount;type:decimal(12,2)"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Referral) TableName() string {
	return "referrals"
}
