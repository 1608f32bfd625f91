package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the two per-user balances. The spendable main balance moves
// on deposits, withdrawals, investments and payouts; the profit balance
// accrues realized investment earnings. Neither may go negative.
type Wallet struct {
	UserID        int64           `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	MainBalance   decimal.Decimal `gorm:"column:main_balance;type:decimal(12,2);not null"`
	ProfitBalance decimal.Decimal `gorm:"column:profit_balance;type:decimal(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}
