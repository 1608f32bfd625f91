package ledger

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdraw   Type = "withdraw"
	TypeInvestment Type = "investment"
	TypePayout     Type = "payout"
	TypeProfit     Type = "profit"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Transaction is one money-moving event. Deposits and withdrawals are born
// pending and adjudicated by staff; investments are born active and settled
// by the maturity sweep; payout and profit entries are terminal records
// created directly in completed status.
type Transaction struct {
	ID        snowflake.ID    `gorm:"column:id;primaryKey;autoIncrement:false"`
	UserID    int64           `gorm:"column:user_id;index;not null"`
	Type      Type            `gorm:"column:type;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Status    Status          `gorm:"column:status;default:'pending'"`
	Metadata  datatypes.JSON  `gorm:"column:metadata"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Meta decodes the metadata blob. Corrupt or empty metadata yields an empty
// map; the engine treats metadata as opaque except for the plan key.
func (t *Transaction) Meta() map[string]any {
	out := map[string]any{}
	if len(t.Metadata) == 0 {
		return out
	}
	_ = json.Unmarshal(t.Metadata, &out)
	return out
}

func (t *Transaction) MetaString(key string) string {
	v, _ := t.Meta()[key].(string)
	return v
}

func NewMeta(m map[string]any) datatypes.JSON {
	if m == nil {
		return datatypes.JSON([]byte("{}"))
	}
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
