package investment

import (
	"time"

	"github.com/shopspring/decimal"

	"vaultwise-core/pkg/config"
)

// Plan is static configuration: a fixed rate earned on the principal after
// the holding period elapses. The table is immutable once loaded.
type Plan struct {
	Name          string
	Rate          decimal.Decimal
	HoldingPeriod time.Duration
}

func PlansFromConfig(cfg *config.Config) map[string]Plan {
	plans := make(map[string]Plan, len(cfg.Engine.Plans))
	for _, p := range cfg.Engine.Plans {
		plans[p.Name] = Plan{
			Name:          p.Name,
			Rate:          decimal.NewFromFloat(p.Rate),
			HoldingPeriod: p.HoldingPeriod,
		}
	}
	return plans
}
