package investment

import (
	"go.uber.org/fx"

	"vaultwise-core/services/ledger"
)

var Module = fx.Module("investment.service",
	fx.Provide(
		NewService,
		func(s *Service) ledger.Sweeper { return s },
	),
)
