package notifyq

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/notifyq/repository"
)

var Module = fx.Module("notifyq.repository",
	fx.Provide(
		repository.Provide,
	),
)
