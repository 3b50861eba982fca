package dispatch

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/dispatch/service"
)

var Module = fx.Module("dispatch.service",
	fx.Provide(
		service.NewService,
	),
)
