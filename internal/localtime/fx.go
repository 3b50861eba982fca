package localtime

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/localtime/service"
)

var Module = fx.Module("localtime.service",
	fx.Provide(service.NewConverter),
	fx.Provide(service.NewService),
)
