package exemption

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/exemption/service"
)

var Module = fx.Module("exemption.service",
	fx.Provide(service.NewService),
)
