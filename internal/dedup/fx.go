package dedup

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/dedup/service"
)

var Module = fx.Module("dedup.service",
	fx.Provide(service.NewService),
)
