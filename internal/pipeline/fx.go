package pipeline

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/pipeline/service"
)

var Module = fx.Module("pipeline.service",
	fx.Provide(service.NewService),
)
