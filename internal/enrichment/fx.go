package enrichment

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/enrichment/repository"
	"github.com/stayware/callguard/internal/enrichment/service"
)

var Module = fx.Module("enrichment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
