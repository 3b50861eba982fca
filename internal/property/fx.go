package property

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/cache"
	"github.com/stayware/callguard/internal/property/repository"
	"github.com/stayware/callguard/internal/property/service"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(cache.NewPropertyResolverCache),
	fx.Provide(service.NewDirectory),
	fx.Provide(service.NewService),
)
