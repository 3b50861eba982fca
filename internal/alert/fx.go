package alert

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/alert/repository"
	"github.com/stayware/callguard/internal/alert/service"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
