package auditlog

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/auditlog/service"
)

var Module = fx.Module("auditlog.service",
	fx.Provide(service.NewService),
)
