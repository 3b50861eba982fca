package providers

import (
	"go.uber.org/fx"

	"github.com/stayware/callguard/internal/providers/email"
)

var Module = fx.Module("providers",
	email.Module,
)
