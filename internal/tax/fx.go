package tax

import (
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	"github.com/smallbiznis/campstay/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(service.NewService),
	fx.Provide(func(svc taxdomain.Service) taxdomain.RateProvider { return svc }),
)
