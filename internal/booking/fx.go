package booking

import (
	"github.com/smallbiznis/campstay/internal/booking/aggregate"
	"github.com/smallbiznis/campstay/internal/booking/recalc"
	"github.com/smallbiznis/campstay/internal/booking/repository"
	"github.com/smallbiznis/campstay/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(aggregate.NewSet),
	fx.Provide(recalc.NewEngine),
	fx.Provide(recalc.NewReader),
	fx.Provide(service.NewService),
)
