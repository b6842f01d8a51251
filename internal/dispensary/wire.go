//go:build wireinject
// +build wireinject

package dispensary

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	"github.com/tair/clinic-dispensary/internal/dispensary/delivery/grpc"
	"github.com/tair/clinic-dispensary/internal/dispensary/delivery/http"
	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/command"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/query"
	"github.com/tair/clinic-dispensary/pkg/lock"
)

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideUnitRepository,
	ProvideTransactionRepository,
	ProvideLotRepository,
	ProvideLocationRepository,
	ProvideDrugRepository,
)

var EngineSet = wire.NewSet(
	ProvideResolver,
	wire.Bind(new(domain.DrugResolver), new(*catalog.Resolver)),
	engine.NewCapacityLedger,
	ProvideAllocator,
	engine.NewDispenser,
)

var CommandSet = wire.NewSet(
	command.NewCheckInHandler,
	command.NewCheckOutSpecificHandler,
	command.NewCheckOutFEFOHandler,
	command.NewQuarantineHandler,
	command.NewAdjustUnitHandler,
	command.NewCreateLocationHandler,
	command.NewCreateLotHandler,
	command.NewRegisterDrugHandler,
)

var QuerySet = wire.NewSet(
	query.NewGetUnitHandler,
	query.NewListUnitTransactionsHandler,
	query.NewCheckCapacityHandler,
	query.NewPreviewFEFOHandler,
)

// InitializeService initializes every delivery surface with all dependencies
func InitializeService(db *gorm.DB, locker lock.Locker, cache catalog.Cache, events command.EventPublisher, settings AllocationSettings) (*Service, error) {
	wire.Build(
		RepositorySet,
		EngineSet,
		CommandSet,
		QuerySet,
		http.NewDispensaryHandler,
		grpc.NewDispensaryGRPCServer,
		wire.Struct(new(Service), "*"),
	)
	return nil, nil
}
