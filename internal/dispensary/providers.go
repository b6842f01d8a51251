package dispensary

import (
	"gorm.io/gorm"

	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	"github.com/tair/clinic-dispensary/internal/dispensary/delivery/grpc"
	"github.com/tair/clinic-dispensary/internal/dispensary/delivery/http"
	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/internal/dispensary/repository"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/command"
)

// Service bundles the delivery surfaces of the dispensary
type Service struct {
	HTTP       *http.DispensaryHandler
	GRPC       *grpc.DispensaryGRPCServer
	Quarantine *command.QuarantineHandler
}

// AllocationSettings tunes the FEFO allocator
type AllocationSettings struct {
	SkipExpired bool
}

// ProvideUnitRepository provides the traced unit repository
func ProvideUnitRepository(db *gorm.DB) domain.UnitRepository {
	return repository.NewGormUnitRepositoryWithTracing(db)
}

// ProvideTransactionRepository provides the traced ledger
func ProvideTransactionRepository(db *gorm.DB) domain.TransactionRepository {
	return repository.NewGormTransactionRepositoryWithTracing(db)
}

func ProvideLotRepository(db *gorm.DB) domain.LotRepository {
	return repository.NewGormLotRepositoryWithTracing(db)
}

func ProvideLocationRepository(db *gorm.DB) domain.LocationRepository {
	return repository.NewGormLocationRepositoryWithTracing(db)
}

func ProvideDrugRepository(db *gorm.DB) domain.DrugRepository {
	return repository.NewGormDrugRepositoryWithTracing(db)
}

func ProvideResolver(drugs domain.DrugRepository, cache catalog.Cache) *catalog.Resolver {
	return catalog.NewResolver(drugs, cache)
}

func ProvideAllocator(units domain.UnitRepository, resolver domain.DrugResolver, settings AllocationSettings) *engine.Allocator {
	return engine.NewAllocator(units, resolver, engine.WithSkipExpired(settings.SkipExpired))
}
