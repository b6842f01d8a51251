package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// CreateLocationCommand represents the command to create a storage location
type CreateLocationCommand struct {
	Actor       domain.Actor
	Name        string
	Temperature string
}

type CreateLocationHandler struct {
	repo domain.LocationRepository
}

func NewCreateLocationHandler(repo domain.LocationRepository) *CreateLocationHandler {
	return &CreateLocationHandler{repo: repo}
}

// Handle executes the create location command
func (h *CreateLocationHandler) Handle(ctx context.Context, cmd CreateLocationCommand) (*domain.Location, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	if cmd.Temperature == "" {
		cmd.Temperature = domain.TemperatureRoomTemperature
	}
	if !domain.ValidTemperature(cmd.Temperature) {
		return nil, domain.Invalid("temperature must be %s or %s", domain.TemperatureRefrigerated, domain.TemperatureRoomTemperature)
	}

	location := &domain.Location{ClinicID: cmd.Actor.ClinicID, Name: name, Temperature: cmd.Temperature}
	if err := h.repo.Create(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return location, nil
}

// CreateLotCommand represents the command to open a donation lot
type CreateLotCommand struct {
	Actor       domain.Actor
	Source      string
	Note        string
	MaxCapacity *int
	LocationID  uint
}

type CreateLotHandler struct {
	lots      domain.LotRepository
	locations domain.LocationRepository
}

func NewCreateLotHandler(lots domain.LotRepository, locations domain.LocationRepository) *CreateLotHandler {
	return &CreateLotHandler{lots: lots, locations: locations}
}

// Handle executes the create lot command
func (h *CreateLotHandler) Handle(ctx context.Context, cmd CreateLotCommand) (*domain.Lot, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, err
	}
	source := strings.TrimSpace(cmd.Source)
	if source == "" {
		return nil, domain.Invalid("source is required")
	}
	if cmd.MaxCapacity != nil && *cmd.MaxCapacity <= 0 {
		return nil, domain.Invalid("max_capacity must be positive when set")
	}
	if cmd.LocationID == 0 {
		return nil, domain.Invalid("location_id is required")
	}
	if _, err := h.locations.FindByID(ctx, cmd.Actor.ClinicID, cmd.LocationID); err != nil {
		return nil, err
	}

	lot := &domain.Lot{
		ClinicID:    cmd.Actor.ClinicID,
		Source:      source,
		Note:        cmd.Note,
		MaxCapacity: cmd.MaxCapacity,
		LocationID:  cmd.LocationID,
	}
	if err := h.lots.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create lot: %w", err)
	}

	logger.Info(ctx).
		Uint("clinic_id", lot.ClinicID).
		Uint("lot_id", lot.ID).
		Msg("Lot created")
	return lot, nil
}

// RegisterDrugCommand adds a drug to the catalog, idempotently by NDC
type RegisterDrugCommand struct {
	Actor        domain.Actor
	Name         string
	GenericName  string
	Strength     decimal.Decimal
	StrengthUnit string
	Form         string
	NDC          string
}

type RegisterDrugHandler struct {
	resolver *catalog.Resolver
}

func NewRegisterDrugHandler(resolver *catalog.Resolver) *RegisterDrugHandler {
	return &RegisterDrugHandler{resolver: resolver}
}

// Handle returns the catalog entry and whether it was created
func (h *RegisterDrugHandler) Handle(ctx context.Context, cmd RegisterDrugCommand) (*domain.Drug, bool, error) {
	if err := cmd.Actor.Validate(); err != nil {
		return nil, false, err
	}
	return h.resolver.Register(ctx, &domain.Drug{
		Name:         cmd.Name,
		GenericName:  strings.TrimSpace(cmd.GenericName),
		Strength:     cmd.Strength,
		StrengthUnit: strings.TrimSpace(cmd.StrengthUnit),
		Form:         strings.TrimSpace(cmd.Form),
		NDC:          cmd.NDC,
	})
}
