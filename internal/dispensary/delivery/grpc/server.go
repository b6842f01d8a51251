package grpc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/command"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/query"
)

// DispensaryGRPCServer implements DispensaryServiceServer over the CQRS handlers
type DispensaryGRPCServer struct {
	// Command handlers
	checkIn          *command.CheckInHandler
	checkOutSpecific *command.CheckOutSpecificHandler
	checkOutFEFO     *command.CheckOutFEFOHandler
	quarantine       *command.QuarantineHandler
	adjustUnit       *command.AdjustUnitHandler

	// Query handlers
	getUnit          *query.GetUnitHandler
	listTransactions *query.ListUnitTransactionsHandler
	checkCapacity    *query.CheckCapacityHandler
	previewFEFO      *query.PreviewFEFOHandler
}

// NewDispensaryGRPCServer creates a new gRPC server
func NewDispensaryGRPCServer(
	checkIn *command.CheckInHandler,
	checkOutSpecific *command.CheckOutSpecificHandler,
	checkOutFEFO *command.CheckOutFEFOHandler,
	quarantine *command.QuarantineHandler,
	adjustUnit *command.AdjustUnitHandler,
	getUnit *query.GetUnitHandler,
	listTransactions *query.ListUnitTransactionsHandler,
	checkCapacity *query.CheckCapacityHandler,
	previewFEFO *query.PreviewFEFOHandler,
) *DispensaryGRPCServer {
	return &DispensaryGRPCServer{
		checkIn:          checkIn,
		checkOutSpecific: checkOutSpecific,
		checkOutFEFO:     checkOutFEFO,
		quarantine:       quarantine,
		adjustUnit:       adjustUnit,
		getUnit:          getUnit,
		listTransactions: listTransactions,
		checkCapacity:    checkCapacity,
		previewFEFO:      previewFEFO,
	}
}

type drugFields struct {
	DrugID       uint            `json:"drug_id"`
	NDC          string          `json:"ndc"`
	Name         string          `json:"medication_name"`
	Strength     decimal.Decimal `json:"strength"`
	StrengthUnit string          `json:"strength_unit"`
}

func (d drugFields) matcher() domain.DrugMatcher {
	return domain.DrugMatcher{DrugID: d.DrugID, NDC: d.NDC, Name: d.Name, Strength: d.Strength, StrengthUnit: d.StrengthUnit}
}

func (s *DispensaryGRPCServer) CheckIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		LotID                 uint   `json:"lot_id"`
		DrugID                uint   `json:"drug_id"`
		TotalQuantity         int    `json:"total_quantity"`
		AvailableQuantity     *int   `json:"available_quantity"`
		ExpiryDate            string `json:"expiry_date"`
		ManufacturerLotNumber string `json:"manufacturer_lot_number"`
		Notes                 string `json:"notes"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		return nil, err
	}

	result, err := s.checkIn.Handle(ctx, command.CheckInCommand{
		Actor:                 actorFrom(ctx),
		LotID:                 req.LotID,
		DrugID:                req.DrugID,
		TotalQuantity:         req.TotalQuantity,
		AvailableQuantity:     req.AvailableQuantity,
		ExpiryDate:            expiry,
		ManufacturerLotNumber: req.ManufacturerLotNumber,
		Notes:                 req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (s *DispensaryGRPCServer) CheckOutSpecific(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		UnitID   uint               `json:"unit_id"`
		Quantity int                `json:"quantity"`
		Patient  domain.PatientInfo `json:"patient"`
		Notes    string             `json:"notes"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	result, err := s.checkOutSpecific.Handle(ctx, command.CheckOutSpecificCommand{
		Actor:    actorFrom(ctx),
		UnitID:   req.UnitID,
		Quantity: req.Quantity,
		Patient:  req.Patient,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (s *DispensaryGRPCServer) CheckOutFEFO(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		drugFields
		Quantity int                `json:"quantity"`
		Patient  domain.PatientInfo `json:"patient"`
		Notes    string             `json:"notes"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	result, err := s.checkOutFEFO.Handle(ctx, command.CheckOutFEFOCommand{
		Actor:    actorFrom(ctx),
		Drug:     req.matcher(),
		Quantity: req.Quantity,
		Patient:  req.Patient,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (s *DispensaryGRPCServer) Quarantine(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		UnitID uint   `json:"unit_id"`
		Notes  string `json:"notes"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	result, err := s.quarantine.Handle(ctx, command.QuarantineCommand{
		Actor:  actorFrom(ctx),
		UnitID: req.UnitID,
		Notes:  req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (s *DispensaryGRPCServer) AdjustUnit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		UnitID            uint    `json:"unit_id"`
		TotalQuantity     *int    `json:"total_quantity"`
		AvailableQuantity *int    `json:"available_quantity"`
		ExpiryDate        *string `json:"expiry_date"`
		Notes             *string `json:"notes"`
		Reason            string  `json:"reason"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	correction := domain.UnitCorrection{
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.AvailableQuantity,
		Notes:             req.Notes,
	}
	if req.ExpiryDate != nil {
		expiry, err := parseDate(*req.ExpiryDate)
		if err != nil {
			return nil, err
		}
		correction.ExpiryDate = &expiry
	}

	result, err := s.adjustUnit.Handle(ctx, command.AdjustUnitCommand{
		Actor:      actorFrom(ctx),
		UnitID:     req.UnitID,
		Correction: correction,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(result)
}

func (s *DispensaryGRPCServer) GetUnit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		UnitID uint `json:"unit_id"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	unit, err := s.getUnit.Handle(ctx, query.GetUnitQuery{Actor: actorFrom(ctx), UnitID: req.UnitID})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(unit)
}

func (s *DispensaryGRPCServer) ListUnitTransactions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		UnitID uint `json:"unit_id"`
		Limit  int  `json:"limit"`
		Offset int  `json:"offset"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	txns, err := s.listTransactions.Handle(ctx, query.ListUnitTransactionsQuery{
		Actor:  actorFrom(ctx),
		UnitID: req.UnitID,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{"transactions": txns})
}

func (s *DispensaryGRPCServer) CheckCapacity(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		LotID    uint `json:"lot_id"`
		Incoming int  `json:"incoming"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	capacity, err := s.checkCapacity.Handle(ctx, query.CheckCapacityQuery{Actor: actorFrom(ctx), LotID: req.LotID, Incoming: req.Incoming})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(capacity)
}

func (s *DispensaryGRPCServer) PreviewFEFO(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		drugFields
		Quantity int `json:"quantity"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	plan, err := s.previewFEFO.Handle(ctx, query.PreviewFEFOQuery{Actor: actorFrom(ctx), Drug: req.matcher(), Quantity: req.Quantity})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(plan)
}

// decode maps a Struct document onto a request type through its JSON form
func decode(in *structpb.Struct, v interface{}) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "expiry_date must be YYYY-MM-DD")
	}
	return t, nil
}
