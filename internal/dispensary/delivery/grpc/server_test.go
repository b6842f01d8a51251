package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/clinic-dispensary/internal/dispensary/catalog"
	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/engine"
	"github.com/tair/clinic-dispensary/internal/dispensary/repository/memory"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/command"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/query"
	"github.com/tair/clinic-dispensary/pkg/auth"
	"github.com/tair/clinic-dispensary/pkg/lock"
)

type testEnv struct {
	client *Client
	tokens *auth.Manager
	lot    *domain.Lot
	drug   *domain.Drug
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	resolver := catalog.NewResolver(store.Drugs(), nil)
	drug, _, err := resolver.Register(ctx, &domain.Drug{Name: "Lisinopril", Strength: decimal.NewFromInt(10), StrengthUnit: "mg", NDC: "68180-0513"})
	if err != nil {
		t.Fatalf("register drug: %v", err)
	}
	max := 20
	lot := &domain.Lot{ClinicID: 1, Source: "donation", MaxCapacity: &max, LocationID: 1}
	if err := store.Lots().Create(ctx, lot); err != nil {
		t.Fatalf("create lot: %v", err)
	}

	units := store.Units()
	dispenser := engine.NewDispenser(units, store.Transactions(), resolver,
		engine.NewCapacityLedger(store.Lots(), units), engine.NewAllocator(units, resolver), lock.NewLocalLocker())
	srv := NewDispensaryGRPCServer(
		command.NewCheckInHandler(dispenser, nil),
		command.NewCheckOutSpecificHandler(dispenser, nil),
		command.NewCheckOutFEFOHandler(dispenser, nil),
		command.NewQuarantineHandler(dispenser, nil),
		command.NewAdjustUnitHandler(dispenser, nil),
		query.NewGetUnitHandler(units),
		query.NewListUnitTransactionsHandler(units, store.Transactions()),
		query.NewCheckCapacityHandler(dispenser),
		query.NewPreviewFEFOHandler(dispenser),
	)
	tokens := auth.NewManager("grpc-secret", time.Hour, "")

	listener := bufconn.Listen(1 << 20)
	server := NewServer(srv, tokens)
	go server.Serve(listener)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &testEnv{client: NewClient(conn), tokens: tokens, lot: lot, drug: drug}
}

func (e *testEnv) ctx(t *testing.T, role string) context.Context {
	t.Helper()
	token, err := e.tokens.GenerateToken(5, 1, "nurse", role)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func TestUnauthenticatedCallsAreRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.client.Call(context.Background(), "GetUnit", mustStruct(t, map[string]interface{}{"unit_id": 1}))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestCheckInAndCheckOutOverGRPC(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx(t, auth.RoleStaff)

	resp, err := env.client.Call(ctx, "CheckIn", mustStruct(t, map[string]interface{}{
		"lot_id": float64(env.lot.ID), "drug_id": float64(env.drug.ID), "total_quantity": 12, "expiry_date": "2030-06-01",
	}))
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	unitID := resp.Fields["unit"].GetStructValue().Fields["id"].GetNumberValue()
	if unitID == 0 {
		t.Fatalf("expected unit id in response, got %v", resp)
	}

	resp, err = env.client.Call(ctx, "CheckOutFEFO", mustStruct(t, map[string]interface{}{"ndc": env.drug.NDC, "quantity": 5}))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := resp.Fields["total_dispensed"].GetNumberValue(); got != 5 {
		t.Fatalf("expected 5 dispensed, got %v", got)
	}

	_, err = env.client.Call(ctx, "CheckOutSpecific", mustStruct(t, map[string]interface{}{"unit_id": unitID, "quantity": 10}))
	st := status.Convert(err)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if ei, ok := d.(*errdetails.ErrorInfo); ok {
			info = ei
		}
	}
	if info == nil || info.Reason != "INSUFFICIENT_QUANTITY" || info.Metadata["shortfall"] != "3" {
		t.Fatalf("expected shortfall details, got %+v", st.Details())
	}
}

func TestCapacityAndNotFoundCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx(t, auth.RoleStaff)

	_, err := env.client.Call(ctx, "CheckIn", mustStruct(t, map[string]interface{}{
		"lot_id": float64(env.lot.ID), "drug_id": float64(env.drug.ID), "total_quantity": 25, "expiry_date": "2030-06-01",
	}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition for overflow, got %v", err)
	}

	_, err = env.client.Call(ctx, "GetUnit", mustStruct(t, map[string]interface{}{"unit_id": 404}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_, err = env.client.Call(ctx, "CheckIn", mustStruct(t, map[string]interface{}{"lot_id": float64(env.lot.ID), "drug_id": float64(env.drug.ID), "total_quantity": 1, "expiry_date": "soon"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	resp, err := env.client.Call(ctx, "CheckCapacity", mustStruct(t, map[string]interface{}{"lot_id": float64(env.lot.ID), "incoming": 20}))
	if err != nil {
		t.Fatalf("check capacity: %v", err)
	}
	if !resp.Fields["ok"].GetBoolValue() {
		t.Fatalf("expected empty lot to fit 20, got %v", resp)
	}
}

func TestAdjustUnitRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	staff := env.ctx(t, auth.RoleStaff)

	resp, err := env.client.Call(staff, "CheckIn", mustStruct(t, map[string]interface{}{
		"lot_id": float64(env.lot.ID), "drug_id": float64(env.drug.ID), "total_quantity": 8, "expiry_date": "2030-06-01",
	}))
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	unitID := resp.Fields["unit"].GetStructValue().Fields["id"].GetNumberValue()
	req := mustStruct(t, map[string]interface{}{"unit_id": unitID, "available_quantity": 6, "reason": "damaged"})

	if _, err := env.client.Call(staff, "AdjustUnit", req); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for staff, got %v", err)
	}
	resp, err = env.client.Call(env.ctx(t, auth.RoleAdmin), "AdjustUnit", req)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got := resp.Fields["transaction"].GetStructValue().Fields["quantity"].GetNumberValue(); got != -2 {
		t.Fatalf("expected delta -2, got %v", got)
	}
}
