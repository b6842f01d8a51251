package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "dispensary.v1.DispensaryService"

// DispensaryServiceServer is the server API. Messages are google.protobuf.Struct
// documents carrying the same JSON fields as the REST surface.
type DispensaryServiceServer interface {
	CheckIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckOutSpecific(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckOutFEFO(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Quarantine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdjustUnit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUnit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUnitTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckCapacity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PreviewFEFO(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpc func(DispensaryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call rpc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DispensaryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DispensaryServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes DispensaryService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DispensaryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler("CheckIn", DispensaryServiceServer.CheckIn),
		methodHandler("CheckOutSpecific", DispensaryServiceServer.CheckOutSpecific),
		methodHandler("CheckOutFEFO", DispensaryServiceServer.CheckOutFEFO),
		methodHandler("Quarantine", DispensaryServiceServer.Quarantine),
		methodHandler("AdjustUnit", DispensaryServiceServer.AdjustUnit),
		methodHandler("GetUnit", DispensaryServiceServer.GetUnit),
		methodHandler("ListUnitTransactions", DispensaryServiceServer.ListUnitTransactions),
		methodHandler("CheckCapacity", DispensaryServiceServer.CheckCapacity),
		methodHandler("PreviewFEFO", DispensaryServiceServer.PreviewFEFO),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dispensary/v1/dispensary.proto",
}

// RegisterDispensaryServiceServer registers srv on s
func RegisterDispensaryServiceServer(s grpc.ServiceRegistrar, srv DispensaryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is a thin caller for DispensaryService
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and returns the response document
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
