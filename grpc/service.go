package tpgrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/simplewallet/types"

	"google.golang.org/grpc"
)

const serviceName = "simplewallet.v1.Validator"

// ValidatorServiceServer is the server-side interface of the validator
// service. Connect, GetState and SetState serve transaction
// processors; Submit and Query serve clients.
type ValidatorServiceServer interface {
	Connect(grpc.ServerStream) error
	GetState(context.Context, *types.GetStateRequest) (*types.GetStateResponse, error)
	SetState(context.Context, *types.SetStateRequest) (*types.SetStateResponse, error)
	Submit(context.Context, *types.Transaction) (*types.SubmitResponse, error)
	Query(context.Context, *types.QueryRequest) (*types.QueryResult, error)
}

// RegisterValidatorServiceServer registers srv on a gRPC server.
func RegisterValidatorServiceServer(s *grpc.Server, srv ValidatorServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

func handlerConnect(srv any, stream grpc.ServerStream) error {
	return srv.(ValidatorServiceServer).Connect(stream)
}

func handlerGetState(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.GetStateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ValidatorServiceServer).GetState(ctx, req)
}

func handlerSetState(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.SetStateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ValidatorServiceServer).SetState(ctx, req)
}

func handlerSubmit(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.Transaction)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ValidatorServiceServer).Submit(ctx, req)
}

func handlerQuery(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.QueryRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ValidatorServiceServer).Query(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for the validator.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ValidatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: handlerGetState},
		{MethodName: "SetState", Handler: handlerSetState},
		{MethodName: "Submit", Handler: handlerSubmit},
		{MethodName: "Query", Handler: handlerQuery},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       handlerConnect,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "simplewallet/v1/validator.cram",
}

var connectStream = &serviceDesc.Streams[0]
