package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/inventory/internal/core/domain"
)

const serviceName = "inventory.v1.InventoryService"

// InventoryServer is the server API of inventory.v1.InventoryService.
type InventoryServer interface {
	CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error)
}

type GRPCHandler struct {
	deps   Deps
	logger zerolog.Logger
}

func NewGRPCHandler(deps Deps, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{deps: deps, logger: logger}
}

// CheckAvailability reports shortage in the response. Other failures are
// returned as status errors.
func (h *GRPCHandler) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	if err := checkAvailability(ctx, h.deps, *req); err != nil {
		var unavailable *domain.InventoryUnavailableError
		if errors.As(err, &unavailable) {
			return &CheckAvailabilityResponse{Available: false, Message: unavailable.Error()}, nil
		}
		return nil, h.statusError(err)
	}
	return &CheckAvailabilityResponse{Available: true, Message: "available"}, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	processID, err := checkout(ctx, h.deps, *req)
	if err != nil {
		if errors.Is(err, domain.ErrInventoryUnavailable) {
			return &CheckoutResponse{Success: false, Message: "not enough stock", ProcessID: processID}, nil
		}
		return nil, h.statusError(err)
	}
	return &CheckoutResponse{Success: true, Message: "inventory reserved", ProcessID: processID}, nil
}

func (h *GRPCHandler) statusError(err error) error {
	m := mapError(err)
	if m.code == codes.Internal {
		h.logger.Error().Err(err).Msg("rpc failed")
	}
	return status.Error(m.code, m.text(err))
}

// RegisterInventoryServer registers srv on s.
func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "Checkout", Handler: checkoutHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory",
}

func checkAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckAvailabilityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CheckAvailability"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).CheckAvailability(ctx, req.(*CheckAvailabilityRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).Checkout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Checkout"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).Checkout(ctx, req.(*CheckoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InventoryClient calls inventory.v1.InventoryService with the JSON codec.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error) {
	out := new(CheckAvailabilityResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CheckAvailability", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	out := new(CheckoutResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Checkout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
