package handler

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/workflow"
)

func startGRPC(t *testing.T, deps Deps) *InventoryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterInventoryServer(srv, NewGRPCHandler(deps, zerolog.Nop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewInventoryClient(conn)
}

func TestGRPC_Checkout(t *testing.T) {
	deps, _ := newDeps(okPipeline(), okPipeline())
	client := startGRPC(t, deps)

	resp, err := client.Checkout(context.Background(), &CheckoutRequest{OrderID: 1, Items: []CheckoutItem{{SkuID: 1, Quantity: 1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.ProcessID == "" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGRPC_CheckoutUnavailable(t *testing.T) {
	deps, _ := newDeps(okPipeline(), func(ctx context.Context, pc *workflow.ProcessContext) error {
		return &domain.InventoryUnavailableError{}
	})
	client := startGRPC(t, deps)

	resp, err := client.Checkout(context.Background(), &CheckoutRequest{Items: []CheckoutItem{{SkuID: 1, Quantity: 1}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Success || resp.Message != "not enough stock" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGRPC_StatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{&domain.ConcurrentModificationError{}, codes.Unavailable},
		{domain.InvalidArgumentf("bad"), codes.InvalidArgument},
		{fmt.Errorf("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			deps, _ := newDeps(okPipeline(), func(ctx context.Context, pc *workflow.ProcessContext) error {
				return tc.err
			})
			client := startGRPC(t, deps)

			_, err := client.Checkout(context.Background(), &CheckoutRequest{Items: []CheckoutItem{{SkuID: 1, Quantity: 1}}})
			if got := status.Code(err); got != tc.code {
				t.Errorf("expected %v, got %v (%v)", tc.code, got, err)
			}
		})
	}
}

func TestGRPC_CheckAvailability(t *testing.T) {
	deps, _ := newDeps(func(ctx context.Context, pc *workflow.ProcessContext) error {
		if pc.ItemRequest.Quantity > 2 {
			return &domain.InventoryUnavailableError{Message: "short"}
		}
		return nil
	}, okPipeline())
	client := startGRPC(t, deps)

	resp, err := client.CheckAvailability(context.Background(), &CheckAvailabilityRequest{SkuID: 1, Quantity: 2})
	if err != nil || !resp.Available {
		t.Fatalf("expected available, got %+v, %v", resp, err)
	}

	resp, err = client.CheckAvailability(context.Background(), &CheckAvailabilityRequest{SkuID: 1, Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Available || resp.Message != "short" {
		t.Errorf("unexpected response %+v", resp)
	}

	_, err = client.CheckAvailability(context.Background(), &CheckAvailabilityRequest{SkuID: 1})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
