package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func callWithAuth(t *testing.T, interceptor grpc.UnaryServerInterceptor, value string) (interface{}, error) {
	t.Helper()
	ctx := context.Background()
	if value != "" {
		ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", value))
	}
	return interceptor(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
}

func TestUnaryInterceptor_OpenGate_PassesThrough(t *testing.T) {
	i := UnaryInterceptor(NewGate(""))
	res, err := i(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

func TestUnaryInterceptor_CorrectToken_Passes(t *testing.T) {
	i := UnaryInterceptor(NewGate("supersecret"))
	res, err := callWithAuth(t, i, "Bearer supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

func TestUnaryInterceptor_WrongToken_Unauthenticated(t *testing.T) {
	i := UnaryInterceptor(NewGate("supersecret"))
	_, err := callWithAuth(t, i, "Bearer wrong")
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestUnaryInterceptor_WrongScheme_Unauthenticated(t *testing.T) {
	i := UnaryInterceptor(NewGate("supersecret"))
	_, err := callWithAuth(t, i, "supersecret")
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestUnaryInterceptor_MissingHeader_Unauthenticated(t *testing.T) {
	i := UnaryInterceptor(NewGate("supersecret"))
	ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})
	_, err := i(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestUnaryInterceptor_NoMetadata_Unauthenticated(t *testing.T) {
	i := UnaryInterceptor(NewGate("supersecret"))
	_, err := i(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}
