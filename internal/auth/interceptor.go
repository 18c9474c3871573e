package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryInterceptor returns a gRPC UnaryServerInterceptor that enforces the
// gate on every incoming call.
//
// Behaviour:
//   - If the gate is open, all calls are allowed (pass-through).
//   - Otherwise the "authorization" metadata value must be "Bearer <token>"
//     with the expected token.
//   - Missing metadata or a wrong token returns codes.Unauthenticated.
func UnaryInterceptor(g *Gate) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if g.Open() {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		vals := md.Get("authorization")
		if len(vals) == 0 || !g.Authorize(BearerToken(vals[0])) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}
