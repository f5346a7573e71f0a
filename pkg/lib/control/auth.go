package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type peerNetworkContextKey struct{}

func extractPeerNetworkFromContext(ctx context.Context) *string {
	if v := ctx.Value(peerNetworkContextKey{}); v != nil {
		if network, ok := v.(string); ok {
			return &network
		}
	}
	return nil
}

func extractPeerNetwork(ctx context.Context) *string {
	if v := extractPeerNetworkFromContext(ctx); v != nil {
		return v
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p == nil || p.Addr == nil {
		return nil
	}
	network := p.Addr.Network()
	return &network
}

func injectPeerNetwork(ctx context.Context, network string) context.Context {
	return context.WithValue(ctx, peerNetworkContextKey{}, network)
}

func checkLocal(ctx context.Context) (context.Context, error) {
	network := extractPeerNetwork(ctx)
	if network == nil {
		return nil, status.Error(codes.Unauthenticated, "unknown peer")
	}
	if *network != "unix" {
		return nil, status.Errorf(codes.PermissionDenied, "control service is local only, got %s peer", *network)
	}
	return injectPeerNetwork(ctx, *network), nil
}

// localOnlyUnary rejects callers that are not on the unix socket.
func localOnlyUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := checkLocal(ctx)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type streamWithCtx struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *streamWithCtx) Context() context.Context { return s.ctx }

// localOnlyStream rejects callers that are not on the unix socket.
func localOnlyStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := checkLocal(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &streamWithCtx{ServerStream: ss, ctx: ctx})
}
