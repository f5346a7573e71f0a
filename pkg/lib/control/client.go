package control

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to the control service of a running shell.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for the socket at path. The connection is made
// lazily on the first call.
func Dial(path string) (*Client, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	// the peer is a local socket, there is nothing to encrypt
	conn, err := grpc.NewClient("unix://"+filepath.ToSlash(abs), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, statusMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Activate(ctx context.Context) error {
	return c.conn.Invoke(ctx, activateMethod, &emptypb.Empty{}, new(emptypb.Empty))
}

func (c *Client) Quit(ctx context.Context) error {
	return c.conn.Invoke(ctx, quitMethod, &emptypb.Empty{}, new(emptypb.Empty))
}

// Logs streams captured backend output from the beginning. Each message
// has a "stream" field (stdout or stderr) and a "data" field.
func (c *Client) Logs(ctx context.Context) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], logsMethod)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Running reports whether a shell answers on the socket at path.
func Running(ctx context.Context, path string) bool {
	c, err := Dial(path)
	if err != nil {
		return false
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

// Code returns the gRPC status code of err.
func Code(err error) codes.Code {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}
