package control

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// Backend is what the service reads from the supervisor.
type Backend interface {
	Status() lib.BackendStatus
	Output(ctx context.Context) (<-chan []byte, <-chan []byte, error)
}

// App receives activation and quit requests.
type App interface {
	Activate()
	Quit()
}

// Service implements ControlServer on top of a running shell.
type Service struct {
	backend Backend
	app     App
	info    map[string]any
	logger  *zap.Logger
}

// NewService creates a Service. Entries of info are added to every status
// reply.
func NewService(backend Backend, app App, info map[string]any, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, app: app, info: info, logger: logger}
}

func (s *Service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	fields := statusFields(s.backend.Status())
	for k, v := range s.info {
		fields[k] = v
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "error encoding status: %v", err)
	}
	return st, nil
}

func (s *Service) Activate(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.logger.Info("activation requested over control socket")
	s.app.Activate()
	return &emptypb.Empty{}, nil
}

func (s *Service) Quit(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.logger.Info("quit requested over control socket")
	s.app.Quit()
	return &emptypb.Empty{}, nil
}

func (s *Service) Logs(_ *emptypb.Empty, streaming grpc.ServerStreamingServer[structpb.Struct]) error {
	// the subscriptions end with the stream, read or not
	ctx, cancel := context.WithCancel(streaming.Context())
	defer cancel()

	stdout, stderr, err := s.backend.Output(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return status.Error(codes.NotFound, "backend was never started")
		}
		return status.Errorf(codes.Internal, "error subscribing to output: %v", err)
	}

	for {
		if stdout == nil && stderr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			if err := streaming.Send(outputChunk(StreamStdout, chunk)); err != nil {
				return err
			}
		case chunk, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			if err := streaming.Send(outputChunk(StreamStderr, chunk)); err != nil {
				return err
			}
		}
	}
}

const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

func outputChunk(stream string, data []byte) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"stream": structpb.NewStringValue(stream),
		"data":   structpb.NewStringValue(string(data)),
	}}
}

func statusFields(st lib.BackendStatus) map[string]any {
	fields := map[string]any{
		"state":  st.State.String(),
		"run_id": st.RunID,
	}
	if st.Pid != 0 {
		fields["pid"] = st.Pid
	}
	if st.Command != nil {
		fields["command"] = strings.TrimSpace(strings.Join(append([]string{st.Command.Command}, st.Command.Args...), " "))
	}
	if st.ExitCode != nil {
		fields["exit_code"] = *st.ExitCode
	}
	if !st.StartTime.IsZero() {
		fields["start_time"] = st.StartTime.Format(time.RFC3339)
	}
	if st.EndTime != nil {
		fields["end_time"] = st.EndTime.Format(time.RFC3339)
	}
	if st.LastError != "" {
		fields["last_error"] = st.LastError
	}
	return fields
}
