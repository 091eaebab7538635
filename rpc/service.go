package rpc

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"yapa-server/network_state"
	"yapa-server/server"
)

const outboxSize = 64

// streamSubscriber adapts a gRPC stream to server.Subscriber.
type streamSubscriber struct {
	id  string
	out chan []byte
}

func (s *streamSubscriber) ID() string            { return s.id }
func (s *streamSubscriber) Outbox() chan<- []byte { return s.out }

// FrameService streams channel envelopes to gRPC clients.
type FrameService struct {
	manager *server.ChannelManager
	logger  *slog.Logger
}

func NewFrameService(manager *server.ChannelManager, logger *slog.Logger) *FrameService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameService{manager: manager, logger: logger}
}

// Subscribe attaches the stream to a channel until the client goes away.
func (s *FrameService) Subscribe(req *structpb.Struct, stream FrameStream_SubscribeServer) error {
	fields := req.GetFields()
	vp := network_state.Viewport{
		Width:      fields["width"].GetNumberValue(),
		Height:     fields["height"].GetNumberValue(),
		PixelRatio: fields["pixel_ratio"].GetNumberValue(),
	}
	if err := vp.Validate(); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	sub := &streamSubscriber{id: uuid.NewString(), out: make(chan []byte, outboxSize)}

	ch, err := s.manager.Attach(fields["channel"].GetStringValue(), sub)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer s.manager.Detach(ch, sub.id)
	logger := s.logger.With("session", sub.id, "channel", ch.ID)
	logger.Info("grpc subscriber attached")

	info, _ := ch.Info()
	assigned, err := server.EncodeMessage(server.MsgSessionAssigned, server.SessionAssigned{
		SessionID: sub.id,
		ChannelID: ch.ID,
		Config:    info.Config,
	})
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := sendEnvelope(stream, assigned); err != nil {
		return err
	}

	if vp.Width > 0 && vp.Height > 0 {
		ch.SetViewport(vp)
	}

	for {
		select {
		case <-stream.Context().Done():
			logger.Info("grpc subscriber gone")
			return nil
		case <-ch.Done():
			return status.Error(codes.Unavailable, server.ErrChannelClosed.Error())
		case raw := <-sub.out:
			if err := sendEnvelope(stream, raw); err != nil {
				logger.Warn("grpc send failed", "error", err)
				return err
			}
		}
	}
}

func sendEnvelope(stream FrameStream_SubscribeServer, raw []byte) error {
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, msg); err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(msg)
}

// NewGRPCServer builds a server with the frame stream and the standard
// health service registered.
func NewGRPCServer(svc *FrameService, logger *slog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.ChainStreamInterceptor(loggingStreamInterceptor(logger)))
	RegisterFrameStreamServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

func loggingStreamInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logger.Info("grpc stream finished", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
		return err
	}
}
