package rpc

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"yapa-server/config"
	"yapa-server/metrics"
	"yapa-server/server"
)

func startBufServer(t *testing.T) (*server.ChannelManager, *grpc.ClientConn) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := server.NewChannelManager(config.Default(), 5*time.Millisecond, logger, metrics.NewRegistry())

	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(NewFrameService(manager, logger), logger)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		manager.CloseAllChannels()
	})
	return manager, conn
}

func recvType(t *testing.T, stream FrameStream_SubscribeClient, msgType string) *structpb.Struct {
	t.Helper()
	for i := 0; i < 1000; i++ {
		msg, err := stream.Recv()
		require.NoError(t, err)
		if msg.GetFields()["type"].GetStringValue() == msgType {
			return msg
		}
	}
	t.Fatalf("no %q message on stream", msgType)
	return nil
}

func TestSubscribeStreamsFrames(t *testing.T) {
	manager, conn := startBufServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		"channel":     "grpc",
		"width":       400,
		"height":      300,
		"pixel_ratio": 1,
	})
	require.NoError(t, err)

	stream, err := NewFrameStreamClient(conn).Subscribe(ctx, req)
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, server.MsgSessionAssigned, first.GetFields()["type"].GetStringValue())
	data := first.GetFields()["data"].GetStructValue().GetFields()
	assert.Equal(t, "grpc", data["channel_id"].GetStringValue())
	assert.NotEmpty(t, data["session_id"].GetStringValue())

	frame := recvType(t, stream, server.MsgFrame)
	nodes := frame.GetFields()["data"].GetStructValue().GetFields()["nodes"].GetListValue().GetValues()
	assert.Len(t, nodes, 12)

	_, ok := manager.GetChannel("grpc")
	assert.True(t, ok)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := manager.GetChannel("grpc")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealthService(t *testing.T) {
	_, conn := startBufServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestSubscribeRejectsBadViewport(t *testing.T) {
	manager, conn := startBufServer(t)
	client := NewFrameStreamClient(conn)

	cases := map[string]map[string]*structpb.Value{
		"infinite width": {"width": structpb.NewNumberValue(math.Inf(1)), "height": structpb.NewNumberValue(100)},
		"nan ratio": {
			"width":       structpb.NewNumberValue(100),
			"height":      structpb.NewNumberValue(100),
			"pixel_ratio": structpb.NewNumberValue(math.NaN()),
		},
		"negative height": {"width": structpb.NewNumberValue(100), "height": structpb.NewNumberValue(-1)},
		"too large":       {"width": structpb.NewNumberValue(1e6), "height": structpb.NewNumberValue(1e6)},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			fields["channel"] = structpb.NewStringValue("bad")
			stream, err := client.Subscribe(ctx, &structpb.Struct{Fields: fields})
			require.NoError(t, err)
			_, err = stream.Recv()
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}

	_, ok := manager.GetChannel("bad")
	assert.False(t, ok)
}
