package grpc_control

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeSource struct {
	perf *models.MPerformance
	err  error
}

func (f *fakeSource) Performance(context.Context) (*models.MPerformance, *models.MCompetition, error) {
	return f.perf, nil, f.err
}

func makePerf(days int) *models.MPerformance {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	perf := &models.MPerformance{StartDate: "2024-01-02", InitialInvestment: models.InitialInvestment}
	for d := 0; d < days; d++ {
		perf.TradingDays = append(perf.TradingDays, start.AddDate(0, 0, d).Format(time.DateOnly))
	}
	for i := 0; i < 2; i++ {
		p := models.MPlayerPerformance{Name: fmt.Sprintf("P%d", i+1), Color: models.PlayerColors[i]}
		for d, day := range perf.TradingDays {
			v := models.InitialInvestment + float64((i+1)*d*100)
			p.History = append(p.History, models.MHistorySample{Date: day, Value: v, ValueWithShort: v})
		}
		perf.Players = append(perf.Players, p)
	}
	return perf
}

func testConfig() *models.MConfig {
	return &models.MConfig{
		Dashboard: models.MDashboardConfig{
			ChartWidth:      320,
			ChartHeight:     160,
			GifWidth:        120,
			GifHeight:       60,
			GifMaxFrames:    60,
			GifFrameSeconds: 0.15,
			GifWorkers:      2,
			GifTimeoutSec:   30,
			DefaultSpeed:    5,
		},
	}
}

func startControl(t *testing.T, source *fakeSource) *DashboardControlClient {
	t.Helper()
	cfg := testConfig()
	log := logger.NewNopLogger()

	loop := timeline.NewLoop(nil)
	ctrl := dashboard.NewController(cfg, loop, log)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, NewControlService(cfg, ctrl, source, log))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		ctrl.Close()
		loop.Stop()
	})
	return NewDashboardControlClient(conn)
}

func codeOf(err error) codes.Code {
	return status.Code(err)
}

func TestControlRequiresPerformance(t *testing.T) {
	client := startControl(t, &fakeSource{err: analysis.ErrNoCompetition})
	ctx := context.Background()

	_, err := client.Play(ctx)
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))

	_, err = client.RefreshPerformance(ctx)
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))

	st, err := client.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "line", st.Fields["view"].GetStringValue())
}

func TestControlCommands(t *testing.T) {
	client := startControl(t, &fakeSource{perf: makePerf(60)})
	ctx := context.Background()

	_, err := client.RefreshPerformance(ctx)
	require.NoError(t, err)

	st, err := client.SetView(ctx, "bar")
	require.NoError(t, err)
	assert.Equal(t, "bar", st.Fields["view"].GetStringValue())
	assert.Len(t, st.Fields["standings"].GetListValue().GetValues(), 2)

	_, err = client.SetView(ctx, "pie")
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	st, err = client.SetSpeed(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, st.Fields["speed"].GetNumberValue())
	_, err = client.SetSpeed(ctx, 11)
	assert.Equal(t, codes.InvalidArgument, codeOf(err))
	_, err = client.SetSpeed(ctx, 1)
	require.NoError(t, err)

	st, err = client.TogglePlayer(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, st.Fields["active_players"].GetListValue().GetValues(), 1)

	st, err = client.Play(ctx)
	require.NoError(t, err)
	assert.Equal(t, "race", st.Fields["view"].GetStringValue())
	assert.Equal(t, "playing", st.Fields["race_state"].GetStringValue())

	st, err = client.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paused", st.Fields["race_state"].GetStringValue())

	st, err = client.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.Fields["cursor"].GetNumberValue())
}

func TestControlCaptureConflict(t *testing.T) {
	client := startControl(t, &fakeSource{perf: makePerf(200)})
	ctx := context.Background()
	_, err := client.RefreshPerformance(ctx)
	require.NoError(t, err)

	st, err := client.StartCapture(ctx)
	require.NoError(t, err)
	assert.True(t, st.Fields["capture_active"].GetBoolValue())

	_, err = client.StartCapture(ctx)
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))
	_, err = client.Play(ctx)
	assert.Equal(t, codes.FailedPrecondition, codeOf(err))

	cancelled, err := client.CancelCapture(ctx)
	require.NoError(t, err)
	assert.True(t, cancelled)

	cancelled, err = client.CancelCapture(ctx)
	require.NoError(t, err)
	assert.False(t, cancelled)
}
