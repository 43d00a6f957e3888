package grpc_control

import (
	"context"
	"errors"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements DashboardControlServer on top of the shared
// dashboard controller.
type ControlService struct {
	Config    *models.MConfig
	Dashboard *dashboard.Controller
	Portfolio interfaces.IPerformanceSource
	Logger    *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *models.MConfig, dash *dashboard.Controller, portfolio interfaces.IPerformanceSource, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewLogger(cfg, "Control")
	}
	return &ControlService{
		Config:    cfg,
		Dashboard: dash,
		Portfolio: portfolio,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// toStatus maps dashboard errors to gRPC codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, dashboard.ErrCaptureInProgress),
		errors.Is(err, dashboard.ErrNoPerformance),
		errors.Is(err, analysis.ErrNoCompetition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case helpers.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// summary flattens the dashboard state into a Struct.
func (s *ControlService) summary(ctx context.Context) (*structpb.Struct, error) {
	st, err := s.Dashboard.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	active := make([]any, 0, len(st.ActivePlayers))
	for _, idx := range st.ActivePlayers {
		active = append(active, idx)
	}
	standings := make([]any, 0, len(st.Standings))
	for _, row := range st.Standings {
		standings = append(standings, map[string]any{
			"rank":       row.Rank,
			"name":       row.Name,
			"value":      row.Value,
			"change_pct": row.ChangePct,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"view":           st.View,
		"theme":          st.Theme,
		"cursor":         st.Cursor,
		"date":           st.Date,
		"race_state":     st.RaceState,
		"speed":          st.Speed,
		"include_short":  st.IncludeShort,
		"active_players": active,
		"standings":      standings,
		"capture_active": st.Capture.Active,
		"capture_status": st.Capture.Message,
		"export_url":     st.ExportURL,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// apply runs a command and answers with the resulting state.
func (s *ControlService) apply(ctx context.Context, name string, cmd func(context.Context) error) (*structpb.Struct, error) {
	if err := cmd(ctx); err != nil {
		s.Logger.Debug("gRPC: %s rejected: %v", name, err)
		return nil, toStatus(err)
	}
	return s.summary(ctx)
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.summary(ctx)
}

func (s *ControlService) Play(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.apply(ctx, "Play", s.Dashboard.Play)
}

func (s *ControlService) Pause(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.apply(ctx, "Pause", s.Dashboard.Pause)
}

func (s *ControlService) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.apply(ctx, "Reset", s.Dashboard.Reset)
}

func (s *ControlService) SetSpeed(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	return s.apply(ctx, "SetSpeed", func(ctx context.Context) error {
		return s.Dashboard.SetSpeed(ctx, int(req.GetValue()))
	})
}

func (s *ControlService) SetView(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.apply(ctx, "SetView", func(ctx context.Context) error {
		return s.Dashboard.SetView(ctx, req.GetValue())
	})
}

func (s *ControlService) TogglePlayer(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	return s.apply(ctx, "TogglePlayer", func(ctx context.Context) error {
		return s.Dashboard.TogglePlayer(ctx, int(req.GetValue()))
	})
}

func (s *ControlService) StartCapture(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.apply(ctx, "StartCapture", s.Dashboard.StartCapture)
}

func (s *ControlService) CancelCapture(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	cancelled, err := s.Dashboard.CancelCapture(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(cancelled), nil
}

func (s *ControlService) RefreshPerformance(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.Logger.Info("gRPC: performance refresh requested")
	return s.apply(ctx, "RefreshPerformance", func(ctx context.Context) error {
		return s.Dashboard.Refresh(ctx, s.Portfolio)
	})
}
