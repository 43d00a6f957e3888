package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pb "cheese-stick/src/grpc_control"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	controlAddr    string
	controlTimeout time.Duration
)

var controlCmd = &cobra.Command{
	Use:   "control [method] [arg]",
	Short: "Drive a running dashboard through the gRPC control service",
	Long: `Calls one DashboardControl method and prints the resulting status.

Methods:
  status            - current view, cursor and standings
  play | pause | reset
  speed <1-10>
  view <line|bar|race>
  toggle <player index>
  capture           - start a GIF capture
  cancel            - cancel the running capture
  refresh           - revalue the competition now`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runControl,
}

func init() {
	controlCmd.Flags().StringVar(&controlAddr, "addr", fmt.Sprintf("127.0.0.1:%d", defaultGrpcPort), "control service address")
	controlCmd.Flags().DurationVar(&controlTimeout, "timeout", 2*time.Minute, "call timeout")
}

// -----------------------------------------------------------------------------

func runControl(cmd *cobra.Command, args []string) error {
	conn, err := grpc.NewClient(controlAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
	defer cancel()

	method := strings.ToLower(args[0])
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	if method == "cancel" {
		cancelled, err := pb.NewDashboardControlClient(conn).CancelCapture(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cancelled: %v\n", cancelled)
		return nil
	}

	st, err := callControl(ctx, pb.NewDashboardControlClient(conn), method, arg)
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// callControl maps a CLI method name to a client call.
func callControl(ctx context.Context, client *pb.DashboardControlClient, method, arg string) (*structpb.Struct, error) {
	intArg := func() (int, error) {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return 0, fmt.Errorf("%s needs an integer argument, got %q", method, arg)
		}
		return n, nil
	}

	switch method {
	case "status":
		return client.GetStatus(ctx)
	case "play":
		return client.Play(ctx)
	case "pause":
		return client.Pause(ctx)
	case "reset":
		return client.Reset(ctx)
	case "speed":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		return client.SetSpeed(ctx, n)
	case "view":
		if arg == "" {
			return nil, fmt.Errorf("view needs a name (line, bar, race)")
		}
		return client.SetView(ctx, arg)
	case "toggle":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		return client.TogglePlayer(ctx, n)
	case "capture":
		return client.StartCapture(ctx)
	case "refresh":
		return client.RefreshPerformance(ctx)
	default:
		return nil, fmt.Errorf("unknown control method %q", method)
	}
}
