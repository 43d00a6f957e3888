package main

import (
	"fmt"
	"net"

	"cheese-stick/src/dashboard"
	pb "cheese-stick/src/grpc_control"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/server"

	"google.golang.org/grpc"
)

const defaultGrpcPort = 50051

// grpcPort returns the configured control port or the default.
func grpcPort(cfg *models.MConfig) int {
	if cfg.GrpcPort == 0 {
		return defaultGrpcPort
	}
	return cfg.GrpcPort
}

// -----------------------------------------------------------------------------

// startServers launches the HTTP API and the gRPC control server. Fatal
// serve errors are reported on errCh; the returned gRPC server must be
// stopped by the caller.
func startServers(
	srv *server.APIServer,
	dash *dashboard.Controller,
	portfolio interfaces.IPerformanceSource,
	cfg *models.MConfig,
	appLogger *logger.Logger,
	errCh chan<- error,
) (*grpc.Server, error) {

	// 1. HTTP API + websocket hub
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
			errCh <- err
		}
	}()

	// 2. gRPC Control Server
	addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, grpcPort(cfg))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Critical("failed to listen for gRPC: %v", err)
		return nil, err
	}
	grpcServer := grpc.NewServer()
	pb.Register(grpcServer, pb.NewControlService(cfg, dash, portfolio, logger.NewLogger(cfg, "ControlService")))

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
			errCh <- err
		}
	}()

	return grpcServer, nil
}
