package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"market-stream/src/grpc_control"
	"market-stream/src/logger"
	"market-stream/src/models"
	"market-stream/src/server"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers launches the HTTP/websocket server and the gRPC control
// server. Fatal serve errors are reported on errc.
func startServers(
	srv *server.FastAPIServer,
	control *grpc_control.ControlService,
	config *models.MConfig,
	appLogger *logger.Logger,
	errc chan<- error,
) (stop func()) {

	// 1. FastAPIServer
	go func() {
		if err := srv.Start(); err != nil {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	// 2. gRPC Control Server
	grpcServer := grpc.NewServer()
	grpc_control.RegisterStreamControlServer(grpcServer, control)

	go func() {
		addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			errc <- fmt.Errorf("listen for gRPC: %w", err)
			return
		}
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			errc <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			appLogger.Warning("HTTP shutdown: %v", err)
		}
		grpcServer.GracefulStop()
	}
}
