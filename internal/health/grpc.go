package health

import (
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// IngestService is the gRPC health service name reported for the
// datagram listener.
const IngestService = "msgboard.ingest"

// NewGRPCServer returns a gRPC server exposing grpc.health.v1.Health.
// Every service starts NOT_SERVING until its owner marks it up.
func NewGRPCServer() (*grpc.Server, *grpchealth.Server) {
	s := grpc.NewServer()
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(IngestService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// MarkServing flips the listener and the overall status to SERVING.
func MarkServing(hs *grpchealth.Server) {
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(IngestService, healthpb.HealthCheckResponse_SERVING)
}
