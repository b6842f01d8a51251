package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/auth"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// gRPC Prometheus metrics
var (
	grpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensary_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status_code"},
	)

	grpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispensary_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	grpcErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispensary_grpc_errors_total",
			Help: "Total number of gRPC errors",
		},
		[]string{"method", "error_code"},
	)
)

func init() {
	prometheus.MustRegister(grpcRequestsTotal)
	prometheus.MustRegister(grpcRequestDuration)
	prometheus.MustRegister(grpcErrorsTotal)
}

const adminMethod = "/" + ServiceName + "/AdjustUnit"

type claimsKey struct{}

// NewServer builds a gRPC server with tracing, metrics, logging and auth
// wired in, and registers srv on it.
func NewServer(srv DispensaryServiceServer, tokens *auth.Manager, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			MetricsInterceptor,
			LoggingInterceptor,
			AuthInterceptor(tokens),
			SpanAttributesInterceptor,
		),
	}, opts...)
	server := grpc.NewServer(opts...)
	RegisterDispensaryServiceServer(server, srv)
	return server
}

// MetricsInterceptor collects Prometheus metrics for gRPC calls
func MetricsInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start).Seconds()

	statusCode := grpccodes.OK.String()
	if err != nil {
		statusCode = status.Code(err).String()
		grpcErrorsTotal.WithLabelValues(info.FullMethod, statusCode).Inc()
	}

	grpcRequestsTotal.WithLabelValues(info.FullMethod, statusCode).Inc()
	grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(duration)

	return resp, err
}

// LoggingInterceptor logs gRPC requests with structured logging
func LoggingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start)

	if err != nil {
		event := logger.Warn(ctx)
		if code := status.Code(err); code == grpccodes.Internal || code == grpccodes.Unknown {
			event = logger.Error(ctx)
		}
		event.
			Str("method", info.FullMethod).
			Str("protocol", "grpc").
			Dur("duration", duration).
			Int64("duration_ms", duration.Milliseconds()).
			Str("grpc_status", status.Code(err).String()).
			Err(err).
			Msg("gRPC request failed")
	} else {
		logger.Info(ctx).
			Str("method", info.FullMethod).
			Str("protocol", "grpc").
			Dur("duration", duration).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("gRPC request completed")
	}

	return resp, err
}

// AuthInterceptor validates bearer tokens on every method. AdjustUnit
// additionally requires the admin role.
func AuthInterceptor(tokens *auth.Manager) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Errorf(grpccodes.Unauthenticated, "metadata not provided")
		}

		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Errorf(grpccodes.Unauthenticated, "authorization token not provided")
		}
		token := strings.TrimPrefix(values[0], "Bearer ")

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(grpccodes.Unauthenticated, "invalid token: %v", err)
		}

		if info.FullMethod == adminMethod && !claims.IsAdmin() {
			logger.Warn(ctx).
				Str("method", info.FullMethod).
				Uint("user_id", claims.UserID).
				Str("role", claims.Role).
				Msg("Admin access denied")
			return nil, status.Errorf(grpccodes.PermissionDenied, "admin access required")
		}

		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}

// SpanAttributesInterceptor tags the server span with the resolved caller
func SpanAttributesInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	if claims, ok := ctx.Value(claimsKey{}).(*auth.Claims); ok {
		oteltrace.SpanFromContext(ctx).SetAttributes(
			attribute.Int64("dispensary.clinic_id", int64(claims.ClinicID)),
			attribute.Int64("enduser.id", int64(claims.UserID)),
			attribute.String("enduser.role", claims.Role),
		)
	}
	return handler(ctx, req)
}

func actorFrom(ctx context.Context) domain.Actor {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	if !ok {
		return domain.Actor{}
	}
	return domain.Actor{UserID: claims.UserID, ClinicID: claims.ClinicID}
}
