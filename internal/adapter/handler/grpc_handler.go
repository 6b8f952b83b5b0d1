package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/catrink/internal/auth"
	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/repository"
	"github.com/rl1809/catrink/internal/core/service"
)

const TrackOrderMethod = "/catrink.tracking.v1.TrackingService/TrackOrder"

type TrackOrderRequest struct {
	TrackingID string `json:"trackingId"`
}

type TrackOrderResponse struct {
	Success  bool                  `json:"success"`
	Message  string                `json:"message"`
	Tracking *service.TrackingView `json:"tracking,omitempty"`
}

type TrackingServer interface {
	TrackOrder(ctx context.Context, req *TrackOrderRequest) (*TrackOrderResponse, error)
}

var trackingServiceDesc = grpc.ServiceDesc{
	ServiceName: "catrink.tracking.v1.TrackingService",
	HandlerType: (*TrackingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TrackOrder", Handler: trackOrderHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterTrackingServer(s grpc.ServiceRegistrar, srv TrackingServer) {
	s.RegisterService(&trackingServiceDesc, srv)
}

func trackOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TrackOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrackingServer).TrackOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TrackOrderMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TrackingServer).TrackOrder(ctx, req.(*TrackOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TrackingClient calls TrackOrder over a connection using the JSON codec.
type TrackingClient struct {
	cc grpc.ClientConnInterface
}

func NewTrackingClient(cc grpc.ClientConnInterface) *TrackingClient {
	return &TrackingClient{cc: cc}
}

func (c *TrackingClient) TrackOrder(ctx context.Context, req *TrackOrderRequest, opts ...grpc.CallOption) (*TrackOrderResponse, error) {
	out := new(TrackOrderResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, TrackOrderMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type GRPCHandler struct {
	auth     *service.AuthService
	tokens   *auth.TokenIssuer
	tracking *service.TrackingService
	log      logrus.FieldLogger
}

func NewGRPCHandler(s Services, log logrus.FieldLogger) *GRPCHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GRPCHandler{auth: s.Auth, tokens: s.Tokens, tracking: s.Tracking, log: log}
}

// TrackOrder looks the tracking id up in the caller's own ledger. The caller
// is identified by the bearer token in the "authorization" metadata.
func (h *GRPCHandler) TrackOrder(ctx context.Context, req *TrackOrderRequest) (*TrackOrderResponse, error) {
	p, err := h.principal(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.TrackingID) == "" {
		return nil, status.Error(codes.InvalidArgument, "tracking id is required")
	}

	view, err := h.tracking.Track(ctx, p.Email, req.TrackingID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return &TrackOrderResponse{
				Success: false,
				Message: "order not found",
			}, nil
		}
		if errors.Is(err, repository.ErrInvalidScope) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		h.log.WithError(err).Error("track order failed")
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &TrackOrderResponse{
		Success:  true,
		Message:  view.Stage.Label(),
		Tracking: &view,
	}, nil
}

func (h *GRPCHandler) principal(ctx context.Context) (domain.Principal, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "authorization metadata required")
	}

	token := strings.TrimPrefix(values[0], "Bearer ")
	claimed, err := h.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "invalid or expired token")
	}
	p, err := h.auth.Resolve(ctx, claimed)
	if err != nil {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "session expired")
	}
	return p, nil
}
