// Package grpcserver exposes the authcore.v1.Auth gRPC API handlers.
package grpcserver

import (
	"context"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/metrics"
	"github.com/and161185/authcore/internal/model"
	authv1 "github.com/and161185/authcore/internal/rpc/authv1"
	"github.com/and161185/authcore/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	authv1.UnimplementedAuthServer
	auth    service.AuthService
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New constructs a gRPC server with injected services. m may be nil.
func New(auth service.AuthService, m *metrics.Metrics) *Server {
	return &Server{auth: auth, metrics: m, log: zap.NewNop()}
}

// Options configures the grpc.Server built by NewGRPC.
type Options struct {
	Log      *zap.Logger
	Verifier IdentityVerifier
	Metrics  *metrics.Metrics
	Creds    credentials.TransportCredentials // nil serves plaintext
}

// NewGRPC builds a grpc.Server with the Auth and health services registered.
func NewGRPC(srv *Server, o Options) (*grpc.Server, *health.Server) {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	srv.log = o.Log
	chain := []grpc.UnaryServerInterceptor{RecoverUnary(o.Log), LoggingUnary(o.Log)}
	if o.Metrics != nil {
		chain = append(chain, MetricsUnary(o.Metrics))
	}
	chain = append(chain, AuthUnary(o.Verifier, ProtectedMethods()))

	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(chain...)}
	if o.Creds != nil {
		opts = append(opts, grpc.Creds(o.Creds))
	}
	gs := grpc.NewServer(opts...)
	authv1.RegisterAuthServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(authv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}

// ProtectedMethods lists the full method names that require a bearer token.
func ProtectedMethods() map[string]bool {
	return map[string]bool{
		authv1.FullMethod(authv1.MethodWhoami):       true,
		authv1.FullMethod(authv1.MethodListSessions): true,
	}
}

// toStatus maps a service error to a gRPC status. Unclassified errors hide their text.
func toStatus(err error) error {
	var code codes.Code
	switch errs.Kind(err) {
	case errs.ErrInvalidInput:
		code = codes.InvalidArgument
	case errs.ErrUnauthorized:
		code = codes.Unauthenticated
	case errs.ErrNotFound:
		code = codes.NotFound
	case errs.ErrAlreadyExists, errs.ErrVersionConflict:
		code = codes.AlreadyExists
	default:
		code = codes.Internal
	}
	return status.Error(code, errs.Message(err))
}

// fail converts err to a status, logging the cause of anything that becomes Internal.
func (s *Server) fail(op string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.log.Error("grpc handler", zap.String("op", op), zap.Error(err))
	}
	return st
}

func (s *Server) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.AuthOp(op, err)
	}
}

func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func clientMeta(ctx context.Context) model.ClientMeta {
	m := model.ClientMeta{IP: remoteIP(ctx)}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		m.UserAgent = strings.Join(md.Get("user-agent"), " ")
	}
	return m
}

func toTokens(t model.Tokens) *authv1.TokensResponse {
	return &authv1.TokensResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.RegisterResponse, error) {
	err := s.auth.Register(ctx, req.Email, req.Password)
	s.observe("register", err)
	if err != nil {
		return nil, s.fail("register", err)
	}
	return &authv1.RegisterResponse{Msg: service.MsgRegistered}, nil
}

// Login authenticates a user and opens a session.
func (s *Server) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.TokensResponse, error) {
	tok, err := s.auth.Login(ctx, req.Email, req.Password, clientMeta(ctx))
	s.observe("login", err)
	if err != nil {
		return nil, s.fail("login", err)
	}
	return toTokens(tok), nil
}

// Refresh rotates the presented refresh token.
func (s *Server) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.TokensResponse, error) {
	tok, err := s.auth.Refresh(ctx, req.RefreshToken, clientMeta(ctx))
	s.observe("refresh", err)
	if err != nil {
		return nil, s.fail("refresh", err)
	}
	return toTokens(tok), nil
}

// Logout ends the session the refresh token belongs to.
func (s *Server) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	err := s.auth.Logout(ctx, req.RefreshToken)
	s.observe("logout", err)
	if err != nil {
		return nil, s.fail("logout", err)
	}
	return &authv1.LogoutResponse{Msg: service.MsgLoggedOut}, nil
}

// Whoami returns the identity resolved by the auth interceptor.
func (s *Server) Whoami(ctx context.Context, _ *authv1.WhoamiRequest) (*authv1.WhoamiResponse, error) {
	id, ok := IdentityFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return &authv1.WhoamiResponse{UserID: id.UserID.String(), Email: id.Email}, nil
}

// ListSessions returns the caller's live sessions, newest first.
func (s *Server) ListSessions(ctx context.Context, _ *authv1.ListSessionsRequest) (*authv1.ListSessionsResponse, error) {
	id, ok := IdentityFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	infos, err := s.auth.ListSessions(ctx, id.UserID)
	if err != nil {
		return nil, s.fail("list_sessions", err)
	}
	out := &authv1.ListSessionsResponse{Sessions: make([]authv1.Session, 0, len(infos))}
	for _, si := range infos {
		out.Sessions = append(out.Sessions, authv1.Session(si))
	}
	return out, nil
}
