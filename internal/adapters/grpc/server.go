package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/closedesk/transaction-service/internal/application"
	"github.com/closedesk/transaction-service/internal/domain"
)

// TransactionInternalService is the peer-facing read API. Requests and
// replies travel as structpb payloads so no generated contract package
// is needed on either side.
type TransactionInternalService interface {
	CheckAccess(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserIdentity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransactionState(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type TransactionInternalServer struct {
	service *application.Service
}

func NewTransactionInternalServer(service *application.Service) *TransactionInternalServer {
	return &TransactionInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc TransactionInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "closedesk.transaction.v1.TransactionInternalService",
		HandlerType: (*TransactionInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "CheckAccess",
				Handler:    structHandler("CheckAccess", svc, TransactionInternalService.CheckAccess),
			},
			{
				MethodName: "GetUserIdentity",
				Handler:    structHandler("GetUserIdentity", svc, TransactionInternalService.GetUserIdentity),
			},
			{
				MethodName: "GetTransactionState",
				Handler:    structHandler("GetTransactionState", svc, TransactionInternalService.GetTransactionState),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "closedesk/transaction/v1/transaction_internal.proto",
	}, svc)
}

func (s *TransactionInternalServer) CheckAccess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	externalID := req.GetFields()["external_id"].GetStringValue()
	rawAction := req.GetFields()["action"].GetStringValue()
	if externalID == "" || rawAction == "" {
		return nil, status.Error(codes.InvalidArgument, "external_id and action are required")
	}

	var transactionID *uuid.UUID
	if raw := req.GetFields()["transaction_id"].GetStringValue(); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "malformed transaction_id")
		}
		transactionID = &parsed
	}

	decision, err := s.service.CheckAccess(ctx, externalID, application.Action(rawAction), transactionID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "check access: %v", err)
	}

	reason := ""
	if decision.Reason != nil {
		reason = denialCode(decision.Reason)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"allowed": decision.Allowed,
		"reason":  reason,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *TransactionInternalServer) GetUserIdentity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	externalID := req.GetFields()["external_id"].GetStringValue()
	if externalID == "" {
		return nil, status.Error(codes.InvalidArgument, "external_id is required")
	}

	user, err := s.service.Resolve(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "unknown principal")
		}
		return nil, status.Errorf(codes.Internal, "resolve user: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"user_id": user.UserID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"linked":  user.HasExternalID(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *TransactionInternalServer) GetTransactionState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := req.GetFields()["transaction_id"].GetStringValue()
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "transaction_id is required")
	}
	transactionID, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed transaction_id")
	}

	state, err := s.service.TransactionState(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "unknown transaction")
		}
		return nil, status.Errorf(codes.Internal, "transaction state: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"status":  string(state),
		"is_open": state.IsOpen(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func denialCode(reason error) string {
	switch {
	case errors.Is(reason, domain.ErrNotFound):
		return "not_found"
	case errors.Is(reason, domain.ErrRoleRequired):
		return "role_required"
	default:
		return "unauthorized"
	}
}

func structHandler(method string, svc TransactionInternalService, call func(TransactionInternalService, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/closedesk.transaction.v1.TransactionInternalService/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(svc, ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(svc, ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
