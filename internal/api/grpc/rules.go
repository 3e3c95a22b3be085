package grpc

import (
	context "context"
	"errors"

	interf "github.com/glkeru/loyalty/rules/internal/interfaces"
	models "github.com/glkeru/loyalty/rules/internal/models"
	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

const ServiceName = "rules.RuleEngine"

type RuleRequest struct {
	RuleID  string                   `json:"ruleId"`
	Context models.EvaluationContext `json:"context"`
}

type ClaimRequest struct {
	ChoiceID   string `json:"choiceId"`
	CustomerID string `json:"customerId"`
	GroupIndex int    `json:"groupIndex"`
}

type ProgressRequest struct {
	RulesetID  string `json:"rulesetId"`
	CustomerID string `json:"customerId"`
}

type SimulateRequest struct {
	RuleID     string `json:"ruleId"`
	CustomerID string `json:"customerId"`
}

type RulesServer interface {
	Evaluate(context.Context, *models.EvaluationContext) (*models.EvaluationResult, error)
	EvaluateRule(context.Context, *RuleRequest) (*models.RuleOutcome, error)
	ClaimAward(context.Context, *ClaimRequest) (*models.AwardOutcome, error)
	VoyageProgress(context.Context, *ProgressRequest) (*models.RulesetProgress, error)
	SimulateCustomer(context.Context, *SimulateRequest) (*models.CustomerSimulation, error)
}

type RulesService struct {
	engine interf.RuleEngine
	logger *zap.Logger
}

func NewRulesService(engine interf.RuleEngine, logger *zap.Logger) *RulesService {
	return &RulesService{engine, logger}
}

// ошибка движка -> gRPC статус
func (r *RulesService) toStatus(service string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, models.ErrInvalidRule), errors.Is(err, models.ErrInvalidChoice):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrChoiceResolved):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, models.ErrChoiceExpired):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	r.logger.Error("gRPC", zap.String("service", service), zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}

// Оценка всех правил бизнеса
func (r *RulesService) Evaluate(ctx context.Context, in *models.EvaluationContext) (*models.EvaluationResult, error) {
	if in.CustomerID == "" || in.BusinessID == "" {
		return nil, status.Error(codes.InvalidArgument, "customerId and businessId are required")
	}
	result, err := r.engine.Evaluate(ctx, *in)
	if err != nil {
		return nil, r.toStatus("Evaluate", err)
	}
	return &result, nil
}

func (r *RulesService) EvaluateRule(ctx context.Context, in *RuleRequest) (*models.RuleOutcome, error) {
	if in.Context.CustomerID == "" || in.Context.BusinessID == "" {
		return nil, status.Error(codes.InvalidArgument, "customerId and businessId are required")
	}
	outcome, err := r.engine.EvaluateRule(ctx, in.RuleID, in.Context)
	if err != nil {
		return nil, r.toStatus("EvaluateRule", err)
	}
	return &outcome, nil
}

func (r *RulesService) ClaimAward(ctx context.Context, in *ClaimRequest) (*models.AwardOutcome, error) {
	outcome, err := r.engine.ClaimAward(ctx, in.ChoiceID, in.CustomerID, in.GroupIndex)
	if err != nil {
		return nil, r.toStatus("ClaimAward", err)
	}
	return &outcome, nil
}

// Прогресс вояжа
func (r *RulesService) VoyageProgress(ctx context.Context, in *ProgressRequest) (*models.RulesetProgress, error) {
	progress, err := r.engine.VoyageProgress(ctx, in.RulesetID, in.CustomerID)
	if err != nil {
		return nil, r.toStatus("VoyageProgress", err)
	}
	return progress, nil
}

func (r *RulesService) SimulateCustomer(ctx context.Context, in *SimulateRequest) (*models.CustomerSimulation, error) {
	result, err := r.engine.SimulateCustomer(ctx, in.RuleID, in.CustomerID)
	if err != nil {
		return nil, r.toStatus("SimulateCustomer", err)
	}
	return &result, nil
}

func RegisterRulesServer(s grpc.ServiceRegistrar, srv RulesServer) {
	s.RegisterService(&Rules_ServiceDesc, srv)
}

// обработчик унарного метода
func unary[Req any, Resp any](method string, call func(RulesServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RulesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RulesServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var Rules_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RulesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Evaluate", RulesServer.Evaluate),
		unary("EvaluateRule", RulesServer.EvaluateRule),
		unary("ClaimAward", RulesServer.ClaimAward),
		unary("VoyageProgress", RulesServer.VoyageProgress),
		unary("SimulateCustomer", RulesServer.SimulateCustomer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rules",
}

// RulesClient - клиент сервиса для других сервисов лояльности
type RulesClient struct {
	cc grpc.ClientConnInterface
}

func NewRulesClient(cc grpc.ClientConnInterface) *RulesClient {
	return &RulesClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RulesClient) Evaluate(ctx context.Context, in *models.EvaluationContext, opts ...grpc.CallOption) (*models.EvaluationResult, error) {
	return invoke[models.EvaluationResult](ctx, c.cc, "Evaluate", in, opts...)
}

func (c *RulesClient) EvaluateRule(ctx context.Context, in *RuleRequest, opts ...grpc.CallOption) (*models.RuleOutcome, error) {
	return invoke[models.RuleOutcome](ctx, c.cc, "EvaluateRule", in, opts...)
}

func (c *RulesClient) ClaimAward(ctx context.Context, in *ClaimRequest, opts ...grpc.CallOption) (*models.AwardOutcome, error) {
	return invoke[models.AwardOutcome](ctx, c.cc, "ClaimAward", in, opts...)
}

func (c *RulesClient) VoyageProgress(ctx context.Context, in *ProgressRequest, opts ...grpc.CallOption) (*models.RulesetProgress, error) {
	return invoke[models.RulesetProgress](ctx, c.cc, "VoyageProgress", in, opts...)
}

func (c *RulesClient) SimulateCustomer(ctx context.Context, in *SimulateRequest, opts ...grpc.CallOption) (*models.CustomerSimulation, error) {
	return invoke[models.CustomerSimulation](ctx, c.cc, "SimulateCustomer", in, opts...)
}
