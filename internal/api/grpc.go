package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/services"
	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

// FeedbackServiceName is the fully qualified gRPC service name.
const FeedbackServiceName = "feedback.v1.FeedbackService"

// FeedbackServer is the gRPC surface of the feedback engine. Payloads are
// google.protobuf.Struct documents shaped like the JSON API.
type FeedbackServer interface {
	SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOverallMetrics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLanguageBreakdown(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetInteractionTypeBreakdown(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetImprovementAreas(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCommonIssues(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateReport(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FeedbackServiceDesc describes FeedbackServer for grpc.Server registration.
var FeedbackServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedbackServiceName,
	HandlerType: (*FeedbackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitFeedback", Handler: structHandler("SubmitFeedback", FeedbackServer.SubmitFeedback)},
		{MethodName: "GetOverallMetrics", Handler: emptyHandler("GetOverallMetrics", FeedbackServer.GetOverallMetrics)},
		{MethodName: "GetLanguageBreakdown", Handler: emptyHandler("GetLanguageBreakdown", FeedbackServer.GetLanguageBreakdown)},
		{MethodName: "GetInteractionTypeBreakdown", Handler: emptyHandler("GetInteractionTypeBreakdown", FeedbackServer.GetInteractionTypeBreakdown)},
		{MethodName: "GetImprovementAreas", Handler: structHandler("GetImprovementAreas", FeedbackServer.GetImprovementAreas)},
		{MethodName: "GetCommonIssues", Handler: structHandler("GetCommonIssues", FeedbackServer.GetCommonIssues)},
		{MethodName: "GenerateReport", Handler: emptyHandler("GenerateReport", FeedbackServer.GenerateReport)},
		{MethodName: "ListFeedback", Handler: structHandler("ListFeedback", FeedbackServer.ListFeedback)},
	},
	Metadata: "feedback/v1/feedback.proto",
}

// RegisterFeedbackServer attaches srv to s.
func RegisterFeedbackServer(s grpc.ServiceRegistrar, srv FeedbackServer) {
	s.RegisterService(&FeedbackServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + FeedbackServiceName + "/" + method
}

func structHandler(method string, call func(FeedbackServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FeedbackServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FeedbackServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func emptyHandler(method string, call func(FeedbackServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FeedbackServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FeedbackServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert payload: %w", err)
	}
	return out, nil
}

// fromStruct decodes s into out through its JSON form. A nil Struct leaves
// out untouched.
func fromStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// SubmitResult is the outcome of a feedback submission. Warning is set when
// the record was accepted but could not be persisted.
type SubmitResult struct {
	Feedback models.Record `json:"feedback"`
	Warning  string        `json:"warning,omitempty"`
}

// ListRequest narrows a feedback listing. SinceDays of zero disables the
// recency window.
type ListRequest struct {
	UserID          string                 `json:"user_id,omitempty"`
	Language        models.Language        `json:"language,omitempty"`
	InteractionType models.InteractionType `json:"interaction_type,omitempty"`
	SinceDays       int                    `json:"since_days,omitempty"`
}

// Filter converts the request into a store filter.
func (r ListRequest) Filter() models.Filter {
	return models.Filter{
		UserID:          r.UserID,
		Language:        r.Language,
		InteractionType: r.InteractionType,
		Window:          utils.Days(r.SinceDays),
	}
}

type improvementAreasRequest struct {
	Threshold float64 `json:"threshold,omitempty"`
	TopN      int     `json:"top_n,omitempty"`
}

type improvementAreasResponse struct {
	ImprovementAreas []models.Dimension `json:"improvement_areas"`
}

type commonIssuesRequest struct {
	TopN int `json:"top_n,omitempty"`
}

type commonIssuesResponse struct {
	CommonIssues []string `json:"common_issues"`
}

type listResponse struct {
	Feedback []models.Record `json:"feedback"`
}

// GRPCHandler implements FeedbackServer on top of the feedback service.
type GRPCHandler struct {
	svc    *services.FeedbackService
	logger *slog.Logger
}

// NewGRPCHandler constructs the gRPC handler.
func NewGRPCHandler(svc *services.FeedbackService, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{svc: svc, logger: logger}
}

// SubmitFeedback overlays the request on the default input and stores it.
func (h *GRPCHandler) SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := models.DefaultInput()
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := h.svc.CreateFeedback(ctx, in)
	result := SubmitResult{Feedback: rec}
	if err != nil {
		var (
			validationErr *models.ValidationError
			storageErr    *models.StorageError
		)
		switch {
		case errors.As(err, &validationErr):
			return nil, status.Error(codes.InvalidArgument, validationErr.Error())
		case errors.As(err, &storageErr):
			result.Warning = storageErr.Error()
		default:
			return nil, status.Error(codes.Internal, err.Error())
		}
	}
	return h.respond(result)
}

// GetOverallMetrics aggregates every record.
func (h *GRPCHandler) GetOverallMetrics(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(h.svc.OverallMetrics())
}

// GetLanguageBreakdown returns metrics keyed by language.
func (h *GRPCHandler) GetLanguageBreakdown(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(h.svc.LanguageBreakdown())
}

// GetInteractionTypeBreakdown returns metrics keyed by interaction type.
func (h *GRPCHandler) GetInteractionTypeBreakdown(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(h.svc.InteractionTypeBreakdown())
}

// GetImprovementAreas ranks the weakest dimensions.
func (h *GRPCHandler) GetImprovementAreas(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var params improvementAreasRequest
	if err := fromStruct(req, &params); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return h.respond(improvementAreasResponse{ImprovementAreas: h.svc.ImprovementAreas(params.Threshold, params.TopN)})
}

// GetCommonIssues returns the most frequent issue strings.
func (h *GRPCHandler) GetCommonIssues(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var params commonIssuesRequest
	if err := fromStruct(req, &params); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return h.respond(commonIssuesResponse{CommonIssues: h.svc.CommonIssues(params.TopN)})
}

// GenerateReport builds the full analytics report.
func (h *GRPCHandler) GenerateReport(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(h.svc.GenerateReport(ctx))
}

// ListFeedback returns the records matching the request filter.
func (h *GRPCHandler) ListFeedback(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var params ListRequest
	if err := fromStruct(req, &params); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if params.SinceDays < 0 {
		return nil, status.Error(codes.InvalidArgument, "since_days must not be negative")
	}
	return h.respond(listResponse{Feedback: h.svc.ListFeedback(params.Filter())})
}

func (h *GRPCHandler) respond(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		h.logger.Error("encode grpc response", slog.Any("error", err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// FeedbackClient is a typed client for FeedbackServer.
type FeedbackClient struct {
	cc grpc.ClientConnInterface
}

// NewFeedbackClient wraps a client connection.
func NewFeedbackClient(cc grpc.ClientConnInterface) *FeedbackClient {
	return &FeedbackClient{cc: cc}
}

func (c *FeedbackClient) invoke(ctx context.Context, method string, req any, out any, opts ...grpc.CallOption) error {
	var in any = &emptypb.Empty{}
	if req != nil {
		s, err := toStruct(req)
		if err != nil {
			return err
		}
		in = s
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, resp, opts...); err != nil {
		return err
	}
	return fromStruct(resp, out)
}

// SubmitFeedback sends in and returns the stored record.
func (c *FeedbackClient) SubmitFeedback(ctx context.Context, in models.Input, opts ...grpc.CallOption) (SubmitResult, error) {
	var out SubmitResult
	err := c.invoke(ctx, "SubmitFeedback", in, &out, opts...)
	return out, err
}

// OverallMetrics fetches the aggregate over every record.
func (c *FeedbackClient) OverallMetrics(ctx context.Context, opts ...grpc.CallOption) (models.Metrics, error) {
	var out models.Metrics
	err := c.invoke(ctx, "GetOverallMetrics", nil, &out, opts...)
	return out, err
}

// LanguageBreakdown fetches metrics keyed by language.
func (c *FeedbackClient) LanguageBreakdown(ctx context.Context, opts ...grpc.CallOption) (map[models.Language]models.Metrics, error) {
	var out map[models.Language]models.Metrics
	err := c.invoke(ctx, "GetLanguageBreakdown", nil, &out, opts...)
	return out, err
}

// InteractionTypeBreakdown fetches metrics keyed by interaction type.
func (c *FeedbackClient) InteractionTypeBreakdown(ctx context.Context, opts ...grpc.CallOption) (map[models.InteractionType]models.Metrics, error) {
	var out map[models.InteractionType]models.Metrics
	err := c.invoke(ctx, "GetInteractionTypeBreakdown", nil, &out, opts...)
	return out, err
}

// ImprovementAreas fetches the weakest dimensions. Zero values select the
// server defaults.
func (c *FeedbackClient) ImprovementAreas(ctx context.Context, threshold float64, topN int, opts ...grpc.CallOption) ([]models.Dimension, error) {
	var out improvementAreasResponse
	err := c.invoke(ctx, "GetImprovementAreas", improvementAreasRequest{Threshold: threshold, TopN: topN}, &out, opts...)
	return out.ImprovementAreas, err
}

// CommonIssues fetches the most frequent issue strings.
func (c *FeedbackClient) CommonIssues(ctx context.Context, topN int, opts ...grpc.CallOption) ([]string, error) {
	var out commonIssuesResponse
	err := c.invoke(ctx, "GetCommonIssues", commonIssuesRequest{TopN: topN}, &out, opts...)
	return out.CommonIssues, err
}

// GenerateReport fetches a full report.
func (c *FeedbackClient) GenerateReport(ctx context.Context, opts ...grpc.CallOption) (models.Report, error) {
	var out models.Report
	err := c.invoke(ctx, "GenerateReport", nil, &out, opts...)
	return out, err
}

// ListFeedback fetches the records matching req.
func (c *FeedbackClient) ListFeedback(ctx context.Context, req ListRequest, opts ...grpc.CallOption) ([]models.Record, error) {
	var out listResponse
	err := c.invoke(ctx, "ListFeedback", req, &out, opts...)
	return out.Feedback, err
}
