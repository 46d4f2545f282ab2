package v1

import (
	context "context"

	http "github.com/go-kratos/kratos/v2/transport/http"
)

const OperationStatusServiceGetStatus = "/api.v1.StatusService/GetStatus"
const OperationStatusServiceGetDetailedHealth = "/api.v1.StatusService/GetDetailedHealth"

type StatusServiceHTTPServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*StatusReply, error)
	GetDetailedHealth(context.Context, *GetDetailedHealthRequest) (*DetailedHealthReply, error)
}

func RegisterStatusServiceHTTPServer(s *http.Server, srv StatusServiceHTTPServer) {
	r := s.Route("/")
	r.GET("/status", _StatusService_GetStatus0_HTTP_Handler(srv))
	r.GET("/health/detailed", _StatusService_GetDetailedHealth0_HTTP_Handler(srv))
}

func _StatusService_GetStatus0_HTTP_Handler(srv StatusServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetStatusRequest
		http.SetOperation(ctx, OperationStatusServiceGetStatus)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetStatus(ctx, req.(*GetStatusRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*StatusReply)
		return ctx.Result(reply.HTTPCode(), reply)
	}
}

func _StatusService_GetDetailedHealth0_HTTP_Handler(srv StatusServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetDetailedHealthRequest
		http.SetOperation(ctx, OperationStatusServiceGetDetailedHealth)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetDetailedHealth(ctx, req.(*GetDetailedHealthRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*DetailedHealthReply)
		return ctx.Result(reply.HTTPCode(), reply)
	}
}
