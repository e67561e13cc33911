package api

import (
	"context"
	"fmt"

	"github.com/hazyhaar/causa-registry/pkg/kit"
	"github.com/hazyhaar/causa-registry/pkg/lookup"
)

// Shared request/response types used by both HTTP and MCP transports.

type resolveReq struct {
	Label string
}

type batchReq struct {
	Labels []string
}

type batchResponse struct {
	Results []lookup.Result `json:"results"`
}

type statsResponse struct {
	lookup.Stats
	Status string `json:"status"`
}

// Endpoint names, also used as metric and log labels.
const (
	epResolve = "resolve"
	epBatch   = "resolve_batch"
	epStats   = "mapping_stats"
)

type endpoints struct {
	resolve kit.Endpoint
	batch   kit.Endpoint
	stats   kit.Endpoint
}

// newEndpoints builds the three endpoints over svc, each wrapped by
// mw(name).
func newEndpoints(svc *lookup.Service, mw func(name string) kit.Middleware) endpoints {
	return endpoints{
		resolve: mw(epResolve)(resolveEndpoint(svc)),
		batch:   mw(epBatch)(batchEndpoint(svc)),
		stats:   mw(epStats)(statsEndpoint(svc)),
	}
}

func resolveEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		return svc.Resolve(req.Label)
	}
}

func batchEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*batchReq)
		if len(req.Labels) == 0 {
			return nil, fmt.Errorf("labels array is empty")
		}
		if len(req.Labels) > lookup.MaxBatch {
			return nil, fmt.Errorf("%w (max %d, got %d)", lookup.ErrBatchTooLarge, lookup.MaxBatch, len(req.Labels))
		}
		results, err := svc.ResolveBatch(req.Labels)
		if err != nil {
			return nil, err
		}
		return batchResponse{Results: results}, nil
	}
}

func statsEndpoint(svc *lookup.Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return statsResponse{Stats: svc.Stats(), Status: "ok"}, nil
	}
}
