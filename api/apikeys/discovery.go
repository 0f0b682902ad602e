package apikeys

import (
	"context"

	"github.com/fulldump/pivotdb/discovery"
	"github.com/fulldump/pivotdb/service"
)

type prefixesRequest struct {
	Depth int `json:"depth"`
	Max   int `json:"max"`
}

func prefixes(s service.Servicer) func(ctx context.Context, input *prefixesRequest) ([]string, error) {
	return func(ctx context.Context, input *prefixesRequest) ([]string, error) {
		return s.ListPrefixes(input.Depth, input.Max)
	}
}

type inferRequest struct {
	Samples int `json:"samples"`
}

type inferResponse struct {
	Pattern string `json:"pattern"`
}

func infer(s service.Servicer) func(ctx context.Context, input *inferRequest) (*inferResponse, error) {
	return func(ctx context.Context, input *inferRequest) (*inferResponse, error) {
		p, err := s.InferPattern(input.Samples)
		if err != nil {
			return nil, err
		}
		return &inferResponse{Pattern: p}, nil
	}
}

type discoverRequest struct {
	Pattern string `json:"pattern"`
	discovery.Options
}

func discover(s service.Servicer) func(ctx context.Context, input *discoverRequest) (*service.Discovery, error) {
	return func(ctx context.Context, input *discoverRequest) (*service.Discovery, error) {
		return s.Discover(input.Pattern, input.Options)
	}
}
