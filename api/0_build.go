package api

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
	"github.com/fulldump/box/boxopenapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fulldump/pivotdb/api/apikeys"
	"github.com/fulldump/pivotdb/api/apitables"
	"github.com/fulldump/pivotdb/service"
)

func Build(s service.Servicer, version string, apiKey, apiSecret string) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		box.SetResponseHeader("Content-Type", "application/json"),
		Authenticate(apiKey, apiSecret),
	)

	apitables.BuildTables(v1, s).
		WithInterceptors(
			injectServicer(s),
		)

	apikeys.BuildKeys(v1, s)

	b.Resource("/v1/*").
		WithActions(box.AnyMethod(func(w http.ResponseWriter) interface{} {
			w.WriteHeader(http.StatusNotImplemented)
			return PrettyError{
				Message:     "not implemented",
				Description: "this endpoint does not exist, please check the documentation",
			}
		}))

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}))

	metrics := promhttp.Handler()
	b.Resource("/metrics").
		WithActions(box.Get(func(w http.ResponseWriter, r *http.Request) {
			metrics.ServeHTTP(w, r)
		}).WithName("metrics"))

	spec := boxopenapi.Spec(b)
	spec.Info.Title = "PivotDB"
	spec.Info.Description = "Relational tables over an ordered key-value store, mapped by key patterns."
	spec.Info.Contact = &boxopenapi.Contact{
		Url: "https://github.com/fulldump/pivotdb/issues/new",
	}
	b.Handle("GET", "/openapi.json", func(r *http.Request) any {

		spec.Servers = []boxopenapi.Server{
			{
				Url: "https://" + r.Host,
			},
			{
				Url: "http://" + r.Host,
			},
		}

		return spec
	})

	return b
}

func injectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(apitables.SetServicer(ctx, s))
		}
	}
}
