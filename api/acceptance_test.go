package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"

	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/service"
	"github.com/fulldump/pivotdb/store"
)

func TestAcceptance(t *testing.T) {

	biff.Alternative("Setup", func(a *biff.A) {

		db := database.NewDatabase(&database.Config{
			Dir:   t.TempDir(),
			Store: store.DefaultOptions(),
		})

		biff.AssertNil(db.Load())
		biff.AssertEqual(db.GetStatus(), database.StatusOperating)
		defer db.Stop()

		s := service.NewService(db)

		b := Build(s, "test", "", "")
		b.WithInterceptors(
			InterceptorUnavailable(db),
			RecoverFromPanic,
			PrettyErrorInterceptor,
		)

		api := apitest.NewWithHandler(b)

		service.Acceptance(a, func(method, path string) *apitest.Request {
			return api.Request(method, "/v1"+path)
		})

	})
}

func TestServerEndpoints(t *testing.T) {

	db := database.NewDatabase(&database.Config{
		Dir:   t.TempDir(),
		Store: store.DefaultOptions(),
	})

	b := Build(service.NewService(db), "1.2.3", "", "")
	b.WithInterceptors(
		InterceptorUnavailable(db),
		PrettyErrorInterceptor,
	)
	api := apitest.NewWithHandler(b)

	resp := api.Request("GET", "/v1/tables").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusServiceUnavailable)

	biff.AssertNil(db.Load())
	defer db.Stop()

	resp = api.Request("GET", "/release").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusOK)
	biff.AssertEqual(resp.BodyJson(), "1.2.3")

	resp = api.Request("GET", "/v1/tables").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusOK)

	resp = api.Request("GET", "/metrics").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusOK)
	biff.AssertTrue(strings.Contains(resp.BodyString(), "go_goroutines"))

	resp = api.Request("GET", "/v1/nothing-here").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusNotImplemented)
}
