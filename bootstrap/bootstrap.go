package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fulldump/box"
	"github.com/hashicorp/go-multierror"

	"github.com/fulldump/pivotdb/api"
	"github.com/fulldump/pivotdb/configuration"
	"github.com/fulldump/pivotdb/database"
	"github.com/fulldump/pivotdb/service"
	"github.com/fulldump/pivotdb/store"
)

var VERSION = "dev"

func databaseConfig(c *configuration.Configuration) *database.Config {
	options := store.DefaultOptions()
	options.ReadOnly = c.ReadOnly
	options.CreateIfMissing = c.CreateIfMissing
	options.CacheSize = c.CacheSize
	options.WriteBufferSize = c.WriteBufferSize
	options.SyncInterval = time.Duration(c.SyncIntervalMs) * time.Millisecond

	return &database.Config{
		Dir:        c.Dir,
		Namespace:  c.Namespace,
		TablesFile: c.Tables,
		Store:      options,
	}
}

func Bootstrap(c *configuration.Configuration) (start, stop func(), err error) {

	db := database.NewDatabase(databaseConfig(c))

	b := api.Build(service.NewService(db), VERSION, c.ApiKey, c.ApiSecret)
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(slog.Default().With("log", "access")),
		api.InterceptorUnavailable(db),
		api.RecoverFromPanic,
		api.PrettyErrorInterceptor,
	)

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(b),
	}

	if c.HttpsSelfsigned {
		slog.Info("HTTPS Selfsigned")
		cert, err := selfSignedCertificate()
		if err != nil {
			return nil, nil, fmt.Errorf("self-signed certificate: %w", err)
		}
		s.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("listening", "addr", c.HttpAddr, "version", VERSION)

	stopOnce := sync.Once{}
	stop = func() {
		stopOnce.Do(func() {
			var result error
			if err := s.Shutdown(context.Background()); err != nil {
				result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
			}
			if err := db.Stop(); err != nil {
				result = multierror.Append(result, err)
			}
			if result != nil {
				slog.Error("stop", "error", result)
			}
		})
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-signalChan
		slog.Info("signal received", "signal", sig.String())
		stop()
	}()

	start = func() {

		wg := &sync.WaitGroup{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := db.Start(); err != nil {
				slog.Error("database", "error", err)
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if c.HttpsEnabled || c.HttpsSelfsigned {
				err = s.ServeTLS(ln, "", "")
			} else {
				err = s.Serve(ln)
			}
			if err != nil && err != http.ErrServerClosed {
				slog.Error("http server", "error", err)
			}
		}()

		wg.Wait()
	}

	return
}
