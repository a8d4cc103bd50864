package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/loanoffer/internal/app"
	"github.com/okian/loanoffer/internal/config"
	"github.com/okian/loanoffer/internal/domain/types"
	"github.com/okian/loanoffer/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func startService(ctx context.Context, t *testing.T) (*app.Service, *config.Config) {
	t.Helper()
	cfg, err := config.Load(ctx)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	svc := app.New(app.WithConfig(cfg), app.WithLogger(logger.Discard()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc, cfg
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given HTTP settings", t, func() {
		cfg := config.New(context.Background()).HTTP
		cfg.Addr = ":18080"

		convey.Convey("When building the server", func() {
			srv := newHTTPServer(cfg, http.NewServeMux())

			convey.Convey("Then the timeouts are carried over", func() {
				convey.So(srv.Addr, convey.ShouldEqual, ":18080")
				convey.So(srv.ReadTimeout, convey.ShouldEqual, cfg.ReadTimeout)
				convey.So(srv.WriteTimeout, convey.ShouldEqual, cfg.WriteTimeout)
				convey.So(srv.IdleTimeout, convey.ShouldEqual, cfg.IdleTimeout)
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the system metrics are refreshed", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the service metrics updater runs on an unstarted service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			svc := app.New(app.WithLogger(logger.Discard()))

			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application", t, func() {
		setEnv(t, map[string]string{
			"LOANOFFER_HTTP__ADDR":              ":0",
			"LOANOFFER_PERSISTENCE__WORKERS":    "2",
			"LOANOFFER_PERSISTENCE__QUEUE_SIZE": "100",
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc, cfg := startService(ctx, t)
		defer func() { _ = svc.Stop(context.Background()) }()

		convey.So(cfg.Persistence.Workers, convey.ShouldEqual, 2)

		ts := httptest.NewServer(newHandler(ctx, svc))
		defer ts.Close()

		convey.Convey("When offers are requested for a seeded applicant", func() {
			body := `{"applicant_id":"app-standard","requested_amount":300000,"preferred_tenure_months":24,"purpose":"home","source":"web"}`
			resp, err := http.Post(ts.URL+"/v1/offers", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			var out types.OfferResponse
			convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)

			convey.Convey("Then ranked offers come back and can be fetched again", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(out.RequestID, convey.ShouldNotBeEmpty)
				convey.So(out.Offers, convey.ShouldNotBeEmpty)
				convey.So(out.Offers[0].Rank, convey.ShouldEqual, 1)

				got, err := http.Get(ts.URL + "/v1/offers/" + out.RequestID)
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = got.Body.Close() }()
				convey.So(got.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the docs and health routes are hit", func() {
			for _, path := range []string{"/healthz", "/stats", "/metrics", "/api-docs", "/openapi.yaml"} {
				resp, err := http.Get(ts.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the listen address is blanked out", func() {
			setEnv(t, map[string]string{"LOANOFFER_HTTP__ADDR": ""})
			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a postgres store is selected without a DSN", func() {
			setEnv(t, map[string]string{
				"LOANOFFER_HTTP__ADDR":         ":9080",
				"LOANOFFER_PERSISTENCE__STORE": "postgres",
			})

			convey.Convey("Then configuration loading should fail", func() {
				_, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres.dsn")
			})
		})
	})
}
