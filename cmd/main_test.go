package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/quickshop/internal/config"
	"github.com/okian/quickshop/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the full route table", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, cfg, svc)
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the UI, docs and API are all routed", func() {
			root := get("/")
			convey.So(root.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(root.Body.String(), convey.ShouldContainSubstring, "QuickShop")

			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/sample.csv").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then every response carries a request id", func() {
			convey.So(get("/healthz").Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("When creating a session through the handler", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", http.NoBody))

			convey.Convey("Then it is created", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
				convey.So(w.Header().Get("Location"), convey.ShouldStartWith, "/sessions/")
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a free local address", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		addr := ln.Addr().String()
		convey.So(ln.Close(), convey.ShouldBeNil)

		cfg := config.New()
		cfg.Addr = addr

		convey.Convey("When running until the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Get()) }()

			var resp *http.Response
			for i := 0; i < 50; i++ {
				resp, err = http.Get("http://" + addr + "/healthz")
				if err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			cancel()

			convey.Convey("Then the server answered and shut down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				_ = resp.Body.Close()

				select {
				case runErr := <-done:
					convey.So(runErr, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})
	})
}

func TestRunFailsOnBadSample(t *testing.T) {
	convey.Convey("Given a sample path with the wrong columns", t, func() {
		f, err := os.CreateTemp(t.TempDir(), "sample-*.csv")
		convey.So(err, convey.ShouldBeNil)
		_, _ = f.WriteString("a,b\n1,2\n")
		_ = f.Close()

		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.SamplePath = f.Name()

		convey.Convey("Then run returns the load error", func() {
			err := run(context.Background(), cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(strings.ToLower(err.Error()), convey.ShouldContainSubstring, "missing required column")
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the ticker loop stops with its context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, time.Millisecond)
				close(done)
			}()
			time.Sleep(5 * time.Millisecond)
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
