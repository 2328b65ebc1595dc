package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/quickshop/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 1_000)
				convey.So(cfg.MaxReportedErrors, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("QUICKSHOP_ADDR", ":8080")
			_ = os.Setenv("QUICKSHOP_MAX_UPLOAD_BYTES", "2048")
			_ = os.Setenv("QUICKSHOP_MAX_SESSIONS", "16")
			_ = os.Setenv("QUICKSHOP_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(2048))
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 16)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
max_sessions: 50
session_idle_ttl_seconds: 120
sample_path: /tmp/quickshop-sample.csv
watch_sample: true
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("QUICKSHOP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 50)
				convey.So(cfg.SessionIdleTTLSeconds, convey.ShouldEqual, 120)
				convey.So(cfg.SamplePath, convey.ShouldEqual, "/tmp/quickshop-sample.csv")
				convey.So(cfg.WatchSample, convey.ShouldBeTrue)
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(10<<20))
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
max_sessions: 50
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("QUICKSHOP_CONFIG", tmpFile)
			_ = os.Setenv("QUICKSHOP_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("QUICKSHOP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("QUICKSHOP_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When addr is empty", func() {
			_ = os.Setenv("QUICKSHOP_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When the upload limit is not positive", func() {
			_ = os.Setenv("QUICKSHOP_MAX_UPLOAD_BYTES", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the upload rate is negative", func() {
			_ = os.Setenv("QUICKSHOP_UPLOAD_RATE_PER_SECOND", "-1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the upload rate is set from the environment", func() {
			_ = os.Setenv("QUICKSHOP_UPLOAD_RATE_PER_SECOND", "0.5")
			_ = os.Setenv("QUICKSHOP_UPLOAD_BURST", "2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then both values are parsed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.UploadRatePerSecond, convey.ShouldEqual, 0.5)
				convey.So(cfg.UploadBurst, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When watching is enabled without a sample path", func() {
			_ = os.Setenv("QUICKSHOP_WATCH_SAMPLE", "true")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "watch_sample requires sample_path")
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("QUICKSHOP_MAX_SESSIONS", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"QUICKSHOP_CONFIG",
		"QUICKSHOP_ADDR",
		"QUICKSHOP_LOG_FORMAT",
		"QUICKSHOP_MAX_UPLOAD_BYTES",
		"QUICKSHOP_MAX_SESSIONS",
		"QUICKSHOP_WATCH_SAMPLE",
		"QUICKSHOP_UPLOAD_RATE_PER_SECOND",
		"QUICKSHOP_UPLOAD_BURST",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "quickshop-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
