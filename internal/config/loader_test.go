package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/ktc/internal/config"
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
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.Rating.BaseRating, convey.ShouldEqual, 50.0)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KTC_ADDR", ":8080")
			_ = os.Setenv("KTC_QUEUE_SIZE", "2000")
			_ = os.Setenv("KTC_WORKER_COUNT", "16")
			_ = os.Setenv("KTC_STORE", "SQLite")
			_ = os.Setenv("KTC_LOG_FORMAT", "JSON")
			_ = os.Setenv("KTC_RATING__K_FACTOR", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 2000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.LogFormat, convey.ShouldEqual, config.LogFormatJSON)
				convey.So(cfg.Rating.KFactor, convey.ShouldEqual, 3.0)
				convey.So(cfg.Rating.KeepImpact, convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(t, `
# comments are fine
addr: ":9090"
queue_size: 3000
history_size: 5
rating:
  base_rating: 60
  full_confidence_votes: 10
seed_items:
  - name: Azure
    color: "#0066CC"
  - name: Coral
    color: "#FF7F50"
`)
			_ = os.Setenv("KTC_CONFIG", tmpFile)
			_ = os.Setenv("KTC_ADDR", ":8081")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file is layered under the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 3000)
				convey.So(cfg.HistorySize, convey.ShouldEqual, 5)
				convey.So(cfg.Rating.BaseRating, convey.ShouldEqual, 60.0)
				convey.So(cfg.Rating.FullConfidenceVotes, convey.ShouldEqual, 10)
				convey.So(cfg.Rating.CutImpact, convey.ShouldEqual, -1.0)
				convey.So(cfg.SeedItems, convey.ShouldHaveLength, 2)
				convey.So(cfg.SeedItems[1].Name, convey.ShouldEqual, "Coral")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("KTC_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("KTC_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("KTC_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("KTC_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with zero workers", func() {
			_ = os.Setenv("KTC_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a dotenv file is present", func() {
			dir := t.TempDir()
			envFile := filepath.Join(dir, ".env")
			convey.So(os.WriteFile(envFile, []byte("KTC_HISTORY_SIZE=7\nKTC_MAX_RANKINGS_LIMIT=25\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("KTC_MAX_RANKINGS_LIMIT", "40")

			saved := config.DotEnvFiles
			config.DotEnvFiles = []string{filepath.Join(dir, ".env.local"), envFile}
			defer func() {
				config.DotEnvFiles = saved
				clearConfigEnvVars()
			}()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills unset variables only", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HistorySize, convey.ShouldEqual, 7)
				convey.So(cfg.MaxRankingsLimit, convey.ShouldEqual, 40)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"KTC_CONFIG",
		"KTC_ADDR",
		"KTC_QUEUE_SIZE",
		"KTC_WORKER_COUNT",
		"KTC_STORE",
		"KTC_LOG_FORMAT",
		"KTC_RATING__K_FACTOR",
		"KTC_HISTORY_SIZE",
		"KTC_MAX_RANKINGS_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ktc-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
