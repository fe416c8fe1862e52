package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/wordleboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.CommandMarker, convey.ShouldEqual, "!wordle")
			convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 1)
			convey.So(cfg.NotifyBurst, convey.ShouldEqual, 5)
			convey.So(cfg.Storage, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.RatingMu, convey.ShouldEqual, 25.0)
			convey.So(cfg.RatingSigma, convey.ShouldAlmostEqual, 25.0/3.0)
			convey.So(cfg.RatingExposureK, convey.ShouldEqual, 3.0)
			convey.So(cfg.NotifyTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When postgres is selected without a database url", func() {
			cfg.Storage = config.StoragePostgres
			err := cfg.Validate()

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "database_url")
			})
		})

		convey.Convey("When the storage backend is unknown", func() {
			cfg.Storage = "sqlite"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the command marker contains a space", func() {
			cfg.CommandMarker = "! wordle"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Mars/Olympus"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the notify burst is zero", func() {
			cfg.NotifyBurst = 0
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "notify_burst")
		})

		convey.Convey("When the rating sigma is zero", func() {
			cfg.RatingSigma = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestParseWeekday(t *testing.T) {
	convey.Convey("Given weekday names", t, func() {
		d, err := config.ParseWeekday("Monday")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d, convey.ShouldEqual, time.Monday)

		d, err = config.ParseWeekday(" sun ")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d, convey.ShouldEqual, time.Sunday)

		_, err = config.ParseWeekday("someday")
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
