package config

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/platform/config"
)

// ServiceConfig holds all configuration for the routes service.
type ServiceConfig struct {
	Port             string
	AppEnv           string
	DBConfig         config.DatabaseConfig
	KafkaConfig      config.KafkaConfig
	DirectionsConfig config.DirectionsConfig
	Builder          application.BuilderOptions
	TrackDebounce    time.Duration
	InstanceID       string
}

// Load reads configuration from ROUTES_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("ROUTES")
	if err != nil {
		return nil, err
	}

	defaults := application.DefaultBuilderOptions()
	v.SetDefault("DB_NAME", "routes")
	v.SetDefault("BUILDER_EXPLICIT_FINISH", defaults.ExplicitFinish)
	v.SetDefault("BUILDER_CONFIRM_COLOR", defaults.ConfirmColor)
	v.SetDefault("BUILDER_DUPLICATE_CHECK", defaults.DuplicateCheck)
	v.SetDefault("BUILDER_MIN_SEPARATION_M", defaults.MinEndpointSeparationMeters)
	v.SetDefault("TRACK_DEBOUNCE", application.DefaultCenterDebounce)

	instanceID := v.GetString("INSTANCE_ID")
	if instanceID == "" {
		instanceID = defaultInstanceID()
	}

	return &ServiceConfig{
		Port:             config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:           config.GetAppEnv(v),
		DBConfig:         config.LoadDatabaseConfig(v, "DB_NAME"),
		KafkaConfig:      config.LoadKafkaConfig(v),
		DirectionsConfig: config.LoadDirectionsConfig(v),
		Builder: application.BuilderOptions{
			ExplicitFinish:              v.GetBool("BUILDER_EXPLICIT_FINISH"),
			ConfirmColor:                v.GetBool("BUILDER_CONFIRM_COLOR"),
			DuplicateCheck:              v.GetBool("BUILDER_DUPLICATE_CHECK"),
			MinEndpointSeparationMeters: v.GetFloat64("BUILDER_MIN_SEPARATION_M"),
		},
		TrackDebounce: v.GetDuration("TRACK_DEBOUNCE"),
		InstanceID:    instanceID,
	}, nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "routes"
	}
	return host + "-" + uuid.NewString()[:8]
}
