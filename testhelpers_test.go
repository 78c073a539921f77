//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/directions"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	routeEvents "github.com/waymark-maps/service-routes/internal/events"
	"github.com/waymark-maps/service-routes/internal/platform/database"
	"github.com/waymark-maps/service-routes/internal/platform/kafka"
	"github.com/waymark-maps/service-routes/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// routesStack holds the wired-up components of one service instance.
type routesStack struct {
	InstanceID       string
	Routes           *application.RouteService
	Markers          *application.MarkerService
	Builder          *application.BuilderService
	Track            *application.TrackService
	SyncConsumer     *routeEvents.CatalogSyncConsumer
	LocationConsumer *routeEvents.LocationConsumer
	CleanupProducer  func()
}

// straightRouter answers every lookup with a straight line through the requested points.
type straightRouter struct{}

func (straightRouter) Route(_ context.Context, req directions.Request) (*directions.Result, error) {
	path := append([]geo.Point{req.Origin}, req.Waypoints...)
	path = append(path, req.Destination)
	return &directions.Result{OverviewPath: path, DistanceText: "1.0 km", DurationText: "3 mins"}, nil
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the SQL migrations and
// returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_routes",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pgConfig := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_routes",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(pgConfig.DSN()), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(pgConfig.DatabaseURL(), "migrations", zap.NewNop()))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, application.TopicMapEvents, application.TopicLocationSamples)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRoutesStack wires up one service instance against the shared database and brokers.
func setupRoutesStack(t *testing.T, db *gorm.DB, brokers []string) *routesStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	instanceID := fmt.Sprintf("test-routes-%s", uuid.New().String()[:8])

	producer := kafka.NewProducer(brokers, logger)
	publisher := routeEvents.NewKafkaPublisher(producer, instanceID, logger)

	opts := application.DefaultBuilderOptions()
	routeSvc := application.NewRouteService(repository.NewGormRouteRepository(db), publisher, opts.DuplicateCheck, logger)
	markerSvc := application.NewMarkerService(repository.NewGormMarkerRepository(db), publisher, logger)
	builderSvc := application.NewBuilderService(
		repository.NewGormSessionRepository(db), straightRouter{}, nil, routeSvc, opts, logger,
	)
	trackSvc := application.NewTrackService(0, logger)

	ctx := context.Background()
	require.NoError(t, routeSvc.Load(ctx))
	require.NoError(t, markerSvc.Load(ctx))

	return &routesStack{
		InstanceID: instanceID,
		Routes:     routeSvc,
		Markers:    markerSvc,
		Builder:    builderSvc,
		Track:      trackSvc,
		SyncConsumer: routeEvents.NewCatalogSyncConsumer(
			brokers, "test-sync-"+instanceID, instanceID, routeSvc, markerSvc, logger,
		),
		LocationConsumer: routeEvents.NewLocationConsumer(
			brokers, "test-location-"+instanceID, trackSvc, logger,
		),
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// startConsumers runs both consumers until ctx is cancelled and waits for the group join.
func (s *routesStack) startConsumers(t *testing.T, ctx context.Context) {
	t.Helper()
	go func() { _ = s.SyncConsumer.Start(ctx) }()
	go func() { _ = s.LocationConsumer.Start(ctx) }()
	t.Cleanup(func() {
		_ = s.SyncConsumer.Close()
		_ = s.LocationConsumer.Close()
	})
	time.Sleep(3 * time.Second) // Wait for consumer group join.
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, key, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, key, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
