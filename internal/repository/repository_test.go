package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/waymark-maps/service-routes/internal/domain/buildsession"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	markerDomain "github.com/waymark-maps/service-routes/internal/domain/marker"
	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&RouteModel{}, &MarkerModel{}, &BuildSessionModel{}))
	return db
}

func newRoute(t *testing.T, start, end geo.Point, waypoints ...geo.Point) *routeDomain.Route {
	t.Helper()
	rt, err := routeDomain.NewRoute(start, end, waypoints,
		[]geo.Point{start, {Lat: 40.2, Lng: -82.2}, end}, "150 km", "1 hour 50 mins", routeDomain.ColorRed)
	require.NoError(t, err)
	return rt
}

func TestRouteRepository_CreateAssignsIdentifier(t *testing.T) {
	repo := NewGormRouteRepository(newTestDB(t))
	ctx := context.Background()

	start, end := geo.Point{Lat: 40.0, Lng: -82.0}, geo.Point{Lat: 41.0, Lng: -83.0}
	now := time.Now().UTC()
	placeholder := routeDomain.Reconstruct(uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		start, end, nil, []geo.Point{start, end}, "1 km", "1 min", routeDomain.ColorBlue, now, now)

	created, err := repo.Create(ctx, placeholder)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID())
	assert.NotEqual(t, placeholder.ID(), created.ID())

	found, err := repo.FindByID(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, start, found.Start())
	assert.Equal(t, end, found.End())
	assert.Empty(t, found.Waypoints())
	assert.Equal(t, routeDomain.ColorBlue, found.Color())
}

func TestRouteRepository_RoundTripPreservesGeometryAndOrder(t *testing.T) {
	repo := NewGormRouteRepository(newTestDB(t))
	ctx := context.Background()

	wps := []geo.Point{{Lat: 40.5, Lng: -82.5}, {Lat: 40.7, Lng: -82.7}}
	first, err := repo.Create(ctx, newRoute(t, geo.Point{Lat: 40, Lng: -82}, geo.Point{Lat: 41, Lng: -83}, wps...))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newRoute(t, geo.Point{Lat: 10, Lng: 10}, geo.Point{Lat: 11, Lng: 11}))
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID(), all[0].ID())
	assert.Equal(t, second.ID(), all[1].ID())
	assert.Equal(t, wps, all[0].Waypoints())
	assert.Len(t, all[0].OverviewPath(), 3)
	assert.Equal(t, "150 km", all[0].Distance())
	assert.Equal(t, "1 hour 50 mins", all[0].Duration())
}

func TestRouteRepository_UpdateColorOnlyTouchesColor(t *testing.T) {
	repo := NewGormRouteRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newRoute(t, geo.Point{Lat: 40, Lng: -82}, geo.Point{Lat: 41, Lng: -83}, geo.Point{Lat: 40.5, Lng: -82.5}))
	require.NoError(t, err)

	updated, err := repo.UpdateColor(ctx, created.ID(), routeDomain.ColorGreen)
	require.NoError(t, err)

	assert.Equal(t, routeDomain.ColorGreen, updated.Color())
	assert.Equal(t, created.ID(), updated.ID())
	assert.Equal(t, created.Start(), updated.Start())
	assert.Equal(t, created.End(), updated.End())
	assert.Equal(t, created.Waypoints(), updated.Waypoints())
	assert.Equal(t, created.OverviewPath(), updated.OverviewPath())
	assert.Equal(t, created.Distance(), updated.Distance())
	assert.Equal(t, created.Duration(), updated.Duration())
}

func TestRouteRepository_MissingRoute(t *testing.T) {
	repo := NewGormRouteRepository(newTestDB(t))
	ctx := context.Background()
	id := uuid.New()

	_, err := repo.FindByID(ctx, id)
	assert.True(t, domain.IsNotFound(err))

	_, err = repo.UpdateColor(ctx, id, routeDomain.ColorBlue)
	assert.True(t, domain.IsNotFound(err))

	assert.True(t, domain.IsNotFound(repo.Delete(ctx, id)))
}

func TestRouteRepository_Delete(t *testing.T) {
	repo := NewGormRouteRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newRoute(t, geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2}))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, created.ID()))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMarkerRepository_Lifecycle(t *testing.T) {
	repo := NewGormMarkerRepository(newTestDB(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, markerDomain.NewMarker(geo.Point{Lat: 39.96, Lng: -83.0}))
	require.NoError(t, err)
	b, err := repo.Create(ctx, markerDomain.NewMarker(geo.Point{Lat: 40.1, Lng: -82.9}))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, a.ID())

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, geo.Point{Lat: 39.96, Lng: -83.0}, all[0].Position())

	require.NoError(t, repo.Delete(ctx, a.ID()))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, a.ID())))

	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID(), all[0].ID())
}

func TestSessionRepository_SaveAndFind(t *testing.T) {
	repo := NewGormSessionRepository(newTestDB(t))
	ctx := context.Background()
	id := uuid.New()

	_, err := repo.FindByID(ctx, id)
	assert.True(t, domain.IsNotFound(err))

	s := buildsession.New(id)
	require.NoError(t, repo.Save(ctx, s))

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, buildsession.StateIdle, found.State())
	_, hasStart := found.Start()
	assert.False(t, hasStart)
	assert.Equal(t, routeDomain.DefaultColor(), found.Color())
}

func TestSessionRepository_SecondSaveConflicts(t *testing.T) {
	repo := NewGormSessionRepository(newTestDB(t))
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.Save(ctx, buildsession.New(id)))
	err := repo.Save(ctx, buildsession.New(id))
	assert.True(t, domain.IsConflict(err))
}

func TestSessionRepository_UpdateWithOptimisticLock(t *testing.T) {
	repo := NewGormSessionRepository(newTestDB(t))
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, repo.Save(ctx, buildsession.New(id)))

	a, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, id)
	require.NoError(t, err)

	a.Begin()
	require.NoError(t, a.SetStart(geo.Point{Lat: 40, Lng: -82}))
	require.NoError(t, a.AddWaypoint(geo.Point{Lat: 40.5, Lng: -82.5}))
	a.IncrementVersion()
	require.NoError(t, repo.Update(ctx, a))

	b.Begin()
	b.IncrementVersion()
	assert.True(t, domain.IsConflict(repo.Update(ctx, b)))

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, buildsession.StateAwaitingWaypointOrEnd, found.State())
	start, ok := found.Start()
	require.True(t, ok)
	assert.Equal(t, geo.Point{Lat: 40, Lng: -82}, start)
	assert.Equal(t, []geo.Point{{Lat: 40.5, Lng: -82.5}}, found.Points())
	assert.Equal(t, int64(2), found.Version())
}
