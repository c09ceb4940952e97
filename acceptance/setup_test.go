// Package acceptance exercises the booking paths against a real Postgres.
// Tests are skipped unless DATABASE_URL is set.
package acceptance

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/internal/database"
	"github.com/semanticallynull/carpool-backend/place"
	"github.com/semanticallynull/carpool-backend/ride"
	"github.com/semanticallynull/carpool-backend/user"
)

type TestServer struct {
	DB        *sqlx.DB
	Engine    *booking.Engine
	RideRepo  *ride.Repository
	UserRepo  *user.Repository
	PlaceRepo *place.Repository

	Driver user.User
	Rider  user.User

	Origin uuid.UUID
	Dest   uuid.UUID
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping acceptance tests")
	}

	gin.SetMode(gin.TestMode)

	if err := database.Migrate(dbURL); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	db, err := sqlx.Connect("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cleanupTestData(t, db)

	ts := &TestServer{
		DB:        db,
		Engine:    booking.NewEngine(ride.NewRepository(db)),
		RideRepo:  ride.NewRepository(db),
		UserRepo:  user.NewRepository(db),
		PlaceRepo: place.NewRepository(db),
	}
	ts.seedFixtures(t)
	return ts
}

func cleanupTestData(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, q := range []string{
		`DELETE FROM ride_riders`,
		`DELETE FROM rides`,
		`DELETE FROM api_keys WHERE key LIKE 'cpk_test%'`,
		`DELETE FROM users WHERE username LIKE 'accept-%'`,
		`DELETE FROM places WHERE name LIKE 'accept-%'`,
	} {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("failed to clean up test data: %v", err)
		}
	}
}

func (ts *TestServer) seedFixtures(t *testing.T) {
	t.Helper()

	ts.Driver = ts.insertUser(t, "accept-driver", true, false)
	ts.Rider = ts.insertUser(t, "accept-rider", false, false)
	ts.Origin = ts.insertPlace(t, "accept-north-campus", "campus")
	ts.Dest = ts.insertPlace(t, "accept-mill-road", "residential")
}

func (ts *TestServer) insertUser(t *testing.T, username string, mayDrive, isAdmin bool) user.User {
	t.Helper()

	id := uuid.New()
	_, err := ts.DB.Exec(
		`INSERT INTO users (id, username, may_drive, is_admin) VALUES ($1, $2, $3, $4)`,
		id, username, mayDrive, isAdmin,
	)
	if err != nil {
		t.Fatalf("failed to insert user %s: %v", username, err)
	}

	u, err := ts.UserRepo.GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("failed to read back user %s: %v", username, err)
	}
	return u
}

func (ts *TestServer) insertPlace(t *testing.T, name, placeType string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := ts.DB.Exec(
		`INSERT INTO places (id, name, address, location, type) VALUES ($1, $2, $3, point(52.2, 0.12), $4)`,
		id, name, name+" street", placeType,
	)
	if err != nil {
		t.Fatalf("failed to insert place %s: %v", name, err)
	}
	return id
}

func (ts *TestServer) createRide(t *testing.T, seats int) uuid.UUID {
	t.Helper()

	id, err := ts.Engine.Create(context.Background(), ts.Driver, booking.CreateParams{
		OriginID:      ts.Origin,
		DestinationID: ts.Dest,
		ScheduledAt:   time.Now().Add(2 * time.Hour),
		Seats:         seats,
	})
	if err != nil {
		t.Fatalf("failed to create ride: %v", err)
	}
	return id
}

// doJSON posts a JSON body to a router and returns the recorder, for tests
// that drive the HTTP surface directly.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
