package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/api"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/config"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/oracle"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository/docstore"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/service"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a
// migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_ciftler"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := docstore.NewConnection(dsn)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"rooms", "questions"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing. Game timings
// are compressed to milliseconds so lifecycle tests finish quickly.
func TestConfig() *config.Config {
	return &config.Config{
		Port:        "0",
		Environment: "test",
		JWTSecret:   "test-jwt-secret-key-for-testing-only",
		Game:        TestGame(),
	}
}

// TestGame compresses every round timing to milliseconds.
func TestGame() config.Game {
	return config.Game{
		SearchTimeout:     40 * time.Millisecond,
		StartDelay:        10 * time.Millisecond,
		BotAnswerMinDelay: 5 * time.Millisecond,
		BotAnswerMaxDelay: 10 * time.Millisecond,
		AnswerDeadline:    2 * time.Second,
		MinRoundTime:      20 * time.Millisecond,
		FinishedRoomTTL:   200 * time.Millisecond,
	}
}

// SignToken mints a token the way the external identity provider does.
func SignToken(t *testing.T, secret, userID, username string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Config   *config.Config
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	logger := zerolog.Nop()

	repos := docstore.NewRepositories(testDB.DB)
	if err := docstore.SeedQuestions(context.Background(), repos.Questions); err != nil {
		t.Fatalf("failed to seed questions: %v", err)
	}

	answers := oracle.New(nil, rand.New(rand.NewSource(1)), logger)
	services := service.NewServices(repos, answers, cfg, logger)
	router := api.NewRouter(services, cfg, logger)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:]
	return fmt.Sprintf("%s/api/v1/game/ws?token=%s", wsURL, token)
}
