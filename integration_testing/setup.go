//go:build integration_test || all_tests

package integration_testing

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/2beens/gymlog/internal"
	"github.com/2beens/gymlog/internal/config"
)

const (
	serverPort  = 9000
	metricsPort = "9001"
	serverHost  = "localhost"

	dbName     = "gymlog_test"
	dbUser     = "postgres"
	dbPassword = "postgres"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

// Suite runs the records service against real postgres and redis
// containers.
type Suite struct {
	DB         *sql.DB
	dockerPool *dockertest.Pool
	server     *internal.Server
	teardown   []func()
}

func newSuite(ctx context.Context) (_ *Suite, err error) {
	suite := &Suite{
		teardown: make([]func(), 0),
	}
	defer func() {
		if err != nil {
			suite.cleanup()
		}
	}()

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	suite.dockerPool, err = dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not create new dockertest pool: %w", err)
	}
	suite.dockerPool.MaxWait = 2 * time.Minute

	// uses pool to try to connect to Docker
	if err = suite.dockerPool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping dockertest pool: %w", err)
	}

	redisPort, err := suite.redisSetup()
	if err != nil {
		return nil, fmt.Errorf("failed to setup redis: %w", err)
	}

	pgPort, err := suite.postgresSetup()
	if err != nil {
		return nil, fmt.Errorf("failed to setup postgres: %w", err)
	}

	cfg := getTestConfig(redisPort, pgPort)
	suite.server, err = internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             "test-version-info",
			PostgresUser:            dbUser,
			PostgresPassword:        dbPassword,
			RedisPassword:           "",
			HoneycombTracingEnabled: false,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("new server: %w", err)
	}

	suite.server.Serve(cfg.Host, cfg.Port)

	if err := waitForServer(ctx); err != nil {
		return nil, err
	}
	return suite, nil
}

func (s *Suite) cleanup() {
	if s.server != nil {
		if err := s.server.GracefulShutdown(); err != nil {
			log.Printf("server shutdown: %s", err)
		}
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
	for _, teardown := range s.teardown {
		teardown()
	}
}

func getTestConfig(redisPort, postgresPort string) *config.Config {
	cfg := &config.Config{
		Environment:                 "development",
		Host:                        serverHost,
		Port:                        serverPort,
		PrometheusMetricsHost:       serverHost,
		PrometheusMetricsPort:       metricsPort,
		AllowedOrigins:              []string{"*"},
		LogLevel:                    "debug",
		RedisHost:                   "localhost",
		RedisPort:                   redisPort,
		EnterWorkoutRateLimitPerMin: 10_000,
		PostgresPort:                postgresPort,
		PostgresHost:                "localhost",
		PostgresDBName:              dbName,
		StoreURL:                    serverEndpoint,
		ProbeParallelism:            4,
	}
	return cfg
}

func (s *Suite) redisSetup() (string, error) {
	redisResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "6.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return "", fmt.Errorf("run redis: %w", err)
	}

	s.teardown = append(s.teardown, func() {
		_ = redisResource.Close()
	})

	return redisResource.GetPort("6379/tcp"), nil
}

func (s *Suite) postgresSetup() (string, error) {
	pgResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + dbUser,
			"POSTGRES_PASSWORD=" + dbPassword,
			"POSTGRES_DB=" + dbName,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %w", err)
	}

	s.teardown = append(s.teardown, func() {
		_ = pgResource.Close()
	})

	pgPort := pgResource.GetPort("5432/tcp")
	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, pgPort, dbName)

	// the container accepts connections a bit after it is started
	if err := s.dockerPool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return err
		}
		s.DB = db
		return nil
	}); err != nil {
		return "", fmt.Errorf("connect to postgres: %w", err)
	}

	return pgPort, nil
}

func waitForServer(ctx context.Context) error {
	addr := net.JoinHostPort(serverHost, strconv.Itoa(serverPort))
	for i := 0; i < 50; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/version", nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not reachable", addr)
}
