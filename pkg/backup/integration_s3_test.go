//go:build integration
// +build integration

package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/williamokano/dump_dbs/pkg/config"
)

// S3Credentials holds S3 access credentials
type S3Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

func TestPgDumpToS3Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	for _, tool := range []string{"pg_dump", "sed", "tar", "gzip"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}

	ctx := context.Background()

	pgContainer, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err, "Failed to start PostgreSQL")
	defer pgContainer.Terminate(ctx)

	s3Container, s3Endpoint, s3Creds, err := setupLocalStackContainer(ctx)
	require.NoError(t, err, "Failed to start LocalStack")
	defer s3Container.Terminate(ctx)

	require.NoError(t, createTestDatabase(connStr))

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := newS3Client(ctx, s3Endpoint, s3Creds)
	require.NoError(t, err)
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("test-dumps")})
	require.NoError(t, err)

	targetDir := t.TempDir()
	t.Setenv("DUMP_DBS_TEST_S3_SECRET", s3Creds.SecretAccessKey)

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
target_dir: %s
storage:
  destinations:
    - name: offsite
      type: s3
      base_dir: postgres
      options:
        endpoint: %s
        region: us-east-1
        bucket: test-dumps
        access_key_id: %s
        secret_access_key: ${DUMP_DBS_TEST_S3_SECRET}
        force_path_style: true
billing:
  use: pgdump
  host: %s
  port: %d
  user: postgres
  password: testpass
  db: testdb
  format: tarball
  sed:
    - s/Test Record/Scrubbed Record/g
  upload: [offsite]
`, targetDir, s3Endpoint, s3Creds.AccessKeyID, host, mappedPort.Int())))
	require.NoError(t, err)

	runDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	report := NewDispatcher(cfg, zerolog.Nop(), WithClock(func() time.Time { return runDay })).Run(ctx)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	require.True(t, res.Success, "dump should succeed: %v", res.Error)
	assert.Equal(t, filepath.Join(targetDir, "billing-20240301.tar.gz"), res.FinalPath)
	assert.Equal(t, filepath.Join(targetDir, "billing-latest.tar.gz"), res.LinkPath)

	local, err := os.Stat(res.FinalPath)
	require.NoError(t, err)

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String("test-dumps"),
		Key:    aws.String("postgres/billing-20240301.tar.gz"),
	})
	require.NoError(t, err, "artifact should be in S3")
	assert.Equal(t, local.Size(), aws.ToInt64(head.ContentLength))
}

// setupPostgresContainer starts a PostgreSQL container and returns connection string
func setupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

// setupLocalStackContainer starts a LocalStack container with S3 service
func setupLocalStackContainer(ctx context.Context) (*localstack.LocalStackContainer, string, S3Credentials, error) {
	lsContainer, err := localstack.Run(ctx,
		"localstack/localstack:3.0",
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3"}),
	)
	if err != nil {
		return nil, "", S3Credentials{}, err
	}

	mappedPort, err := lsContainer.MappedPort(ctx, "4566/tcp")
	if err != nil {
		lsContainer.Terminate(ctx)
		return nil, "", S3Credentials{}, err
	}

	host, err := lsContainer.Host(ctx)
	if err != nil {
		lsContainer.Terminate(ctx)
		return nil, "", S3Credentials{}, err
	}

	// LocalStack default credentials
	creds := S3Credentials{AccessKeyID: "test", SecretAccessKey: "test"}
	return lsContainer, fmt.Sprintf("http://%s:%s", host, mappedPort.Port()), creds, nil
}

// createTestDatabase creates a table with sample rows to dump
func createTestDatabase(connStr string) error {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS invoices (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for i := 1; i <= 10; i++ {
		if _, err := db.Exec(`INSERT INTO invoices (name) VALUES ($1)`, fmt.Sprintf("Test Record %d", i)); err != nil {
			return fmt.Errorf("failed to insert data: %w", err)
		}
	}

	return nil
}

func newS3Client(ctx context.Context, endpoint string, creds S3Credentials) (*s3.Client, error) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}
