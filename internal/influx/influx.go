package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/littleexplorer/atlas/internal/config"
	"github.com/rs/zerolog"
)

const (
	// DefaultBucketName is the bucket render telemetry goes to.
	DefaultBucketName = "render_performance"
	// DefaultRetention applies when a missing bucket is created.
	DefaultRetention = 30 * 24 * time.Hour
)

var (
	// ErrDisabled is returned by Connect when influx.enabled is false.
	ErrDisabled = errors.New("influx is disabled")
	// ErrNoSink is returned by WritePoint before Connect, or after Close.
	ErrNoSink = errors.New("influx not connected and no backup file open")
)

// Manager sends render telemetry to one InfluxDB bucket. When the server is unreachable
// at Connect time, points go to a gzip line-protocol file that can be replayed later.
type Manager struct {
	Logger     zerolog.Logger
	BackupPath string

	cfg    config.InfluxConfig
	bucket string

	mu         sync.Mutex
	client     influxdb2.Client
	writer     api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
}

// NewManager creates a manager. Nothing is opened until Connect.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucketName
	}
	return &Manager{Logger: log, BackupPath: backupPath, cfg: cfg, bucket: bucket}
}

func (m *Manager) Bucket() string {
	return m.bucket
}

// Online reports whether points are going to the server rather than the backup file.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writer != nil
}

// Connect pings the server and prepares the bucket, or opens the backup file if the ping fails.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	url := fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
	client := influxdb2.NewClientWithOptions(url, m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	if ok, err := client.Ping(ctx); err != nil || !ok {
		client.Close()
		m.Logger.Warn().Err(err).Str("url", url).Str("backupPath", m.BackupPath).
			Msg("influxdb unreachable, writing render telemetry to backup file")
		return m.openBackup()
	}

	if err := m.ensureBucket(ctx, client); err != nil {
		client.Close()
		return err
	}

	m.client = client
	m.writer = client.WriteAPI(m.cfg.Org, m.bucket)
	go m.logWriteErrors(m.writer.Errors())

	m.Logger.Info().Str("url", url).Str("bucket", m.bucket).Msg("influxdb connected")
	return nil
}

func (m *Manager) openBackup() error {
	if m.backup != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening influx backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context, client influxdb2.Client) error {
	orgs := client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("creating influx organization")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.bucket); err == nil {
		return nil
	}

	retention := m.cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	rule := domain.RetentionRuleTypeExpire
	m.Logger.Info().Str("bucket", m.bucket).Dur("retention", retention).Msg("creating influx bucket")
	if _, err := buckets.CreateBucketWithName(ctx, org, m.bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: int64(retention / time.Second),
	}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *Manager) logWriteErrors(errs <-chan error) {
	for err := range errs {
		m.Logger.Error().Err(err).Str("bucket", m.bucket).Msg("influx write failed")
	}
}

// WritePoint queues point on the server writer, or appends it to the backup file.
func (m *Manager) WritePoint(ctx context.Context, point *write.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.writer != nil:
		m.writer.WritePoint(point)
		return nil
	case m.backup != nil:
		line := write.PointToLineProtocol(point, time.Nanosecond)
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		if _, err := m.backup.Write([]byte(line)); err != nil {
			return fmt.Errorf("writing influx backup: %w", err)
		}
		return nil
	default:
		return ErrNoSink
	}
}

// Close flushes the server writer or the backup file and releases both.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
		m.writer = nil
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}

	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		m.backup = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// NewPoint builds a point for measurement with the given tags and fields.
func NewPoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) *write.Point {
	return influxdb2.NewPoint(measurement, tags, fields, ts)
}
