package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/config"
	"github.com/unitimetable/timetable/internal/metrics"
	"github.com/unitimetable/timetable/internal/source"
	"github.com/unitimetable/timetable/internal/source/unicam"
	"github.com/unitimetable/timetable/internal/upstream"
)

const userAgent = "timetable/1.0 (+https://github.com/unitimetable/timetable)"

// newStore builds the configured cache backend. The returned close function
// is never nil.
func newStore(ctx context.Context, cfg config.Config) (cache.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CacheBackend {
	case config.BackendNone:
		return cache.NopStore{}, noop, nil
	case config.BackendRedis:
		store := cache.NewRedisStore(cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
		return store, store.Close, nil
	case config.BackendS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		})
		return cache.NewS3Store(cfg.S3Bucket, client), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// newRegistry registers every known source, each behind the read-through
// cache.
func newRegistry(cfg config.Config, store cache.Store, rec metrics.Recorder, log *slog.Logger) (*source.Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	client := upstream.NewClient(upstream.Options{
		Timeout:   cfg.UpstreamTimeout,
		Retries:   cfg.UpstreamRetries,
		UserAgent: userAgent,
	})

	uc := unicam.New(unicam.Config{
		ScheduleURL: cfg.UnicamScheduleURL,
		CatalogURL:  cfg.UnicamCatalogURL,
		WebexLinks:  cfg.UnicamWebexLinks,
	}, client, unicam.WithLogger(log), unicam.WithMetrics(rec))

	reg := source.NewRegistry()
	cached := source.NewCached(uc, unicam.ID, store, source.CacheOptions{
		Logger:    log,
		Metrics:   rec,
		OpTimeout: cfg.CacheOpTimeout,
	})
	if err := reg.Register(unicam.ID, unicam.Name, cached); err != nil {
		return nil, err
	}
	return reg, nil
}
