package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wxcache/weather-service/internal/weather"
)

// All readings live under a single key prefix; per-city lookups narrow it
// further with the normalized city key.
const keyPrefix = "weather_data/"

// s3API is the slice of the S3 client the store uses. Tests substitute a
// fake; production passes *s3.Client.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Config holds S3Store settings.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint (MinIO, LocalStack)
}

// S3Store persists weather readings as JSON objects in an S3-compatible
// bucket. Freshness is judged by the store-reported last-modified time,
// which reflects when the object actually became durable.
type S3Store struct {
	client s3API
	bucket string

	now func() time.Time
}

// NewS3Store creates an S3-backed reading store.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for MinIO/LocalStack
		}
	})

	return NewS3StoreWithClient(client, cfg.Bucket), nil
}

// NewS3StoreWithClient creates a store on an already-constructed client.
func NewS3StoreWithClient(client s3API, bucket string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
}

// EnsureBucket creates the backing bucket if it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	log.Printf("INFO: created bucket %s", s.bucket)
	return nil
}

// Put serializes the reading and writes it under a key derived from the
// normalized city and the capture timestamp (second precision). Returns the
// object location.
func (s *S3Store) Put(ctx context.Context, r weather.Reading) (string, error) {
	key := objectKey(r.City, r.Timestamp)

	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encoding reading for %s: %v", weather.ErrStorage, r.City, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"city":      r.City,
			"timestamp": r.Timestamp.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", weather.ErrStorage, key, err)
	}

	location := s.location(key)
	log.Printf("INFO: stored weather data to %s", location)
	return location, nil
}

// GetFresh returns the stored entry for city with the latest last-modified
// time within maxAge, or nil when no entry qualifies. Enumeration and
// retrieval failures degrade to a miss.
func (s *S3Store) GetFresh(ctx context.Context, city string, maxAge time.Duration) (*weather.StoredEntry, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	prefix := keyPrefix + weather.CityKey(city) + "_"

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		log.Printf("WARN: failed to list cached readings for %s: %v", city, err)
		return nil, nil
	}

	var best *types.Object
	for i := range out.Contents {
		obj := out.Contents[i]
		if obj.LastModified == nil || obj.LastModified.Before(cutoff) {
			continue
		}
		if best == nil || newerThan(obj, *best) {
			best = &obj
		}
	}
	if best == nil {
		return nil, nil
	}

	key := aws.ToString(best.Key)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("WARN: failed to retrieve cached reading %s: %v", key, err)
		return nil, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("WARN: failed to read cached reading %s: %v", key, err)
		return nil, nil
	}

	var r weather.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		log.Printf("WARN: failed to decode cached reading %s: %v", key, err)
		return nil, nil
	}

	return &weather.StoredEntry{
		Reading:      r,
		Location:     s.location(key),
		LastModified: best.LastModified.UTC(),
	}, nil
}

// ListRecent returns the keys of all readings written within the trailing
// window, across all cities. Best-effort: empty on enumeration failure.
func (s *S3Store) ListRecent(ctx context.Context, window time.Duration) ([]string, error) {
	cutoff := s.now().UTC().Add(-window)

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	if err != nil {
		log.Printf("WARN: failed to list recent readings: %v", err)
		return []string{}, nil
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.LastModified == nil || obj.LastModified.Before(cutoff) {
			continue
		}
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

func (s *S3Store) location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// newerThan orders candidates by last-modified time; identical times break
// the tie lexicographically by key so selection stays deterministic.
func newerThan(a, b types.Object) bool {
	if a.LastModified.After(*b.LastModified) {
		return true
	}
	if a.LastModified.Equal(*b.LastModified) {
		return aws.ToString(a.Key) > aws.ToString(b.Key)
	}
	return false
}

func objectKey(city string, ts time.Time) string {
	return keyPrefix + weather.CityKey(city) + "_" + ts.UTC().Format("20060102_150405") + ".json"
}
