package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxcache/weather-service/internal/weather"
)

type fakeS3 struct {
	putFn  func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	getFn  func(ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	listFn func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f.putFn(ctx, in)
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f.getFn(ctx, in)
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return f.listFn(ctx, in)
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

func object(key string, lastModified time.Time) types.Object {
	return types.Object{
		Key:          aws.String(key),
		LastModified: aws.Time(lastModified),
	}
}

func TestPutWritesDeterministicKey(t *testing.T) {
	ts := time.Date(2024, 3, 12, 10, 15, 30, 0, time.UTC)
	reading := weather.Reading{
		City:        "New York",
		Country:     "US",
		Temperature: 21.5,
		Humidity:    55,
		Description: "few clouds",
		Timestamp:   ts,
	}

	var captured *s3.PutObjectInput
	client := &fakeS3{
		putFn: func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			captured = in
			return &s3.PutObjectOutput{}, nil
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	location, err := s.Put(context.Background(), reading)
	require.NoError(t, err)

	wantKey := "weather_data/new_york_20240312_101530.json"
	require.NotNil(t, captured)
	assert.Equal(t, wantKey, aws.ToString(captured.Key))
	assert.Equal(t, "s3://weather-data-bucket/"+wantKey, location)
	assert.Equal(t, "application/json", aws.ToString(captured.ContentType))
	assert.Equal(t, "New York", captured.Metadata["city"])
	assert.Equal(t, ts.Format(time.RFC3339), captured.Metadata["timestamp"])

	// The stored body must round-trip to a field-identical reading.
	body, err := io.ReadAll(captured.Body)
	require.NoError(t, err)
	var got weather.Reading
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, reading, got)
}

func TestPutFailureIsStorageError(t *testing.T) {
	client := &fakeS3{
		putFn: func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	_, err := s.Put(context.Background(), weather.Reading{City: "Berlin", Timestamp: time.Now().UTC()})
	assert.ErrorIs(t, err, weather.ErrStorage)
}

func TestGetFreshReturnsLatestWithinWindow(t *testing.T) {
	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	fresh := weather.Reading{City: "London", Country: "GB", Temperature: 9.5, Timestamp: now.Add(-time.Minute)}
	freshJSON, _ := json.Marshal(fresh)

	var gotKey string
	client := &fakeS3{
		listFn: func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "weather_data/london_", aws.ToString(in.Prefix))
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{
					object("weather_data/london_20240312_110000.json", now.Add(-time.Hour)),
					object("weather_data/london_20240312_115700.json", now.Add(-3*time.Minute)),
					object("weather_data/london_20240312_115900.json", now.Add(-time.Minute)),
				},
			}, nil
		},
		getFn: func(ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			gotKey = aws.ToString(in.Key)
			return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(freshJSON)))}, nil
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	s.now = func() time.Time { return now }

	entry, err := s.GetFresh(context.Background(), "London", 5*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "weather_data/london_20240312_115900.json", gotKey)
	assert.Equal(t, "s3://weather-data-bucket/"+gotKey, entry.Location)
	assert.Equal(t, now.Add(-time.Minute), entry.LastModified)
	assert.Equal(t, fresh.Temperature, entry.Reading.Temperature)
}

func TestGetFreshTieBreaksByKey(t *testing.T) {
	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	modified := now.Add(-2 * time.Minute)
	body, _ := json.Marshal(weather.Reading{City: "London", Timestamp: modified})

	var gotKey string
	client := &fakeS3{
		listFn: func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{
					object("weather_data/london_20240312_115800.json", modified),
					object("weather_data/london_20240312_115801.json", modified),
				},
			}, nil
		},
		getFn: func(ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			gotKey = aws.ToString(in.Key)
			return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(body)))}, nil
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	s.now = func() time.Time { return now }

	_, err := s.GetFresh(context.Background(), "London", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "weather_data/london_20240312_115801.json", gotKey)
}

func TestGetFreshIgnoresStaleEntries(t *testing.T) {
	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	client := &fakeS3{
		listFn: func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{
					object("weather_data/london_20240312_100000.json", now.Add(-2*time.Hour)),
				},
			}, nil
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	s.now = func() time.Time { return now }

	entry, err := s.GetFresh(context.Background(), "London", 5*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestGetFreshListFailureIsAMiss(t *testing.T) {
	client := &fakeS3{
		listFn: func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			return nil, errors.New("timeout")
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	entry, err := s.GetFresh(context.Background(), "London", 5*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListRecentFiltersByWindow(t *testing.T) {
	now := time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
	client := &fakeS3{
		listFn: func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "weather_data/", aws.ToString(in.Prefix))
			return &s3.ListObjectsV2Output{
				Contents: []types.Object{
					object("weather_data/london_20240312_110000.json", now.Add(-time.Hour)),
					object("weather_data/paris_20240310_090000.json", now.Add(-50*time.Hour)),
					object("weather_data/berlin_20240312_113000.json", now.Add(-30*time.Minute)),
				},
			}, nil
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	s.now = func() time.Time { return now }

	keys, err := s.ListRecent(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"weather_data/london_20240312_110000.json",
		"weather_data/berlin_20240312_113000.json",
	}, keys)
}

func TestListRecentFailureReturnsEmpty(t *testing.T) {
	client := &fakeS3{
		listFn: func(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			return nil, errors.New("timeout")
		},
	}

	s := NewS3StoreWithClient(client, "weather-data-bucket")
	keys, err := s.ListRecent(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
