// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package blob stores and retrieves JSON documents in S3 compatible
// object storage.
//
// Listeners commonly use it for claim-check style payloads where the queue
// message only carries a bucket and key.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/z5labs/sqslistener/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes how to reach the object store.
type Config struct {
	Endpoint  config.Reader[string]
	AccessKey config.Reader[string]
	SecretKey config.Reader[string]
	Secure    config.Reader[bool]
}

// ConfigFromEnv reads MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY
// and MINIO_SECURE.
func ConfigFromEnv(overrides ...func(*Config)) Config {
	cfg := Config{
		Endpoint:  config.Env("MINIO_ENDPOINT"),
		AccessKey: config.Env("MINIO_ACCESS_KEY"),
		SecretKey: config.Env("MINIO_SECRET_KEY"),
		Secure:    config.BoolFromString(config.Env("MINIO_SECURE")),
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return cfg
}

// Store reads and writes JSON objects.
type Store struct {
	mc *minio.Client
}

// NewStore connects a [Store] using the given configuration.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	endpoint, err := config.Read(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("blob: endpoint: %w", err)
	}
	accessKey := config.MustOr(ctx, "", cfg.AccessKey)
	secretKey := config.MustOr(ctx, "", cfg.SecretKey)
	secure := config.MustOr(ctx, false, cfg.Secure)

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: failed to create client: %w", err)
	}
	return &Store{mc: mc}, nil
}

// GetJSON decodes the object at bucket/key into v.
func (s *Store) GetJSON(ctx context.Context, bucket, key string, v any) (err error) {
	obj, err := s.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("blob: failed to get %s/%s: %w", bucket, key, err)
	}
	defer func() {
		cerr := obj.Close()
		if err == nil && cerr != nil {
			err = cerr
		}
	}()

	err = json.NewDecoder(obj).Decode(v)
	if err != nil {
		return fmt.Errorf("blob: failed to decode %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PutJSON encodes v as JSON and writes it to bucket/key, returning the key.
func (s *Store) PutJSON(ctx context.Context, bucket, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("blob: failed to encode %s/%s: %w", bucket, key, err)
	}

	_, err = s.mc.PutObject(ctx, bucket, key, bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("blob: failed to put %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

// EnsureBucket creates the bucket if it does not already exist.
func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("blob: failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}

	err = s.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("blob: failed to create bucket %s: %w", bucket, err)
	}
	return nil
}
