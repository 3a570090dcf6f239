// Package archive stores rendered bulletins in S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config mirrors config.ArchiveConfig.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	// PublicURL, when set, is the base of returned object URLs (a CDN in
	// front of the bucket). Otherwise an s3:// URL is returned.
	PublicURL string
	PathStyle bool
}

// Store writes objects to a single bucket.
type Store struct {
	client *s3.Client
	cfg    Config
}

// New builds a store. A custom endpoint (MinIO, R2, LocalStack) implies
// path-style addressing unless the bucket is reachable as a subdomain.
func New(cfg Config) *Store {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle || cfg.Endpoint != "",
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Store{client: s3.New(opts), cfg: cfg}
}

// Key joins the configured prefix with parts.
func (s *Store) Key(parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if s.cfg.Prefix != "" {
		all = append(all, s.cfg.Prefix)
	}
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			all = append(all, p)
		}
	}
	return strings.Join(all, "/")
}

// PutHTML uploads body under key and returns the object URL.
func (s *Store) PutHTML(ctx context.Context, key string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.cfg.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("text/html; charset=utf-8"),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL returns the address of key.
func (s *Store) URL(key string) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
}
