package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/superbuild/internal/ctxlog"
)

// Settings describes the destination bucket.
type Settings struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient builds an S3 client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, s Settings) (*s3.Client, error) {
	if s.Bucket == "" {
		return nil, errors.New("publish: bucket is required")
	}
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Upload records one uploaded object.
type Upload struct {
	File string
	Key  string
	Size int64
}

// Publisher uploads the artifact files of a directory.
type Publisher struct {
	Client ObjectPutter
	Bucket string
	Prefix string
	// Jobs bounds concurrent uploads; zero means four.
	Jobs int
}

// Collect returns the publishable files directly inside dir: archives and
// digest files, sorted by name.
func Collect(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && contentType(e.Name()) != "" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// Key is the object key for a local file.
func (p *Publisher) Key(file string) string {
	return path.Join(strings.Trim(p.Prefix, "/"), filepath.Base(file))
}

// Publish uploads every file Collect finds in dir.
func (p *Publisher) Publish(ctx context.Context, dir string) ([]Upload, error) {
	files, err := Collect(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no archives found in %s", dir)
	}

	uploads := make([]Upload, len(files))
	g, gctx := errgroup.WithContext(ctx)
	jobs := p.Jobs
	if jobs <= 0 {
		jobs = 4
	}
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			up, err := p.put(gctx, file)
			if err != nil {
				return err
			}
			uploads[i] = up
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (p *Publisher) put(ctx context.Context, file string) (Upload, error) {
	f, err := os.Open(file)
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Upload{}, err
	}

	key := p.Key(file)
	_, err = p.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(file)),
	})
	if err != nil {
		return Upload{}, fmt.Errorf("failed to upload %s to s3://%s/%s: %w", file, p.Bucket, key, err)
	}
	ctxlog.FromContext(ctx).Info("Uploaded artifact", "file", file, "key", key, "size", info.Size())
	return Upload{File: file, Key: key, Size: info.Size()}, nil
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".tar.xz"):
		return "application/x-xz"
	case strings.HasSuffix(name, ".tar.zst"):
		return "application/zstd"
	case strings.HasSuffix(name, ".tar.gz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".tar"):
		return "application/x-tar"
	case strings.HasSuffix(name, ".sha256sum"), strings.HasSuffix(name, ".b3sum"):
		return "text/plain"
	}
	return ""
}
