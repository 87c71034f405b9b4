package app

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/specialistvlad/superbuild/internal/publish"
)

// PublishOptions configures `publish`.
type PublishOptions struct {
	Dir      string
	Settings publish.Settings
	// Client overrides the S3 client built from Settings.
	Client publish.ObjectPutter
}

// Publish uploads the archives and digests found in a directory.
func (a *App) Publish(ctx context.Context, opts PublishOptions) ([]publish.Upload, error) {
	ctx = a.Context(ctx)
	if opts.Settings.Bucket == "" {
		return nil, fmt.Errorf("%w: publish needs a bucket", ErrUsage)
	}
	client := opts.Client
	if client == nil {
		c, err := publish.NewClient(ctx, opts.Settings)
		if err != nil {
			return nil, err
		}
		client = c
	}
	p := &publish.Publisher{
		Client: client,
		Bucket: opts.Settings.Bucket,
		Prefix: opts.Settings.Prefix,
		Jobs:   a.config.Jobs,
	}
	uploads, err := p.Publish(ctx, opts.Dir)
	if err != nil {
		return nil, err
	}
	for _, up := range uploads {
		a.status.printf("%s s3://%s/%s (%s)\n", greenMark(), opts.Settings.Bucket, up.Key, humanize.Bytes(uint64(up.Size)))
	}
	return uploads, nil
}
