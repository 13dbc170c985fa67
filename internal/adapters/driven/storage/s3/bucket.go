package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// API is the subset of the S3 client the adapters use.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Ensure the SDK client implements API.
var _ API = (*s3.Client)(nil)

// deleteBatchSize is the DeleteObjects per-request limit.
const deleteBatchSize = 1000

// errNoSuchKey reports a missing object.
var errNoSuchKey = errors.New("no such key")

// NewClient builds an S3 client from configuration. A custom endpoint
// (MinIO, localstack) and static credentials are applied when set;
// otherwise the default AWS credential chain is used.
func NewClient(ctx context.Context, cfg domain.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", domain.ErrConfiguration, err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// bucket wraps one bucket with the operations the stores share.
type bucket struct {
	api      API
	uploader *manager.Uploader
	name     string
}

func newBucket(api API, name string) (*bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: s3 bucket name not set", domain.ErrConfiguration)
	}
	return &bucket{
		api:      api,
		uploader: manager.NewUploader(api),
		name:     name,
	}, nil
}

// ensure creates the bucket if it does not exist yet.
func (b *bucket) ensure(ctx context.Context) error {
	if _, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.name)}); err == nil {
		return nil
	}
	if _, err := b.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.name)}); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return storageErr("create bucket "+b.name, err)
	}
	logger.Info("Created bucket %s", b.name)
	return nil
}

func (b *bucket) put(ctx context.Context, key string, body io.Reader) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return storageErr("upload "+key, err)
	}
	return nil
}

func (b *bucket) putBytes(ctx context.Context, key string, data []byte) error {
	return b.put(ctx, key, bytes.NewReader(data))
}

// get opens an object. A missing object is reported as errNoSuchKey.
func (b *bucket) get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errNoSuchKey
		}
		return nil, storageErr("get "+key, err)
	}
	return out.Body, nil
}

func (b *bucket) getBytes(ctx context.Context, key string) ([]byte, error) {
	body, err := b.get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, storageErr("read "+key, err)
	}
	return data, nil
}

// list returns every key under prefix, sorted.
func (b *bucket) list(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storageErr("list "+prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *bucket) exists(ctx context.Context, key string) (bool, error) {
	keys, err := b.list(ctx, key)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

// deletePrefix removes every object under prefix and returns how many
// objects were deleted.
func (b *bucket) deletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := b.list(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if err := b.deleteKeys(ctx, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (b *bucket) deleteKeys(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := b.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.name),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return storageErr("delete objects", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return storageErr("delete objects", fmt.Errorf("%s: %s",
				aws.ToString(first.Key), aws.ToString(first.Message)))
		}
	}
	return nil
}

// uploadTree uploads every regular file under dir with keys prefixed by
// prefix and the file's slash-separated relative path.
func (b *bucket) uploadTree(ctx context.Context, prefix, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return storageErr("walk "+dir, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return storageErr("relative path", err)
		}

		f, err := os.Open(path)
		if err != nil {
			return storageErr("open "+path, err)
		}
		defer f.Close()

		return b.put(ctx, prefix+"/"+filepath.ToSlash(rel), f)
	})
}

// checkKey rejects keys that would alias another object tree.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: invalid key %q", domain.ErrInvalidRequest, key)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: s3 %s: %w", domain.ErrStorageFailure, op, err)
}
