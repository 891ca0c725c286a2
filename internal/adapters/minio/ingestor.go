// internal/adapters/minio/ingestor.go
package minioad

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"wanderlust/internal/adapters/observability"
	"wanderlust/internal/domain"
)

// ObjectPutter is the slice of *minio.Client the ingestor needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Folder    string        // logical namespace, e.g. "wanderlust-listings"
	PublicURL string        // base of retrieval URLs; defaults to the endpoint URL
	Timeout   time.Duration // per upload, defaults to 10s
}

type Ingestor struct {
	c       ObjectPutter
	bucket  string
	folder  string
	public  string
	timeout time.Duration
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Ingestor, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errExists := client.BucketExists(ctx, cfg.Bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("make/verify bucket %s: (make: %v / exists: %v)", cfg.Bucket, err, errExists)
		}
		log.Debug().Str("bucket", cfg.Bucket).Msg("bucket already exists")
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = client.EndpointURL().String()
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient builds an ingestor over an existing client; connection settings in cfg are ignored.
func NewWithClient(c ObjectPutter, cfg Config) *Ingestor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Folder == "" {
		cfg.Folder = "wanderlust-listings"
	}
	return &Ingestor{
		c:       c,
		bucket:  cfg.Bucket,
		folder:  strings.Trim(cfg.Folder, "/"),
		public:  strings.TrimRight(cfg.PublicURL, "/"),
		timeout: cfg.Timeout,
	}
}

// Ingest streams the payload to the bucket under the listing folder. A nil upload
// is a no-op. Any upload failure is returned wrapped in domain.ErrUpload; there are
// no retries.
func (i *Ingestor) Ingest(ctx context.Context, up *domain.Upload) (*domain.Image, error) {
	if up == nil {
		return nil, nil
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrUpload)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	key := path.Join(i.folder, uuid.NewString()+strings.ToLower(filepath.Ext(up.Name)))
	ct := up.ContentType
	if ct == "" {
		ct = http.DetectContentType(up.Data)
	}

	start := time.Now()
	info, err := i.c.PutObject(ctx, i.bucket, key, bytes.NewReader(up.Data), int64(len(up.Data)), minio.PutObjectOptions{
		ContentType:  ct,
		UserMetadata: map[string]string{"original-filename": up.Name},
	})
	status := http.StatusOK
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("minio", "put_object", status, time.Since(start))
	observability.ObserveUpload(err)
	if err != nil {
		log.Error().Err(err).Str("bucket", i.bucket).Str("key", key).Msg("image upload failed")
		return nil, fmt.Errorf("%w: put %s/%s: %v", domain.ErrUpload, i.bucket, key, err)
	}

	if info.Key != "" {
		key = info.Key
	}
	log.Debug().Str("key", key).Int64("size", info.Size).Str("etag", info.ETag).Msg("image uploaded")
	return &domain.Image{
		URL:      i.public + "/" + i.bucket + "/" + key,
		Filename: key,
	}, nil
}
