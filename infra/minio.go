package infra

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/auroramedia/gramflow/config"
)

// MinioClient stores uploaded media and serves it on a public URL the Graph
// API can fetch. The admin client backs the health endpoint's storage probe.
type MinioClient struct {
	Admin      *madmin.AdminClient
	Client     *minio.Client
	Endpoint   string
	Bucket     string
	PublicBase string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}

	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, false)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: false,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	client := &MinioClient{
		Admin:      madminClient,
		Client:     minioClient,
		Endpoint:   endpoint,
		Bucket:     cfg.Minio.MediaBucket,
		PublicBase: cfg.Minio.PublicBase,
	}

	if err := client.ensureMediaBucket(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to prepare media bucket: %v", err))
	}

	return client
}

// ensureMediaBucket creates the media bucket on first start and opens it for
// anonymous reads. The publish flow hands the object URL to the Graph API,
// which fetches it unauthenticated.
func (m *MinioClient) ensureMediaBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check media bucket: %w", err)
	}
	if !exists {
		if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create media bucket: %w", err)
		}
	}

	policy := fmt.Sprintf(`{
	"Version": "2012-10-17",
	"Statement": [
		{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}
	]
}`, m.Bucket)

	if err := m.Client.SetBucketPolicy(ctx, m.Bucket, policy); err != nil {
		return fmt.Errorf("failed to set media bucket policy: %w", err)
	}
	return nil
}

// StoreMedia writes one uploaded file into the media bucket.
func (m *MinioClient) StoreMedia(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store media object %s: %w", objectName, err)
	}
	return nil
}

// PublicURL returns the URL the stored object is reachable on from outside.
func (m *MinioClient) PublicURL(objectName string) string {
	if m.PublicBase != "" {
		return fmt.Sprintf("%s/%s/%s", m.PublicBase, m.Bucket, objectName)
	}
	return fmt.Sprintf("http://%s/%s/%s", m.Endpoint, m.Bucket, objectName)
}

// StorageHealthy probes the MinIO deployment through the admin API.
func (m *MinioClient) StorageHealthy(ctx context.Context) error {
	_, err := m.Admin.ServerInfo(ctx)
	return err
}
