package files

import (
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ConnectionInfo struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// Resolver выдает временные ссылки на файлы документов в S3-хранилище.
// Банк скачивает документы по этим ссылкам из payload.
type Resolver struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewResolver(info ConnectionInfo) (*Resolver, error) {
	client, err := minio.New(info.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(info.AccessKey, info.SecretKey, ""),
		Secure: info.UseSSL,
		Region: info.Region,
	})
	if err != nil {
		return nil, err
	}
	return &Resolver{client: client, bucket: info.Bucket, ttl: 24 * time.Hour}, nil
}

func (r *Resolver) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// URL возвращает подписанную ссылку на объект или пустую строку,
// если ключ не задан.
func (r *Resolver) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, key, r.ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
