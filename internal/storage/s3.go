package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ai-judge/internal/schemas"
)

// presigned GET URLs cannot outlive seven days with SigV4
const downloadURLTTL = 7 * 24 * time.Hour

type Options struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	// PublicURL, when set, prefixes download URLs instead of presigning them.
	PublicURL string
}

type Client struct {
	s3        *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	now       func() time.Time
}

func New(ctx context.Context, opts Options) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	endpoint := opts.Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})
	return &Client{
		s3:        cli,
		presign:   s3.NewPresignClient(cli),
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

// AttachmentID derives a stable id from the owning submission, the filename
// and the upload time, so repeated uploads of one file never collide.
func AttachmentID(submissionID, filename string, uploadedAt int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", submissionID, filename, uploadedAt)))
	return hex.EncodeToString(sum[:])[:24]
}

func objectKey(submissionID, attachmentID, filename string) string {
	return fmt.Sprintf("attachments/%s/%s%s", submissionID, attachmentID, strings.ToLower(path.Ext(filename)))
}

// Put uploads one attachment and returns its record with a download URL.
func (c *Client) Put(ctx context.Context, submissionID, filename, contentType string, body io.Reader) (*schemas.Attachment, error) {
	uploadedAt := c.now().UnixMilli()
	id := AttachmentID(submissionID, filename, uploadedAt)
	key := objectKey(submissionID, id, filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	url, err := c.DownloadURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &schemas.Attachment{
		ID:          id,
		Filename:    filename,
		StoragePath: fmt.Sprintf("s3://%s/%s", c.bucket, key),
		DownloadURL: url,
		ContentType: contentType,
		UploadedAt:  uploadedAt,
	}, nil
}

// Delete removes the object behind an attachment returned by Put.
func (c *Client) Delete(ctx context.Context, att schemas.Attachment) error {
	prefix := fmt.Sprintf("s3://%s/", c.bucket)
	if !strings.HasPrefix(att.StoragePath, prefix) {
		return fmt.Errorf("attachment %s is not stored in bucket %s", att.ID, c.bucket)
	}
	key := strings.TrimPrefix(att.StoragePath, prefix)
	if _, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &c.bucket, Key: &key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) DownloadURL(ctx context.Context, key string) (string, error) {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, key), nil
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(downloadURLTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
