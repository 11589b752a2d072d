package minioctrl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AttachmentsBucket stores files uploaded to wiki articles. Object keys are
// "<team-id>/<article-id>/<filename>" so article listings are one prefix
// scan and tenancy is part of the key.
const AttachmentsBucket = "article-attachments"

// Attachment describes one stored file
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type MinioService struct {
	client *minio.Client
}

func NewMinioService(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinioService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %v", err)
	}

	return &MinioService{
		client: client,
	}, nil
}

func (s *MinioService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, AttachmentsBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, AttachmentsBucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return nil
}

func (s *MinioService) PutAttachment(ctx context.Context, teamID, articleID, filename, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, AttachmentsBucket, objectKey(teamID, articleID, filename), reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put attachment: %v", err)
	}

	return nil
}

func (s *MinioService) GetAttachment(ctx context.Context, teamID, articleID, filename string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, AttachmentsBucket, objectKey(teamID, articleID, filename), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %v", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment data: %v", err)
	}

	return data, nil
}

func (s *MinioService) ListAttachments(ctx context.Context, teamID, articleID string) ([]Attachment, error) {
	prefix := teamID + "/" + articleID + "/"

	var attachments []Attachment
	for info := range s.client.ListObjects(ctx, AttachmentsBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list attachments: %v", info.Err)
		}
		attachments = append(attachments, Attachment{
			Name: strings.TrimPrefix(info.Key, prefix),
			Size: info.Size,
		})
	}

	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].Name < attachments[j].Name
	})

	return attachments, nil
}

func (s *MinioService) DeleteAttachment(ctx context.Context, teamID, articleID, filename string) error {
	err := s.client.RemoveObject(ctx, AttachmentsBucket, objectKey(teamID, articleID, filename), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %v", err)
	}

	return nil
}

func objectKey(teamID, articleID, filename string) string {
	return teamID + "/" + articleID + "/" + filename
}
