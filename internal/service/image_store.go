package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImageStore keeps meal photos. Entries refer to a photo by the key Put returns.
type ImageStore interface {
	Put(ctx context.Context, userID string, data []byte, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
}

type s3ImageStore struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

func NewS3ImageStore(s3Client *s3.Client, bucketName string, logger zerolog.Logger) ImageStore {
	return &s3ImageStore{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "ImageStore").Logger(),
	}
}

func imageKey(userID, contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	}
	return fmt.Sprintf("meals/%s/%s%s", userID, uuid.NewString(), ext)
}

func (s *s3ImageStore) Put(ctx context.Context, userID string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := imageKey(userID, contentType)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("object_key", key).Msg("Failed to upload meal photo")
		return "", fmt.Errorf("failed to upload meal photo: %w", err)
	}
	return key, nil
}

func (s *s3ImageStore) PresignedURL(ctx context.Context, key string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("object_key", key).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}
