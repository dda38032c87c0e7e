package services

import (
	"context"
	"fmt"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignTTL = 5 * time.Minute

// PhotoService handles photo attachments on memories. Uploads go straight to
// S3 through pre-signed URLs; only the photo record lives in the database.
type PhotoService struct {
	photos   PhotoStore
	memories MemoryStore
	users    UserStore
	s3Client *s3.Client
	s3Bucket string
	region   string
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photos PhotoStore,
	memories MemoryStore,
	users UserStore,
	region, bucket, accessKey, secretKey, endpoint string,
) (*PhotoService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &PhotoService{
		photos:   photos,
		memories: memories,
		users:    users,
		s3Client: s3Client,
		s3Bucket: bucket,
		region:   region,
	}, nil
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PhotoID   string `json:"photo_id"`
	ExpiresIn int    `json:"expires_in"`
}

// AttachPhoto creates a photo record for a memory and returns a pre-signed
// upload URL. Only the memory's owner may attach.
func (s *PhotoService) AttachPhoto(ctx context.Context, userID, memoryID, contentType string) (*UploadResponse, error) {
	m, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != userID {
		return nil, ErrForbidden
	}

	photoID := uuid.New().String()
	s3Key := fmt.Sprintf("%s/%s.jpg", memoryID, photoID)

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(s3Key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignTTL
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	photo := &models.Photo{
		ID:        photoID,
		MemoryID:  memoryID,
		OwnerID:   userID,
		S3URL:     fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.region, s3Key),
		CreatedAt: time.Now(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PhotoID:   photoID,
		ExpiresIn: int(presignTTL.Seconds()),
	}, nil
}

// ListPhotos returns a memory's photos. The owner always may list; the
// partner only when the memory is shared.
func (s *PhotoService) ListPhotos(ctx context.Context, userID, memoryID string) ([]*models.Photo, error) {
	m, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return nil, err
	}

	if m.OwnerID != userID {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		partnerOfOwner := user.PartnerID != nil && *user.PartnerID == m.OwnerID
		if !partnerOfOwner || !m.IsShared {
			return nil, ErrForbidden
		}
	}

	return s.photos.ListByMemory(ctx, memoryID)
}
