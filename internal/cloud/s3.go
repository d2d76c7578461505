package cloud

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DetectionArchive stores uploaded detection images in S3.
type DetectionArchive struct {
	svc    s3Putter
	bucket string
	now    func() time.Time
}

func NewDetectionArchive(cfg aws.Config, bucket string) (*DetectionArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket: %w", ErrNotConfigured)
	}
	return &DetectionArchive{svc: s3.NewFromConfig(cfg), bucket: bucket, now: time.Now}, nil
}

// ObjectKey is detections/<intersection>/<yyyy>/<mm>/<dd>/<request id><ext>.
func ObjectKey(intersectionID, requestID, filename string, at time.Time) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	return path.Join("detections", intersectionID, at.UTC().Format("2006/01/02"), requestID+ext)
}

func (a *DetectionArchive) ArchiveImage(ctx context.Context, requestID string, req domain.CommandRequest) (string, error) {
	if req.Image == nil {
		return "", fmt.Errorf("archive %s: no image", requestID)
	}
	at := a.now()
	key := ObjectKey(req.IntersectionID, requestID, req.Image.Filename, at)

	contentType := req.Image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(req.Image.Data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-at":     at.Format(time.RFC3339),
			"intersection-id": req.IntersectionID,
			"direction":       string(req.Direction),
		},
	}

	if _, err := a.svc.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}
