package cloud

import (
	"bytes"
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"

	ierr "github.com/flexprice/staffdesk/internal/errors"
	s3client "github.com/flexprice/staffdesk/internal/s3"
	"github.com/flexprice/staffdesk/internal/types"
)

// image ids are a ULID followed by the sniffed extension
var imageIDPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}\.[a-z0-9]{2,5}$`)

func (s *Store) imageKey(fileID string) string {
	return s.cfg.ObjectKey(imagesDir, fileID)
}

func validImageID(fileID string) error {
	if !imageIDPattern.MatchString(fileID) {
		return ierr.NewErrorf("invalid image id %q", fileID).
			WithHint("Image not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// UploadImage stores an image and returns its file id. The content type is
// taken from the bytes, never from the file name.
func (s *Store) UploadImage(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ierr.NewError("empty upload").
			WithHint("Image file is empty").
			Mark(ierr.ErrValidation)
	}
	if len(data) > s.maxImageBytes {
		return "", ierr.NewErrorf("image is %d bytes", len(data)).
			WithHintf("Image must be at most %d MB", s.maxImageBytes>>20).
			Mark(ierr.ErrValidation)
	}

	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return "", ierr.NewErrorf("upload %q is not an image", filename).
			WithHint("Only image files can be uploaded").
			WithReportableDetails(map[string]any{"filename": filename, "detected": kind.MIME.Value}).
			Mark(ierr.ErrValidation)
	}

	fileID := types.GenerateUUID() + "." + kind.Extension
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(s.imageKey(fileID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
		Metadata:    map[string]string{"original-filename": filename},
	})
	if err != nil {
		return "", s.storeError(ctx, err, "upload image")
	}

	s.logger.Debugw("uploaded image", "file_id", fileID, "content_type", kind.MIME.Value, "size", len(data))
	return fileID, nil
}

// ImageURL returns a presigned GET URL for an existing image
func (s *Store) ImageURL(ctx context.Context, fileID string) (string, error) {
	if err := s.imageExists(ctx, fileID); err != nil {
		return "", err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.imageKey(fileID)),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to get presigned url").
			WithMessagef("bucket:%s, key:%s", s.cfg.Bucket, s.imageKey(fileID)).
			Mark(ierr.ErrTransport)
	}
	return req.URL, nil
}

func (s *Store) DeleteImage(ctx context.Context, fileID string) error {
	if err := s.imageExists(ctx, fileID); err != nil {
		return err
	}

	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.imageKey(fileID)),
	})
	if err != nil {
		return s.storeError(ctx, err, "delete image")
	}
	return nil
}

func (s *Store) imageExists(ctx context.Context, fileID string) error {
	if err := validImageID(fileID); err != nil {
		return err
	}

	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.imageKey(fileID)),
	})
	if err != nil {
		if s3client.IsNotFound(err) {
			return ierr.WithError(err).
				WithHint("Image not found").
				WithReportableDetails(map[string]any{"file_id": fileID}).
				Mark(ierr.ErrNotFound)
		}
		return s.storeError(ctx, err, "head image")
	}
	return nil
}
