package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	s3client "github.com/flexprice/staffdesk/internal/s3"
	"github.com/flexprice/staffdesk/internal/types"
)

const (
	defaultPresignExpiry   = 30 * time.Minute
	defaultListConcurrency = 8
	defaultMaxImageSizeMB  = 5

	recordsDir = "records"
	imagesDir  = "images"
	recordExt  = ".json"
)

// Store keeps one JSON object per record in an S3 compatible bucket and
// profile images next to them
type Store struct {
	api           s3client.API
	presigner     s3client.Presigner
	cfg           config.CloudConfig
	presignExpiry time.Duration
	maxImageBytes int
	concurrency   int
	logger        *logger.Logger
	now           func() time.Time
}

func New(api s3client.API, presigner s3client.Presigner, cfg config.CloudConfig, log *logger.Logger) *Store {
	expiry, err := time.ParseDuration(cfg.PresignExpiry)
	if err != nil || expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	concurrency := cfg.ListConcurrency
	if concurrency <= 0 {
		concurrency = defaultListConcurrency
	}
	maxMB := cfg.MaxImageSizeMB
	if maxMB <= 0 {
		maxMB = defaultMaxImageSizeMB
	}
	return &Store{
		api:           api,
		presigner:     presigner,
		cfg:           cfg,
		presignExpiry: expiry,
		maxImageBytes: maxMB << 20,
		concurrency:   concurrency,
		logger:        log,
		now:           time.Now,
	}
}

func (s *Store) recordKey(id string) string {
	return s.cfg.ObjectKey(recordsDir, id+recordExt)
}

func (s *Store) recordPrefix() string {
	return s.cfg.ObjectKey(recordsDir) + "/"
}

// List reads every record object, fetching bodies in parallel. Records are
// ordered by id, which for ULIDs is creation order.
func (s *Store) List(ctx context.Context) ([]*employee.Employee, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(s.recordPrefix()),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.storeError(ctx, err, "list")
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.HasSuffix(key, recordExt) {
				keys = append(keys, key)
			}
		}
	}

	p := pool.NewWithResults[*employee.Employee]().
		WithContext(ctx).
		WithMaxGoroutines(s.concurrency).
		WithCancelOnError()
	for _, key := range keys {
		p.Go(func(ctx context.Context) (*employee.Employee, error) {
			e, err := s.read(ctx, key)
			if s3client.IsNotFound(err) {
				// deleted between listing and reading
				return nil, nil
			}
			return e, err
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, s.storeError(ctx, err, "read")
	}

	records := lo.Compact(results)
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (s *Store) read(ctx context.Context, key string) (*employee.Employee, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	var e employee.Employee
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Record object %s is not valid JSON", key).
			Mark(ierr.ErrTransport)
	}
	return &e, nil
}

func (s *Store) write(ctx context.Context, e *employee.Employee) error {
	body, err := json.Marshal(e)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode employee").
			Mark(ierr.ErrInternal)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(s.recordKey(e.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return s.storeError(ctx, err, "put")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*employee.Employee, error) {
	if !types.IsULID(id) {
		return nil, employee.NewNotFoundError(id)
	}

	e, err := s.read(ctx, s.recordKey(id))
	if err != nil {
		if s3client.IsNotFound(err) {
			return nil, employee.NewNotFoundError(id)
		}
		return nil, s.storeError(ctx, err, "get")
	}
	return e, nil
}

func (s *Store) Create(ctx context.Context, in *employee.CreateInput) (*employee.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e := employee.NewEmployee(types.GenerateUUID(), in, s.now())
	if err := s.write(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Debugw("created employee in cloud store", "id", e.ID)
	return e, nil
}

// Update rewrites the whole object with the patch merged in
func (s *Store) Update(ctx context.Context, id string, patch *employee.Patch) (*employee.Employee, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.ApplyTo(current, s.now())
	if err := s.write(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) (*employee.Employee, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.recordKey(id)),
	})
	if err != nil {
		return nil, s.storeError(ctx, err, "delete")
	}
	return current, nil
}

// Search has no server side operators, every mode filters a full listing
func (s *Store) Search(ctx context.Context, filter *types.SearchFilter) ([]*employee.Employee, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return employee.FilterRecords(records, filter), nil
}

func (s *Store) Capabilities() employee.Capabilities {
	return employee.Capabilities{
		Backend:  types.BackendCloud,
		IDScheme: types.IDSchemeOpaque,
		Images:   true,
	}
}

// EnsureStorage creates the bucket when it does not exist
func (s *Store) EnsureStorage(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err == nil {
		s.logger.Infow("cloud storage ready", "bucket", s.cfg.Bucket, "created", false)
		return nil
	}
	if !s3client.IsNotFound(err) {
		return s.storeError(ctx, err, "head bucket")
	}

	_, err = s.api.CreateBucket(ctx, CreateBucketInput(s.cfg.Bucket, s.cfg.Region))
	if err != nil {
		return s.storeError(ctx, err, "create bucket")
	}

	s.logger.Infow("cloud storage ready", "bucket", s.cfg.Bucket, "created", true)
	return nil
}

// CreateBucketInput builds the bucket request; us-east-1 takes no location constraint
func CreateBucketInput(bucket, region string) *s3.CreateBucketInput {
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != "" && region != "us-east-1" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}
	return in
}

func (s *Store) storeError(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return ierr.WithError(err).
			WithHint("Request was cancelled").
			Mark(ierr.ErrCancelled)
	}
	if ierr.IsTransport(err) {
		return err
	}
	return ierr.WithError(err).
		WithHint("Cloud storage request failed").
		WithReportableDetails(map[string]any{"operation": op, "bucket": s.cfg.Bucket}).
		Mark(ierr.ErrTransport)
}
