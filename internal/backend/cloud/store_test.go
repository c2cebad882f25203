package cloud

import (
	"context"
	"strings"
	"testing"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/testutil"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/stretchr/testify/suite"
)

var testConfig = config.CloudConfig{
	Bucket:          "staffdesk",
	KeyPrefix:       "hr",
	Region:          "eu-west-1",
	ListConcurrency: 3,
}

// smallest valid PNG: signature plus IHDR header is enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

type CloudRepositorySuite struct {
	testutil.RepositorySuite
}

func TestCloudRepository(t *testing.T) {
	suite.Run(t, new(CloudRepositorySuite))
}

func (s *CloudRepositorySuite) SetupTest() {
	s.Ctx = testutil.SetupContext()
	s.NewRepo = func() employee.Repository {
		return New(newFakeS3(), fakePresigner{}, testConfig, logger.NewNopLogger())
	}
}

type CloudStoreSuite struct {
	suite.Suite
	ctx   context.Context
	fake  *fakeS3
	store *Store
}

func TestCloudStore(t *testing.T) {
	suite.Run(t, new(CloudStoreSuite))
}

func (s *CloudStoreSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.fake = newFakeS3()
	s.store = New(s.fake, fakePresigner{}, testConfig, logger.NewNopLogger())
}

func (s *CloudStoreSuite) TestRecordsAreJSONObjectsUnderPrefix() {
	e, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Jane", Email: "jane@x.com"})
	s.Require().NoError(err)
	s.True(types.IsULID(e.ID))

	s.Equal([]string{"hr/records/" + e.ID + ".json"}, s.fake.keys())
}

func (s *CloudStoreSuite) TestListIsOrderedAndPaginated() {
	var ids []string
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		e, err := s.store.Create(s.ctx, &employee.CreateInput{Name: name, Email: strings.ToLower(name) + "@x.com"})
		s.Require().NoError(err)
		ids = append(ids, e.ID)
	}

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 5)
	for i, r := range records {
		s.Equal(ids[i], r.ID)
	}
	s.Equal(3, s.fake.listCalls)
}

func (s *CloudStoreSuite) TestListSkipsImages() {
	_, err := s.store.Create(s.ctx, &employee.CreateInput{Name: "Jane", Email: "jane@x.com"})
	s.Require().NoError(err)
	_, err = s.store.UploadImage(s.ctx, pngBytes, "me.png")
	s.Require().NoError(err)

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *CloudStoreSuite) TestImageLifecycle() {
	fileID, err := s.store.UploadImage(s.ctx, pngBytes, "avatar.bin")
	s.Require().NoError(err)
	s.True(strings.HasSuffix(fileID, ".png"))

	url, err := s.store.ImageURL(s.ctx, fileID)
	s.Require().NoError(err)
	s.Contains(url, "staffdesk/hr/images/"+fileID)
	s.Contains(url, "expires=30m0s")

	s.Require().NoError(s.store.DeleteImage(s.ctx, fileID))

	_, err = s.store.ImageURL(s.ctx, fileID)
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *CloudStoreSuite) TestUploadRejectsNonImages() {
	_, err := s.store.UploadImage(s.ctx, []byte("%PDF-1.4 not an image"), "cv.png")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.store.UploadImage(s.ctx, nil, "empty.png")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CloudStoreSuite) TestImageIDIsValidated() {
	_, err := s.store.ImageURL(s.ctx, "../records/x.json")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *CloudStoreSuite) TestEnsureStorageCreatesBucket() {
	s.fake.bucketExists = false

	s.Require().NoError(s.store.EnsureStorage(s.ctx))
	s.True(s.fake.bucketExists)
	s.Require().NotNil(s.fake.createdBucket)
	s.Equal("eu-west-1", string(s.fake.createdBucket.CreateBucketConfiguration.LocationConstraint))
}

func (s *CloudStoreSuite) TestCapabilities() {
	caps := s.store.Capabilities()
	s.Equal(types.IDSchemeOpaque, caps.IDScheme)
	s.True(caps.Images)
	s.Empty(caps.NativeSearch)
}
