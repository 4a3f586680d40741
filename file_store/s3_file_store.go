package file_store

import (
	"context"
	"net/url"
	"strings"

	Logger "github.com/Luismorlan/storagepath/utils/log"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	DefaultS3Region = "us-west-1"
)

type S3FileStore struct {
	storeHooks
	bucket     string
	urlPrefix  string
	uploader   *s3manager.Uploader
	svc        s3iface.S3API
	httpClient *retryablehttp.Client
}

// NewS3FileStore creates a store whose objects are served under urlPrefix,
// usually a CloudFront distribution in front of the bucket
func NewS3FileStore(bucket, region, urlPrefix string) (*S3FileStore, error) {
	if region == "" {
		region = DefaultS3Region
	}
	// AWS client session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return newS3FileStoreWithClient(bucket, urlPrefix, s3.New(sess)), nil
}

func newS3FileStoreWithClient(bucket, urlPrefix string, svc s3iface.S3API) *S3FileStore {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix = urlPrefix + "/"
	}
	return &S3FileStore{
		storeHooks: defaultHooks(),
		bucket:     bucket,
		urlPrefix:  urlPrefix,
		uploader:   s3manager.NewUploaderWithClient(svc),
		svc:        svc,
		httpClient: newFetchClient(),
	}
}

// If url key existed, just return the existing key without update file
func (s *S3FileStore) FetchAndStore(url, fileName string) (key string, err error) {
	eventualUrl := s.processUrlBeforeFetchFunc(url)
	key, err = s.GenerateKeyFromUrl(url, fileName)
	if err != nil {
		return "", err
	}

	if s.IsKeyExisted(key) {
		return key, nil
	}

	body, contentType, err := fetch(s.httpClient, eventualUrl)
	if err != nil {
		Logger.Log.Warn("Fail to download file from url:", eventualUrl, "err:", err)
		return "", err
	}
	defer body.Close()

	input := &s3manager.UploadInput{
		ACL:    aws.String("public-read"),
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	// Upload the file to S3.
	if _, err = s.uploader.Upload(input); err != nil {
		return "", errors.Wrapf(err, "fail to upload %s to bucket %s", key, s.bucket)
	}
	return key, nil
}

func (s *S3FileStore) IsKeyExisted(key string) bool {
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

func (s *S3FileStore) GetUrlFromKey(key string) string {
	if s.customizeUploadedUrlFunc != nil {
		return s.customizeUploadedUrlFunc(key)
	}
	return s.urlPrefix + url.PathEscape(key)
}

func (s *S3FileStore) GetKeyFromUrl(rawUrl string) (string, bool) {
	if !strings.HasPrefix(rawUrl, s.urlPrefix) {
		return "", false
	}
	escaped := strings.TrimPrefix(rawUrl, s.urlPrefix)
	if i := strings.IndexAny(escaped, "?#"); i >= 0 {
		escaped = escaped[:i]
	}
	key, err := url.PathUnescape(escaped)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// DeleteByUrl deletes the object the cdn url points at. S3 doesn't report
// missing keys on delete.
func (s *S3FileStore) DeleteByUrl(ctx context.Context, rawUrl string) error {
	key, ok := s.GetKeyFromUrl(rawUrl)
	if !ok {
		return ErrKeyNotExtractable
	}
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "fail to delete %s from bucket %s", key, s.bucket)
	}
	return nil
}

func (s *S3FileStore) CleanUp() {
	// do nothing for s3
}
