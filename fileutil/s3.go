package fileutil

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sentiml/sentiml/errors"
)

var s3Region = regionDefault()

func regionDefault() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return "us-west-1"
}

// IsS3URI returns true if the path is an s3 uri.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", errors.Wrapf(err, "invalid s3 uri %s", uri)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.Errorf("invalid s3 uri %s", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func newS3Client() (*s3.S3, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return s3.New(sess, aws.NewConfig().WithRegion(s3Region)), nil
}

func newS3Reader(uri string) (io.ReadCloser, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client()
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(&s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting %s", uri)
	}
	return out.Body, nil
}

func listS3Dir(uri string) ([]string, error) {
	bucket, prefix, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client()
	if err != nil {
		return nil, err
	}

	var paths []string
	input := &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	}
	err = client.ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			paths = append(paths, Join("s3://", bucket, *obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error listing %s", uri)
	}
	return paths, nil
}

// bufferedS3Writer buffers writes in memory and uploads the object on Close.
type bufferedS3Writer struct {
	uri string
	buf bytes.Buffer
}

func newBufferedS3Writer(uri string) (NamedWriteCloser, error) {
	if _, _, err := parseS3URI(uri); err != nil {
		return nil, err
	}
	return &bufferedS3Writer{uri: uri}, nil
}

func (w *bufferedS3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *bufferedS3Writer) Name() string {
	return w.uri
}

func (w *bufferedS3Writer) Close() error {
	bucket, key, err := parseS3URI(w.uri)
	if err != nil {
		return err
	}

	client, err := newS3Client()
	if err != nil {
		return err
	}

	_, err = client.PutObject(&s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return errors.Wrapf(err, "error putting %s", w.uri)
	}
	return nil
}
