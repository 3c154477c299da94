package fileutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sentiml/sentiml/errors"
)

// NewReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3, if it
// looks like "http(s)://..." it will be fetched over HTTP. Otherwise, this
// will read a path from the local filesystem.
func NewReader(path string) (io.ReadCloser, error) {
	if IsS3URI(path) {
		return newS3Reader(path)
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("error getting %s: %s", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			io.Copy(ioutil.Discard, resp.Body)
			return nil, errors.Errorf("error getting %s: status code %d", path, resp.StatusCode)
		}
		return resp.Body, nil
	}

	return os.Open(path)
}

// NamedWriteCloser is a file-like object extending io.WriteCloser with a
// string Name() similar to os.File.Name()
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// NewBufferedWriter opens a local or remote path for writing. If the path
// starts with "s3://", then this will write to a local buffer, copying to s3
// on close. Otherwise, this will write to the local FS.
func NewBufferedWriter(path string) (NamedWriteCloser, error) {
	if IsS3URI(path) {
		return newBufferedS3Writer(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// ReadFile reads the contents of a local or remote path.
func ReadFile(path string) ([]byte, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFile writes data to a local or remote path.
func WriteFile(path string, data []byte) (err error) {
	w, err := NewBufferedWriter(path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, w.Close)

	_, err = w.Write(data)
	return err
}

// ListDir returns the fully qualified names for the members of the provided
// directory. If the directory is local these will simply be the paths, if the
// directory is on s3 then these will be s3:// URIs. The results are intended
// to be used in conjunction with NewReader.
func ListDir(path string) ([]string, error) {
	if IsS3URI(path) {
		return listS3Dir(path)
	}

	entries, err := ioutil.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dir %s: %v", path, err)
	}

	var paths []string
	for _, entry := range entries {
		paths = append(paths, Join(path, entry.Name()))
	}
	return paths, nil
}

// Exists returns true if the local path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ClearDir removes the directory and everything under it, then recreates it
// empty. Destructive: any previous stage output under path is lost.
func ClearDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "unable to clear %s", path)
	}
	return os.MkdirAll(path, 0755)
}

// CopyDir recursively copies the local directory src into dst.
func CopyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		return ioutil.WriteFile(target, data, info.Mode())
	})
}
