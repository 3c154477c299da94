// Package recordio implements the shard format used between pipeline stages:
// length-delimited key/value records packed into snappy-compressed blocks.
package recordio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/golang/snappy"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
)

const defaultBlockSize = 1 << 18 // 256k

// Writer writes key/value records into snappy-compressed blocks.
type Writer struct {
	bs  int
	w   io.Writer
	buf bytes.Buffer
}

// NewWriter creates a Writer with the default block size.
func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, defaultBlockSize)
}

// NewWriterSize creates a Writer with the provided block size.
func NewWriterSize(w io.Writer, bs int) *Writer {
	return &Writer{w: w, bs: bs}
}

// Emit writes a single record.
func (w *Writer) Emit(key string, value []byte) error {
	var hdr [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(hdr[:], uint64(len(key)))
	w.buf.Write(hdr[:n])
	w.buf.WriteString(key)

	n = binary.PutUvarint(hdr[:], uint64(len(value)))
	w.buf.Write(hdr[:n])
	w.buf.Write(value)

	if w.buf.Len() >= w.bs {
		return w.flush()
	}
	return nil
}

// Close flushes any buffered records. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.buf.Len() > 0 {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	comp := snappy.Encode(nil, w.buf.Bytes())
	w.buf.Reset()

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(comp)))
	if _, err := w.w.Write(hdr[:]); err != nil {
		return errors.Wrapf(err, "error writing block header")
	}
	if _, err := w.w.Write(comp); err != nil {
		return errors.Wrapf(err, "error writing block")
	}
	return nil
}

// Reader reads records written by Writer. Read returns io.EOF after the last
// record.
type Reader struct {
	r     io.Reader
	block *bytes.Reader
}

// NewReader creates a Reader that reads records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read returns the next record, or io.EOF.
func (r *Reader) Read() (string, []byte, error) {
	if r.block == nil || r.block.Len() == 0 {
		if err := r.nextBlock(); err != nil {
			return "", nil, err
		}
	}

	keyLen, err := binary.ReadUvarint(r.block)
	if err != nil {
		return "", nil, errors.Wrapf(err, "error reading key length")
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r.block, key); err != nil {
		return "", nil, errors.Wrapf(err, "error reading key")
	}

	valLen, err := binary.ReadUvarint(r.block)
	if err != nil {
		return "", nil, errors.Wrapf(err, "error reading value length")
	}
	value := make([]byte, valLen)
	if _, err := io.ReadFull(r.block, value); err != nil {
		return "", nil, errors.Wrapf(err, "error reading value")
	}

	return string(key), value, nil
}

func (r *Reader) nextBlock() error {
	var hdr [4]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return errors.Wrapf(err, "error reading block header")
	}

	comp := make([]byte, binary.BigEndian.Uint32(hdr[:]))
	if _, err := io.ReadFull(r.r, comp); err != nil {
		return errors.Wrapf(err, "error reading block")
	}

	dec, err := snappy.Decode(nil, comp)
	if err != nil {
		return errors.Wrapf(err, "error decompressing block")
	}
	r.block = bytes.NewReader(dec)
	return nil
}

// Iterator provides a Next/Key/Value interface over a record stream.
type Iterator struct {
	r     *Reader
	key   string
	value []byte
	err   error
}

// NewIterator creates an Iterator reading from r.
func NewIterator(r io.Reader) *Iterator {
	return &Iterator{r: NewReader(r)}
}

// Next advances to the next record, returning false at the end of the stream
// or on error.
func (it *Iterator) Next() bool {
	key, value, err := it.r.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		it.err = err
		return false
	}
	it.key = key
	it.value = value
	return true
}

// Key returns the key of the current record.
func (it *Iterator) Key() string { return it.key }

// Value returns the value of the current record.
func (it *Iterator) Value() []byte { return it.value }

// Err returns the first error encountered, if any.
func (it *Iterator) Err() error { return it.err }

// ShardName returns the canonical file name for the i-th shard.
func ShardName(i int) string {
	return fmt.Sprintf("part-%05d", i)
}

// Shards lists the part-* shard files under dir in order. The dir may be
// local or an s3:// URI.
func Shards(dir string) ([]string, error) {
	entries, err := fileutil.ListDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing shards in %s", dir)
	}

	var shards []string
	for _, entry := range entries {
		if strings.HasPrefix(fileutil.Base(entry), "part-") {
			shards = append(shards, entry)
		}
	}
	sort.Strings(shards)

	if len(shards) == 0 {
		return nil, errors.Errorf("no part-* shards found in %s", dir)
	}
	return shards, nil
}
