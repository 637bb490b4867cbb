package storage

import "io"

// BlobStore keeps uploaded files, e.g. the original spreadsheet of every import.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
