// Package dto provides data transfer objects shared by the listing engine.
package dto

import "time"

// ObjectRecord is the metadata of a single object returned by a listing run.
// Records are immutable once produced; '/' delimits virtual path segments in Key.
type ObjectRecord struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
	StorageClass string    `json:"storageClass"`
}

// Bucket represents an S3 bucket.
type Bucket struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creationDate"`
}

// Page is one page of object metadata returned by the store gateway.
type Page struct {
	Records []ObjectRecord

	// NextToken resumes enumeration on the following call.
	// Empty when HasMore is false.
	NextToken string

	// HasMore indicates the store reported more data after this page.
	HasMore bool
}
