package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Supported location schemes.
const (
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
	SchemeFile = "file"
)

// Location is a parsed table or partition location such as "s3://bucket/warehouse/dim_tempo".
type Location struct {
	Scheme string
	Bucket string
	// Prefix is the object key prefix without leading or trailing slashes.
	Prefix string
}

// ParseLocation parses a storage URI. "s3a" and "s3n" are accepted as aliases of "s3".
// For "file" URIs the host is the bucket directory below the local adapter's base_dir.
func ParseLocation(uri string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return Location{}, fmt.Errorf("invalid location '%s': %w", uri, err)
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case SchemeS3, "s3a", "s3n":
		scheme = SchemeS3
	case SchemeGCS, SchemeFile:
	default:
		return Location{}, fmt.Errorf("unsupported location scheme '%s' in '%s'", u.Scheme, uri)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("location '%s' has no bucket", uri)
	}
	return Location{
		Scheme: scheme,
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// StorageType maps the scheme to the storage provider type serving it.
func (l Location) StorageType() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3"
	case SchemeGCS:
		return "gcs"
	case SchemeFile:
		return "local"
	}
	return ""
}

// Key joins parts below the location prefix into an object key.
func (l Location) Key(parts ...string) string {
	return path.Join(append([]string{l.Prefix}, parts...)...)
}

// Child returns the location of a sub-path.
func (l Location) Child(parts ...string) Location {
	c := l
	c.Prefix = strings.Trim(l.Key(parts...), "/")
	return c
}

// DirPrefix returns the prefix with a trailing slash, suitable for listing a directory.
func (l Location) DirPrefix() string {
	if l.Prefix == "" {
		return ""
	}
	return l.Prefix + "/"
}

// String renders the location as a URI.
func (l Location) String() string {
	if l.Prefix == "" {
		return fmt.Sprintf("%s://%s", l.Scheme, l.Bucket)
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Prefix)
}
