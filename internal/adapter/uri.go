package adapter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/objectfs/rangecache/pkg/utils"
)

// Storage schemes
const (
	SchemeS3     = "s3"
	SchemeMemory = "mem"
)

// Location is a parsed storage URI: scheme://bucket/prefix.
type Location struct {
	Scheme string
	Bucket string
	Prefix string
}

// ParseStorageURI parses s3://bucket[/prefix] and mem://name[/prefix].
func ParseStorageURI(uri string) (Location, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("failed to parse URI: %w", err)
	}

	switch parsed.Scheme {
	case SchemeS3:
		if parsed.Host == "" {
			return Location{}, fmt.Errorf("S3 URI must include bucket name")
		}
	case SchemeMemory:
		if parsed.Host == "" {
			return Location{}, fmt.Errorf("memory URI must include a store name")
		}
	default:
		return Location{}, fmt.Errorf("unsupported storage scheme: %q (supported: s3://, mem://)", parsed.Scheme)
	}

	return Location{
		Scheme: parsed.Scheme,
		Bucket: parsed.Host,
		Prefix: strings.Trim(parsed.Path, "/"),
	}, nil
}

// Key maps a file path to an object key under the prefix.
func (l Location) Key(path string) string {
	return utils.JoinKey(l.Prefix, path)
}

func (l Location) String() string {
	if l.Prefix == "" {
		return l.Scheme + "://" + l.Bucket
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Prefix
}

// SplitObjectURI splits scheme://bucket/prefix/key into a bucket-level
// storage URI and the key, for commands that take a single object URI.
func SplitObjectURI(uri string) (string, string, error) {
	loc, err := ParseStorageURI(uri)
	if err != nil {
		return "", "", err
	}
	if loc.Prefix == "" {
		return "", "", fmt.Errorf("URI must name an object: %s", uri)
	}
	return loc.Scheme + "://" + loc.Bucket, loc.Prefix, nil
}
