package filesystem

import (
	"os"
	"path"
	"time"

	"github.com/objectfs/rangecache/pkg/types"
)

// FileInfo describes a file, similar to os.FileInfo with object metadata.
type FileInfo struct {
	Name_    string
	Size_    int64
	Mode_    os.FileMode
	ModTime_ time.Time

	Key         string
	ETag        string
	ContentType string
}

func (fi FileInfo) Name() string       { return fi.Name_ }
func (fi FileInfo) Size() int64        { return fi.Size_ }
func (fi FileInfo) Mode() os.FileMode  { return fi.Mode_ }
func (fi FileInfo) ModTime() time.Time { return fi.ModTime_ }
func (fi FileInfo) IsDir() bool        { return false }
func (fi FileInfo) Sys() interface{}   { return nil }

var _ os.FileInfo = FileInfo{}

// InfoFromObject builds a FileInfo from backend metadata.
func InfoFromObject(info *types.ObjectInfo) FileInfo {
	return FileInfo{
		Name_:       path.Base(info.Key),
		Size_:       info.Size,
		Mode_:       0644,
		ModTime_:    info.LastModified,
		Key:         info.Key,
		ETag:        info.ETag,
		ContentType: info.ContentType,
	}
}
