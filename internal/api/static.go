package api

import (
	"io/fs"

	"github.com/go-git/go-billy/v5"
)

// billyFS serves regular files of a billy filesystem through io/fs.
// Directories are reported as missing, so nothing is ever listed.
type billyFS struct {
	fs billy.Filesystem
}

func (b billyFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return billyFile{File: f, info: info}, nil
}

type billyFile struct {
	billy.File
	info fs.FileInfo
}

func (f billyFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}
