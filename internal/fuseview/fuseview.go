//go:build linux
// +build linux

// Package fuseview mounts a vfat.Filesystem read-only through bazil.org/fuse
// so a developer can `ls`/`cat` the synthesised disk's contents directly,
// without a USB host. It walks vfat.Filesystem's declarative entry tree
// rather than a flat list of (name, offset, size) tuples from a disk image.
package fuseview

import (
	"context"
	"os"
	"sort"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/ipxeusb/vdisk/internal/vfat"
	fsutil "github.com/ipxeusb/vdisk/pkg/util/os"
)

// Mount serves fs's contents at mountpoint until the process receives an
// interrupt or the context is cancelled.
func Mount(ctx context.Context, mountpoint string, fs *vfat.Filesystem) error {
	created, err := fsutil.EnsureDir(mountpoint, true)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint)
	if err != nil {
		return err
	}
	defer c.Close()

	root := &dir{fs: fs, path: ""}
	srv := fusefs.New(c, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(root) }()

	select {
	case <-ctx.Done():
		return fuse.Unmount(mountpoint)
	case err := <-errCh:
		return err
	}
}

// dir implements fs.Node and fs.HandleReadDirAller over the slice of
// VisibleEntry whose path is a direct child of d.path.
type dir struct {
	fs   *vfat.Filesystem
	path string
}

func (d *dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *dir) children() []vfat.VisibleEntry {
	var out []vfat.VisibleEntry
	for _, e := range d.fs.Walk() {
		if parentOf(e.Path) == d.path {
			out = append(out, e)
		}
	}
	return out
}

func (d *dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	for _, e := range d.children() {
		if baseName(e.Path) != name {
			continue
		}
		if e.IsDirectory {
			return &dir{fs: d.fs, path: e.Path}, nil
		}
		return &file{fs: d.fs, path: e.Path, size: e.Size}, nil
	}
	return nil, fuse.ENOENT
}

func (d *dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	children := d.children()
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })

	out := make([]fuse.Dirent, len(children))
	for i, e := range children {
		typ := fuse.DT_File
		if e.IsDirectory {
			typ = fuse.DT_Dir
		}
		out[i] = fuse.Dirent{Inode: uint64(i + 1), Name: baseName(e.Path), Type: typ}
	}
	return out, nil
}

// file implements fs.Node and fs.HandleReader by reading the full content
// of the virtual file once per Read call (debug tooling, not the hot read
// path — the SCSI layer never goes through this package).
type file struct {
	fs   *vfat.Filesystem
	path string
	size uint32
}

func (f *file) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.size)
	a.Mtime = time.Unix(0, 0)
	return nil
}

func (f *file) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		return err
	}

	offset := req.Offset
	if offset >= int64(len(data)) {
		resp.Data = []byte{}
		return nil
	}

	end := offset + int64(req.Size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	resp.Data = data[offset:end]
	return nil
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
