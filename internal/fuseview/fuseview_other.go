//go:build !linux
// +build !linux

package fuseview

import (
	"context"
	"fmt"

	"github.com/ipxeusb/vdisk/internal/vfat"
)

func Mount(ctx context.Context, mountpoint string, fs *vfat.Filesystem) error {
	return fmt.Errorf("fuseview: FUSE mount is only supported on Linux")
}
