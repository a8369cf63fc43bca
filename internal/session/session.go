// Package session wires the virtual filesystem, SCSI target, and USB MSC
// BOT state machine together for the lifetime of one "start USB" action:
// a single worker goroutine owns all three and processes at most one
// endpoint event per iteration, woken by a wait-any over Exit/Reset/RxTx
// signals.
package session

import (
	"github.com/ipxeusb/vdisk/internal/bootscript"
	"github.com/ipxeusb/vdisk/internal/config"
	"github.com/ipxeusb/vdisk/internal/scsi"
	"github.com/ipxeusb/vdisk/internal/usbmsc"
	"github.com/ipxeusb/vdisk/internal/vfat"
)

// CurrentFileObserver receives the display name of a virtual file the first
// time any of its sectors is read. It is the UI-facing "current file" signal,
// implemented here as an ordinary callback invoked from the worker
// goroutine — callers needing cross-goroutine visibility should have it
// write to an atomic value themselves.
type CurrentFileObserver func(name string)

// Session owns a built vfat.Filesystem, its scsi.Target, and the BOT state
// machine for one run. Entries must be added to the Filesystem before
// NewSession is called; the Filesystem is read-only for the rest of the
// session's life.
type Session struct {
	fs     *vfat.Filesystem
	target *scsi.Target
	bot    *usbmsc.Machine

	worker *Worker
}

// Build constructs a Filesystem per cfg: scheme, volume label/serial, and
// the generated boot script installed as "autoexec.ipxe". Additional files
// (the chainload binary, etc.) should be added to the returned Filesystem
// before calling NewSession.
func Build(cfg config.Config) *vfat.Filesystem {
	fs := vfat.Create()
	fs.SetScheme(cfg.Scheme)
	fs.SetVolumeLabel(cfg.VolumeLabel)
	fs.SetVolumeSerial(cfg.VolumeSerial)

	script := bootscript.Generate(cfg)
	_ = fs.AddMemoryFile("AUTOEXEC.IPX", "autoexec.ipxe", []byte(script))

	return fs
}

// NewSession binds fs to a SCSI target and a BOT state machine driven over
// in and out. fs must not be mutated after this call.
func NewSession(fs *vfat.Filesystem, in, out usbmsc.Endpoint) *Session {
	target := scsi.NewTarget(fs, vfat.TotalSectors)
	bot := usbmsc.NewMachine(target, in, out)

	return &Session{fs: fs, target: target, bot: bot}
}

// Filesystem returns the session's backing virtual filesystem.
func (s *Session) Filesystem() *vfat.Filesystem { return s.fs }

// Target returns the session's SCSI target.
func (s *Session) Target() *scsi.Target { return s.target }

// Machine returns the session's BOT state machine.
func (s *Session) Machine() *usbmsc.Machine { return s.bot }

// SetCurrentFileObserver wires obs to fire once per virtual file, the first
// time any of its sectors is read.
func (s *Session) SetCurrentFileObserver(obs CurrentFileObserver) {
	if obs == nil {
		s.fs.SetReadCallback(nil)
		return
	}
	s.fs.SetReadCallback(func(name string) { obs(name) })
}

// StartWorker launches the single cooperative worker goroutine and returns
// its handle. The caller drives RxTx signalling from endpoint completion
// callbacks (see Worker).
func (s *Session) StartWorker() *Worker {
	s.worker = NewWorker(s.bot)
	s.worker.Start()
	return s.worker
}
