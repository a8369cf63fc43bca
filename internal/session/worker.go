package session

import (
	"os"

	"github.com/ipxeusb/vdisk/internal/logger"
	"github.com/ipxeusb/vdisk/internal/usbmsc"
)

// Worker is the single cooperative loop driving a BOT session: it suspends
// on a wait-any over three signals and processes at most one endpoint
// event per wake. Channels are the idiomatic Go analogue of an event-flag
// wait-any; buffered size 1 so a signal sent while the worker is
// mid-iteration is not lost (a burst of signals coalesces into a single
// wake, which is fine since Step() re-checks endpoint state on every
// call).
type Worker struct {
	bot *usbmsc.Machine
	log *logger.Logger

	exit  chan struct{}
	reset chan struct{}
	rxtx  chan struct{}

	done chan struct{}
}

// NewWorker returns a Worker driving bot, not yet started. Lifecycle events
// (start, reset, exit) are reported to a logger writing to stderr at Info
// level; SetLogger replaces it.
func NewWorker(bot *usbmsc.Machine) *Worker {
	return &Worker{
		bot:   bot,
		log:   logger.New(os.Stderr, logger.InfoLevel),
		exit:  make(chan struct{}, 1),
		reset: make(chan struct{}, 1),
		rxtx:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// SetLogger overrides the worker's lifecycle logger.
func (w *Worker) SetLogger(l *logger.Logger) {
	w.log = l
}

// Start launches the worker goroutine. It returns immediately; use Stop to
// end the worker and block until it has exited.
func (w *Worker) Start() {
	w.log.Info("worker started")
	go w.run()
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.log.Info("worker exited")

	for {
		select {
		case <-w.exit:
			return
		case <-w.reset:
			w.log.Debug("BOT_RESET received")
			w.bot.Reset()
		case <-w.rxtx:
			w.bot.Step()
		}
	}
}

// SignalRxTx wakes the worker to process one pending endpoint event. Safe
// to call from an endpoint completion callback; it only ever sends on a
// channel and never blocks (the channel is buffered and coalesces bursts).
func (w *Worker) SignalRxTx() {
	select {
	case w.rxtx <- struct{}{}:
	default:
	}
}

// SignalReset requests a BOT_RESET; processed on the worker's next wake.
func (w *Worker) SignalReset() {
	select {
	case w.reset <- struct{}{}:
	default:
	}
}

// Stop requests the worker exit after completing its current event, and
// blocks until it has done so.
func (w *Worker) Stop() {
	select {
	case w.exit <- struct{}{}:
	default:
	}
	<-w.done
}
