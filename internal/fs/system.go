package fs

import (
	"context"
	"fmt"
	"sync"

	"github.com/justyntemme/stockpile/internal/debug"
)

type OpType int

const (
	ScanRecords OpType = iota
	SweepDir
	CancelSweep
)

type Request struct {
	Op   OpType
	Path string
	Gen  int64 // Generation counter to track stale requests
}

type Response struct {
	Op        OpType
	Path      string
	Tracker   *Tracker
	Sweep     SweepResult
	Err       error
	Gen       int64
	Cancelled bool
}

// Progress represents a progress update during long operations
type Progress struct {
	Gen     int64
	Current int64
	Total   int64
	Label   string
}

// System runs scans and sweeps on its own goroutine so callers stay
// responsive during long removals.
type System struct {
	RequestChan  chan Request
	ResponseChan chan Response
	ProgressChan chan Progress

	cancelMu   sync.Mutex
	cancelFunc context.CancelFunc
}

func NewSystem() *System {
	return &System{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
		ProgressChan: make(chan Progress, 100), // Buffered to avoid blocking
	}
}

// Start serves requests until RequestChan is closed.
func (s *System) Start() {
	for req := range s.RequestChan {
		debug.Log(debug.FS, "Request: op=%d path=%q gen=%d", req.Op, req.Path, req.Gen)

		switch req.Op {
		case CancelSweep:
			s.cancelMu.Lock()
			if s.cancelFunc != nil {
				s.cancelFunc()
				s.cancelFunc = nil
			}
			s.cancelMu.Unlock()

		case ScanRecords:
			tr, err := Scan(req.Path)
			s.ResponseChan <- Response{Op: ScanRecords, Path: req.Path, Tracker: tr, Err: err, Gen: req.Gen}

		case SweepDir:
			s.cancelMu.Lock()
			if s.cancelFunc != nil {
				s.cancelFunc()
			}
			ctx, cancel := context.WithCancel(context.Background())
			s.cancelFunc = cancel
			s.cancelMu.Unlock()

			// Run in a goroutine so CancelSweep can be processed meanwhile
			go func(ctx context.Context, req Request) {
				res := Sweep(ctx, req.Path, func(done, total int) {
					s.report(req.Gen, done, total)
				})
				s.ResponseChan <- Response{
					Op:        SweepDir,
					Path:      req.Path,
					Sweep:     res,
					Gen:       req.Gen,
					Cancelled: res.Cancelled,
				}
			}(ctx, req)
		}
	}
}

func (s *System) report(gen int64, done, total int) {
	// Report roughly every 5% plus the final entry
	step := total / 20
	if step == 0 {
		step = 1
	}
	if done%step != 0 && done != total {
		return
	}
	select {
	case s.ProgressChan <- Progress{
		Gen:     gen,
		Current: int64(done),
		Total:   int64(total),
		Label:   fmt.Sprintf("Removed %d of %d entries...", done, total),
	}:
	default:
		// Channel full, skip this update
	}
}
