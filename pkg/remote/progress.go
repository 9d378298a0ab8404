package remote

import (
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"go.uber.org/zap"
)

// ProgressReporter is informed about the progress of transfers.
type ProgressReporter interface {
	// Begin is called when a transfer starts. The total size is
	// negative if it is not known up front.
	Begin(name string, totalBytes int64) Progress
}

// Progress tracks a single transfer.
type Progress interface {
	Add(bytes int64)
	End()
}

type loggingProgressReporter struct {
	logger *zap.Logger
	steps  int64
}

// NewLoggingProgressReporter creates a ProgressReporter that logs a
// message at the start and end of every transfer, and each time
// another 1/steps of the total size has been transferred.
func NewLoggingProgressReporter(logger *zap.Logger, steps int64) ProgressReporter {
	return &loggingProgressReporter{
		logger: logger,
		steps:  steps,
	}
}

func (pr *loggingProgressReporter) Begin(name string, totalBytes int64) Progress {
	logger := pr.logger.With(zap.String("name", name))
	if totalBytes >= 0 {
		logger.Info("Transfer started", zap.String("total", humanize.IBytes(uint64(totalBytes))))
	} else {
		logger.Info("Transfer started")
	}
	return &loggingProgress{
		logger:     logger,
		totalBytes: totalBytes,
		steps:      pr.steps,
	}
}

type loggingProgress struct {
	logger     *zap.Logger
	totalBytes int64
	steps      int64

	lock             sync.Mutex
	transferredBytes int64
	reportedSteps    int64
}

func (p *loggingProgress) Add(bytes int64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.transferredBytes += bytes
	if p.totalBytes <= 0 || p.steps <= 0 {
		return
	}
	if step := p.transferredBytes * p.steps / p.totalBytes; step > p.reportedSteps && step < p.steps {
		p.reportedSteps = step
		p.logger.Info(
			"Transfer in progress",
			zap.String("transferred", humanize.IBytes(uint64(p.transferredBytes))),
			zap.String("total", humanize.IBytes(uint64(p.totalBytes))))
	}
}

func (p *loggingProgress) End() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.logger.Info("Transfer finished", zap.String("transferred", humanize.IBytes(uint64(p.transferredBytes))))
}

// progressReader counts the bytes read from a stream.
type progressReader struct {
	io.Reader
	progress Progress
}

func (r progressReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.progress.Add(int64(n))
	return n, err
}

// progressWriter counts the bytes written to a stream.
type progressWriter struct {
	io.Writer
	progress Progress
}

func (w progressWriter) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	w.progress.Add(int64(n))
	return n, err
}
