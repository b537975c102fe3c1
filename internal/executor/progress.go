package executor

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/LK4D4/trylock"
	"github.com/sirupsen/logrus"
)

const DefaultProgressFile = ".progress.txt"

// Status is a snapshot of the progress of the running experiment.
type Status struct {
	Experiment string `json:"experiment"`
	Planned    int64  `json:"planned"`
	Completed  int64  `json:"completed"`
	Failed     int64  `json:"failed"`
	Percent    int    `json:"percent"`
}

// Progress tracks completed runs and mirrors the percentage to a file.
// The file is advisory: a worker finding another one writing skips the update.
type Progress struct {
	path      string
	writeMtx  trylock.Mutex
	mtx       sync.RWMutex
	name      string
	planned   int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewProgress returns a tracker writing to path. An empty path disables the file.
func NewProgress(path string) *Progress {
	return &Progress{path: path}
}

// Start resets the counters for a new experiment.
func (p *Progress) Start(experiment string, planned int) {
	p.mtx.Lock()
	p.name = experiment
	p.planned = int64(planned)
	p.mtx.Unlock()
	p.completed.Store(0)
	p.failed.Store(0)
}

// Done marks one more successful run.
func (p *Progress) Done() {
	p.completed.Add(1)
	p.write()
}

func (p *Progress) Fail() {
	p.failed.Add(1)
}

func (p *Progress) Percent() int {
	return p.Status().Percent
}

func (p *Progress) Status() Status {
	p.mtx.RLock()
	s := Status{Experiment: p.name, Planned: p.planned}
	p.mtx.RUnlock()
	s.Completed = p.completed.Load()
	s.Failed = p.failed.Load()
	if s.Planned > 0 {
		s.Percent = int(s.Completed * 100 / s.Planned)
	}
	return s
}

func (p *Progress) write() {
	if p.path == "" || !p.writeMtx.TryLock() {
		return
	}
	defer p.writeMtx.Unlock()
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(p.Percent())), 0644); err != nil {
		logrus.Debugf("Could not update %s: %v", p.path, err)
	}
}

// Remove deletes the progress file.
func (p *Progress) Remove() {
	if p.path == "" {
		return
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Could not remove %s: %v", p.path, err)
	}
}
