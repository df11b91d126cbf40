package classifier

import (
	"sync"
	"time"
)

// processedFiles remembers the modification time of the last accepted version of each path.
// It only grows; entries live for the whole run.
type processedFiles struct {
	mu    sync.Mutex
	files map[string]time.Time
}

// claim is a tentative acceptance that can be handed back if the job never makes it onto the queue.
type claim struct {
	path    string
	modTime time.Time
	prev    time.Time
	hadPrev bool
}

func newProcessedFiles() *processedFiles {
	return &processedFiles{files: make(map[string]time.Time)}
}

// markIfChanged records modTime for path and reports true, unless path was already
// accepted with exactly this modTime.
func (p *processedFiles) markIfChanged(path string, modTime time.Time) (claim, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	last, ok := p.files[path]
	if ok && last.Equal(modTime) {
		return claim{}, false
	}
	p.files[path] = modTime
	return claim{path: path, modTime: modTime, prev: last, hadPrev: ok}, true
}

// release undoes c, unless a newer version of the path has been accepted since.
func (p *processedFiles) release(c claim) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur, ok := p.files[c.path]; !ok || !cur.Equal(c.modTime) {
		return
	}
	if c.hadPrev {
		p.files[c.path] = c.prev
		return
	}
	delete(p.files, c.path)
}

func (p *processedFiles) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}

func (p *processedFiles) get(path string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.files[path]
	return t, ok
}
