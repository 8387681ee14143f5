// Package registry tracks processed-paper metadata and processing
// state. It replaces the ambient global map the pipeline's consumers
// would otherwise share: an explicit store keyed by paperId with a
// pending -> completed/failed lifecycle, injected at the API boundary.
package registry

import (
	"sort"
	"sync"
	"time"

	"paper-search/internal/metadata"
)

// Status is the processing state of a paper.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is the registry entry for one ingested paper.
type Record struct {
	PaperID    string            `json:"paper_id"`
	Filename   string            `json:"filename"`
	FileSize   int64             `json:"file_size"`
	UploadedAt time.Time         `json:"uploaded_at"`
	Meta       metadata.Metadata `json:"metadata"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
}

// Registry is an in-memory paper store safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	papers map[string]Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{papers: make(map[string]Record)}
}

// Put inserts or replaces a record.
func (r *Registry) Put(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.papers[rec.PaperID] = rec
}

// SetStatus transitions a paper's state, recording the failure reason
// for StatusFailed. Unknown paper ids are ignored.
func (r *Registry) SetStatus(paperID string, status Status, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.papers[paperID]
	if !ok {
		return
	}
	rec.Status = status
	rec.Error = errMsg
	r.papers[paperID] = rec
}

// Get returns the record for a paper, if known.
func (r *Registry) Get(paperID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.papers[paperID]
	return rec, ok
}

// List returns all records, newest upload first.
func (r *Registry) List() []Record {
	r.mu.RLock()
	records := make([]Record, 0, len(r.papers))
	for _, rec := range r.papers {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
	return records
}

// Delete removes a paper's record, reporting whether it existed.
func (r *Registry) Delete(paperID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.papers[paperID]
	delete(r.papers, paperID)
	return ok
}
