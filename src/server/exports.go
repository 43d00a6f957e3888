package server

import (
	"sync"

	"github.com/google/uuid"
)

const exportsPath = "/api/exports/"

type exportEntry struct {
	name string
	data []byte
}

// ExportStore holds the most recent finished GIF captures for download.
type ExportStore struct {
	retention int

	mu    sync.Mutex
	order []string
	items map[string]exportEntry
}

func NewExportStore(retention int) *ExportStore {
	if retention <= 0 {
		retention = 5
	}
	return &ExportStore{retention: retention, items: make(map[string]exportEntry)}
}

// Put stores data and returns its download URL. The oldest export is
// evicted once more than retention are held.
func (e *ExportStore) Put(name string, data []byte) string {
	id := uuid.NewString()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items[id] = exportEntry{name: name, data: data}
	e.order = append(e.order, id)
	for len(e.order) > e.retention {
		delete(e.items, e.order[0])
		e.order = e.order[1:]
	}
	return exportsPath + id
}

// Get returns an export by id.
func (e *ExportStore) Get(id string) (string, []byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.items[id]
	return entry.name, entry.data, ok
}

// Len is the number of exports held.
func (e *ExportStore) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}
