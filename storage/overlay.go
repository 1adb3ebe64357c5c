package storage

import (
	"errors"
	"sort"
	"strings"
)

// Overlay buffers writes on top of a Database. Reads observe the buffered
// writes first. Nothing reaches the parent until Commit, so a request that
// fails half way can be dropped with Discard.
type Overlay struct {
	parent  Database
	writes  map[string][]byte
	deletes map[string]struct{}
	done    bool
}

var errOverlayClosed = errors.New("storage: overlay already committed or discarded")

// NewOverlay opens a write overlay above parent.
func NewOverlay(parent Database) *Overlay {
	return &Overlay{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if o.done {
		return nil, errOverlayClosed
	}
	k := string(key)
	if _, ok := o.deletes[k]; ok {
		return nil, ErrNotFound
	}
	if v, ok := o.writes[k]; ok {
		return append([]byte(nil), v...), nil
	}
	return o.parent.Get(key)
}

func (o *Overlay) Put(key, value []byte) error {
	if o.done {
		return errOverlayClosed
	}
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Delete(key []byte) error {
	if o.done {
		return errOverlayClosed
	}
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// Iterate merges buffered writes with the parent's keys.
func (o *Overlay) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	if o.done {
		return errOverlayClosed
	}
	merged := make(map[string][]byte)
	if err := o.parent.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	}); err != nil {
		return err
	}
	p := string(prefix)
	for k, v := range o.writes {
		if strings.HasPrefix(k, p) {
			merged[k] = v
		}
	}
	for k := range o.deletes {
		delete(merged, k)
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), append([]byte(nil), merged[k]...)) {
			return nil
		}
	}
	return nil
}

// Dirty reports the number of pending operations.
func (o *Overlay) Dirty() int {
	return len(o.writes) + len(o.deletes)
}

// Commit flushes all pending writes to the parent in one batch.
func (o *Overlay) Commit() error {
	if o.done {
		return errOverlayClosed
	}
	batch := new(Batch)
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), o.writes[k])
	}
	for k := range o.deletes {
		batch.Delete([]byte(k))
	}
	if err := o.parent.Write(batch); err != nil {
		return err
	}
	o.done = true
	return nil
}

// Discard drops every pending write.
func (o *Overlay) Discard() {
	o.writes = nil
	o.deletes = nil
	o.done = true
}
