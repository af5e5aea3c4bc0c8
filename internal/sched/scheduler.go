// Package sched provides the deferred-task scheduler driving all combat
// timers. Tasks are keyed by an owner id so removing a unit can cancel every
// effect still pointing at it, and the clock is whatever the caller passes to
// Advance, which keeps tests on a virtual timeline.
package sched

import "container/heap"

// Task is a deferred effect. It runs at most once.
type Task func(now float64)

// Handle identifies a scheduled task for cancellation.
type Handle uint64

type entry struct {
	handle  Handle
	ownerID string
	at      float64
	seq     uint64
	run     Task
	done    bool
}

type taskHeap []*entry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler orders deferred tasks on the simulation clock. It is not
// goroutine-safe: all access happens from the frame loop, like every other
// piece of simulation state.
type Scheduler struct {
	heap     taskHeap
	byHandle map[Handle]*entry
	byOwner  map[string]map[Handle]*entry
	nextSeq  uint64
}

func New() *Scheduler {
	return &Scheduler{
		byHandle: make(map[Handle]*entry),
		byOwner:  make(map[string]map[Handle]*entry),
	}
}

// Schedule queues fn to run once the clock reaches at. The ownerID ties the
// task's lifetime to a unit; an empty ownerID is allowed and only cancellable
// via the returned handle.
func (s *Scheduler) Schedule(ownerID string, at float64, fn Task) Handle {
	if s == nil || fn == nil {
		return 0
	}
	s.nextSeq++
	e := &entry{
		handle:  Handle(s.nextSeq),
		ownerID: ownerID,
		at:      at,
		seq:     s.nextSeq,
		run:     fn,
	}
	heap.Push(&s.heap, e)
	s.byHandle[e.handle] = e
	if ownerID != "" {
		owned, ok := s.byOwner[ownerID]
		if !ok {
			owned = make(map[Handle]*entry)
			s.byOwner[ownerID] = owned
		}
		owned[e.handle] = e
	}
	return e.handle
}

// Cancel drops a single pending task. It reports whether the task was still
// pending.
func (s *Scheduler) Cancel(handle Handle) bool {
	if s == nil {
		return false
	}
	e, ok := s.byHandle[handle]
	if !ok || e.done {
		return false
	}
	s.detach(e)
	return true
}

// CancelOwner drops every pending task scheduled under ownerID and returns
// how many were cancelled.
func (s *Scheduler) CancelOwner(ownerID string) int {
	if s == nil || ownerID == "" {
		return 0
	}
	owned, ok := s.byOwner[ownerID]
	if !ok {
		return 0
	}
	cancelled := 0
	for _, e := range owned {
		if !e.done {
			e.done = true
			e.run = nil
			delete(s.byHandle, e.handle)
			cancelled++
		}
	}
	delete(s.byOwner, ownerID)
	return cancelled
}

// Advance runs every task due at or before now, in due-time order. Tasks
// scheduled during Advance for a time at or before now also fire in the same
// call.
func (s *Scheduler) Advance(now float64) {
	if s == nil {
		return
	}
	for len(s.heap) > 0 && s.heap[0].at <= now {
		e := heap.Pop(&s.heap).(*entry)
		if e.done {
			continue
		}
		run := e.run
		s.detach(e)
		run(now)
	}
	// Drain cancelled entries that bubbled to the top.
	for len(s.heap) > 0 && s.heap[0].done {
		heap.Pop(&s.heap)
	}
}

// Pending reports how many live tasks remain queued.
func (s *Scheduler) Pending() int {
	if s == nil {
		return 0
	}
	return len(s.byHandle)
}

// PendingFor reports the live tasks queued under one owner.
func (s *Scheduler) PendingFor(ownerID string) int {
	if s == nil {
		return 0
	}
	return len(s.byOwner[ownerID])
}

// Clear drops every pending task without running it.
func (s *Scheduler) Clear() {
	if s == nil {
		return
	}
	s.heap = s.heap[:0]
	s.byHandle = make(map[Handle]*entry)
	s.byOwner = make(map[string]map[Handle]*entry)
}

func (s *Scheduler) detach(e *entry) {
	e.done = true
	e.run = nil
	delete(s.byHandle, e.handle)
	if e.ownerID != "" {
		if owned, ok := s.byOwner[e.ownerID]; ok {
			delete(owned, e.handle)
			if len(owned) == 0 {
				delete(s.byOwner, e.ownerID)
			}
		}
	}
}
