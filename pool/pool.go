// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pool recycles GPU buffer handles across frames.
//
// The GPU consumes buffers asynchronously: a buffer written and submitted
// during frame N may still be read while the CPU records frame N+1. A
// [Pool] therefore never hands out a returned handle before the frame
// counter has advanced twice past the frame it was returned in. Each free
// entry carries the generation (frame) at which it becomes eligible again.
//
// Usage:
//
//	p := pool.New(func() (device.VertexBuffer, error) {
//	    return factory.CreateVertexBuffer(layout, 8192, true)
//	})
//	vb, err := p.Take()
//	// ... fill vb, record draws ...
//	p.Return(vb)
//	p.NextFrame() // once per frame
//
// Pool is not safe for concurrent use.
package pool

import (
	"errors"
	"fmt"
)

// Latency is the number of frames a returned handle waits before reuse.
const Latency = 2

// ErrNoFactory is returned by Take when the pool has no factory.
var ErrNoFactory = errors.New("pool: no factory")

// Handle is a pooled resource with a stable identifier.
// IDs must be unique among handles produced by one factory.
type Handle interface {
	ID() uint32
}

type entry[T Handle] struct {
	h        T
	eligible uint64
}

// Pool is a free list of handles plus a factory for growing it.
// A handle is owned either by the pool or by exactly one caller.
type Pool[T Handle] struct {
	factory func() (T, error)

	// free is a FIFO ordered by eligible generation; free[head:] is live.
	free []entry[T]
	head int

	inUse   map[uint32]T
	frame   uint64
	created int
}

// New creates an empty pool. Handles are constructed lazily by factory.
func New[T Handle](factory func() (T, error)) *Pool[T] {
	return &Pool[T]{
		factory: factory,
		inUse:   make(map[uint32]T),
	}
}

// Take returns an eligible pooled handle, or constructs a new one when
// none is eligible. Growing is not an error; the pool keeps its high-water
// size forever. Factory errors are returned wrapped.
func (p *Pool[T]) Take() (T, error) {
	var h T
	if p.head < len(p.free) && p.free[p.head].eligible <= p.frame {
		h = p.free[p.head].h
		p.free[p.head] = entry[T]{}
		p.head++
		p.compact()
	} else {
		if p.factory == nil {
			return h, ErrNoFactory
		}
		var err error
		h, err = p.factory()
		if err != nil {
			return h, fmt.Errorf("pool: create handle: %w", err)
		}
		p.created++
	}

	id := h.ID()
	if _, dup := p.inUse[id]; dup {
		panic(fmt.Sprintf("pool: handle %d taken twice", id))
	}
	p.inUse[id] = h
	return h, nil
}

// Return gives h back to the pool. It becomes eligible for Take after
// Latency calls to NextFrame. Returning a handle the pool did not hand
// out, or returning it twice, panics.
func (p *Pool[T]) Return(h T) {
	id := h.ID()
	if _, ok := p.inUse[id]; !ok {
		panic(fmt.Sprintf("pool: return of handle %d which is not in use", id))
	}
	delete(p.inUse, id)
	p.free = append(p.free, entry[T]{h: h, eligible: p.frame + Latency})
}

// NextFrame advances the generation counter. Call it once per frame after
// the frame's buffers have been returned.
func (p *Pool[T]) NextFrame() {
	p.frame++
}

// Warmup constructs count handles up front and makes them immediately
// eligible, so the first frames do not call the factory.
func (p *Pool[T]) Warmup(count int) error {
	if count <= 0 {
		return nil
	}
	if p.factory == nil {
		return ErrNoFactory
	}
	// Warm entries go in front so the FIFO stays ordered by eligibility.
	warm := make([]entry[T], 0, count+len(p.free)-p.head)
	var err error
	for i := 0; i < count; i++ {
		var h T
		h, err = p.factory()
		if err != nil {
			err = fmt.Errorf("pool: warmup handle %d: %w", i, err)
			break
		}
		p.created++
		warm = append(warm, entry[T]{h: h})
	}
	p.free = append(warm, p.free[p.head:]...)
	p.head = 0
	return err
}

// compact drops consumed entries once they make up half the slice.
func (p *Pool[T]) compact() {
	if p.head < 32 || p.head*2 < len(p.free) {
		return
	}
	n := copy(p.free, p.free[p.head:])
	clear(p.free[n:])
	p.free = p.free[:n]
	p.head = 0
}

// Frame returns the current generation.
func (p *Pool[T]) Frame() uint64 { return p.frame }

// Created returns how many handles the factory has produced. Because the
// pool never shrinks, this is its high-water mark.
func (p *Pool[T]) Created() int { return p.created }

// InUse returns how many handles are currently taken.
func (p *Pool[T]) InUse() int { return len(p.inUse) }

// Free returns how many handles are pooled, eligible or not.
func (p *Pool[T]) Free() int { return len(p.free) - p.head }

// Eligible returns how many pooled handles Take could reuse right now.
func (p *Pool[T]) Eligible() int {
	n := 0
	for _, e := range p.free[p.head:] {
		if e.eligible > p.frame {
			break
		}
		n++
	}
	return n
}

// Close hands every handle, pooled or in use, to release and empties the
// pool. The pool may be reused afterwards.
func (p *Pool[T]) Close(release func(T)) {
	for _, e := range p.free[p.head:] {
		if release != nil {
			release(e.h)
		}
	}
	for _, h := range p.inUse {
		if release != nil {
			release(h)
		}
	}
	clear(p.free)
	p.free = p.free[:0]
	p.head = 0
	clear(p.inUse)
}
