// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package eventloop is a small single-threaded loop multiplexing fd
// readiness, timers and callbacks posted from other goroutines.
//
// Everything except Post must be called from the goroutine running Run.
package eventloop

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("eventloop")

type Events uint32

const (
	Readable Events = 1 << iota
	Writable
)

// Watch is a registered fd readiness callback.
type Watch interface {
	Remove()
}

// Timer is a one-shot or repeating timer.
type Timer interface {
	Stop()
}

type Loop struct {
	epfd   int
	wakeFd int

	mu     sync.Mutex
	posted []func()

	watches map[int]*fdWatch
	timers  timerHeap
}

func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, xerrors.Errorf("epoll_create1: %w", err)
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, xerrors.Errorf("eventfd: %w", err)
	}
	err = unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFd),
	})
	if err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(epfd)
		return nil, xerrors.Errorf("epoll_ctl wake fd: %w", err)
	}
	return &Loop{
		epfd:    epfd,
		wakeFd:  wakeFd,
		watches: make(map[int]*fdWatch),
	}, nil
}

func (l *Loop) Close() {
	for _, w := range l.watches {
		w.removed = true
	}
	l.watches = nil
	_ = unix.Close(l.wakeFd)
	_ = unix.Close(l.epfd)
}

// Post queues cb to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(cb func()) {
	l.mu.Lock()
	l.posted = append(l.posted, cb)
	l.mu.Unlock()
	l.wake()
}

func (l *Loop) wake() {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(l.wakeFd, buf[:])
	if err != nil && err != unix.EAGAIN {
		logger.Warning("wake loop:", err)
	}
}

type fdWatch struct {
	l       *Loop
	fd      int
	cb      func()
	removed bool
}

func (w *fdWatch) Remove() {
	if w.removed {
		return
	}
	w.removed = true
	if w.l.watches[w.fd] == w {
		delete(w.l.watches, w.fd)
		err := unix.EpollCtl(w.l.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
		if err != nil && err != unix.EBADF && err != unix.ENOENT {
			logger.Warningf("remove watch on fd %d: %v", w.fd, err)
		}
	}
}

// WatchFd calls cb every time fd becomes ready for events. A fd can carry a
// single watch, a new one replaces the old.
func (l *Loop) WatchFd(fd int, events Events, cb func()) (Watch, error) {
	var epEvents uint32
	if events&Readable != 0 {
		epEvents |= unix.EPOLLIN
	}
	if events&Writable != 0 {
		epEvents |= unix.EPOLLOUT
	}
	ev := &unix.EpollEvent{Events: epEvents, Fd: int32(fd)}

	op := unix.EPOLL_CTL_ADD
	if old, ok := l.watches[fd]; ok {
		old.removed = true
		op = unix.EPOLL_CTL_MOD
	}
	err := unix.EpollCtl(l.epfd, op, fd, ev)
	if err != nil {
		delete(l.watches, fd)
		return nil, xerrors.Errorf("watch fd %d: %w", fd, err)
	}
	w := &fdWatch{l: l, fd: fd, cb: cb}
	l.watches[fd] = w
	return w, nil
}

type timer struct {
	l        *Loop
	deadline time.Time
	interval time.Duration
	repeat   bool
	cb       func()
	index    int
}

func (t *timer) Stop() {
	if t.index < 0 {
		return
	}
	heap.Remove(&t.l.timers, t.index)
}

// AddTimer fires cb after interval, and keeps firing every interval when
// repeat is set.
func (l *Loop) AddTimer(interval time.Duration, repeat bool, cb func()) Timer {
	t := &timer{
		l:        l,
		deadline: time.Now().Add(interval),
		interval: interval,
		repeat:   repeat,
		cb:       cb,
		index:    -1,
	}
	heap.Push(&l.timers, t)
	return t
}

type timerHeap []*timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

func (l *Loop) runTimers(now time.Time) {
	for len(l.timers) > 0 {
		t := l.timers[0]
		if t.deadline.After(now) {
			return
		}
		if t.repeat && t.interval > 0 {
			t.deadline = now.Add(t.interval)
			heap.Fix(&l.timers, 0)
		} else {
			heap.Pop(&l.timers)
		}
		t.cb()
	}
}

func (l *Loop) runPosted() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()

	for _, cb := range posted {
		cb()
	}
}

func (l *Loop) pollTimeout(now time.Time) int {
	l.mu.Lock()
	pending := len(l.posted)
	l.mu.Unlock()
	if pending > 0 {
		return 0
	}
	if len(l.timers) == 0 {
		return -1
	}
	d := l.timers[0].deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	// round up, epoll has millisecond resolution
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// Run dispatches until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.wake()
		case <-stop:
		}
	}()

	events := make([]unix.EpollEvent, 32)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.runPosted()
		l.runTimers(time.Now())
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.EpollWait(l.epfd, events, l.pollTimeout(time.Now()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return xerrors.Errorf("epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.wakeFd {
				l.drainWake()
				continue
			}
			w, ok := l.watches[fd]
			if !ok || w.removed {
				continue
			}
			w.cb()
		}
	}
}

func (l *Loop) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(l.wakeFd, buf[:])
		if err != nil {
			return
		}
	}
}
