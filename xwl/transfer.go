// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
	"golang.org/x/sys/unix"
)

const (
	chunkSize    = 64512
	incrSizeHint = chunkSize + 1024
)

type transferer interface {
	base() *transfer
	endTransfer()
}

// transfer moves one target between an X peer and a Wayland fd.
type transfer struct {
	sel       *selection
	atom      x.Atom
	fd        int
	timestamp x.Timestamp

	watch    eventloop.Watch
	incr     bool
	timedOut bool
	finished bool
}

func (t *transfer) base() *transfer {
	return t
}

func (t *transfer) watchFd(events eventloop.Events, cb func()) bool {
	if t.watch != nil {
		t.watch.Remove()
		t.watch = nil
	}
	watch, err := t.sel.s.loop.WatchFd(t.fd, events, cb)
	if err != nil {
		logger.Warning("watch transfer fd err:", err)
		return false
	}
	t.watch = watch
	return true
}

func (t *transfer) clearWatch() {
	if t.watch != nil {
		t.watch.Remove()
		t.watch = nil
	}
}

func (t *transfer) closeFd() {
	if t.fd < 0 {
		return
	}
	err := t.sel.s.closeFd(t.fd)
	if err != nil {
		logger.Warning("close transfer fd err:", err)
	}
	t.fd = -1
}

// idleTick is called on every timeout tick, it reports true once the
// transfer has been idle for a whole tick.
func (t *transfer) idleTick() bool {
	if t.timedOut {
		return true
	}
	t.timedOut = true
	return false
}

func (t *transfer) resetTimeout() {
	t.timedOut = false
}

// finish releases the fd and reports self to the selection, only the first
// call has an effect.
func (t *transfer) finish(self transferer) {
	if t.finished {
		return
	}
	t.finished = true
	t.clearWatch()
	t.closeFd()
	t.sel.transferFinished(self)
}

func isTemporaryErr(err error) bool {
	return err == unix.EAGAIN || err == unix.EINTR
}
