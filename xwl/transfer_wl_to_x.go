// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
	"golang.org/x/sys/unix"
)

// transferWlToX reads a Wayland source and answers an X selection request,
// large data goes out in INCR chunks.
type transferWlToX struct {
	transfer
	request x.SelectionRequestEvent

	// full chunks not yet written to the property
	chunks [][]byte
	cur    []byte
	eof    bool
	paused bool
	// the property holds data the requestor has not deleted yet
	propertyIsSet bool
}

func newTransferWlToX(sel *selection, ev *x.SelectionRequestEvent, fd int) *transferWlToX {
	return &transferWlToX{
		transfer: transfer{
			sel:       sel,
			atom:      ev.Target,
			fd:        fd,
			timestamp: ev.Time,
		},
		request: *ev,
	}
}

func (t *transferWlToX) startTransferFromSource() {
	if !t.watchFd(eventloop.Readable, t.readWlSource) {
		t.sel.sendSelectionNotify(&t.request, false)
		t.endTransfer()
	}
}

func (t *transferWlToX) readWlSource() {
	if t.cur == nil {
		t.cur = make([]byte, 0, chunkSize)
	}
	n, err := unix.Read(t.fd, t.cur[len(t.cur):chunkSize])
	if err != nil {
		if isTemporaryErr(err) {
			return
		}
		logger.Warning("read wayland source err:", err)
		if !t.incr {
			t.sel.sendSelectionNotify(&t.request, false)
		}
		t.endTransfer()
		return
	}
	t.resetTimeout()

	if n == 0 {
		t.eof = true
		t.clearWatch()
		if len(t.cur) > 0 || !t.incr {
			t.chunks = append(t.chunks, t.cur)
		}
		t.cur = nil

		if !t.incr {
			t.flushSourceData()
			t.sel.sendSelectionNotify(&t.request, true)
			t.endTransfer()
			return
		}
		if !t.propertyIsSet {
			t.handlePropertyDelete()
		}
		return
	}

	t.cur = t.cur[:len(t.cur)+n]
	if len(t.cur) < chunkSize {
		return
	}
	t.chunks = append(t.chunks, t.cur)
	t.cur = nil

	if !t.incr {
		t.startIncr()
	} else if !t.propertyIsSet {
		t.flushSourceData()
	}
	if len(t.chunks) > 0 {
		// one full chunk waits behind the property
		t.paused = true
		t.clearWatch()
	}
}

func (t *transferWlToX) startIncr() {
	xc := t.sel.s.xc
	t.sel.s.watchRequestor(t.request.Requestor)
	xc.ChangeProperty(x.PropModeReplace, t.request.Requestor, t.request.Property,
		t.sel.s.atoms.incr, 32, encodeCard32(incrSizeHint))
	t.incr = true
	t.propertyIsSet = true
	t.sel.sendSelectionNotify(&t.request, true)
	logger.Debugf("start incr transfer to %d", t.request.Requestor)
}

func (t *transferWlToX) flushSourceData() {
	var chunk []byte
	if len(t.chunks) > 0 {
		chunk = t.chunks[0]
		t.chunks = t.chunks[1:]
	}
	t.sel.s.xc.ChangeProperty(x.PropModeReplace, t.request.Requestor, t.request.Property,
		t.request.Target, 8, chunk)
	t.sel.s.flush()
	t.propertyIsSet = true
	t.resetTimeout()
}

func (t *transferWlToX) handlePropertyNotify(ev *x.PropertyNotifyEvent) bool {
	if ev.Window != t.request.Requestor || ev.Atom != t.request.Property {
		return false
	}
	if ev.State == x.PropertyDelete {
		t.handlePropertyDelete()
	}
	return true
}

func (t *transferWlToX) handlePropertyDelete() {
	if !t.incr {
		return
	}
	t.propertyIsSet = false
	t.resetTimeout()

	if len(t.chunks) > 0 {
		t.flushSourceData()
		if t.paused && !t.eof {
			t.paused = false
			if !t.watchFd(eventloop.Readable, t.readWlSource) {
				t.endTransfer()
			}
		}
		return
	}
	if t.eof {
		// zero-length property ends INCR
		t.flushSourceData()
		t.endTransfer()
	}
}

func (t *transferWlToX) endTransfer() {
	if t.finished {
		return
	}
	if t.incr {
		t.sel.s.unwatchRequestor(t.request.Requestor)
	}
	t.finish(t)
}
