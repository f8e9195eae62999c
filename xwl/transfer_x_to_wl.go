// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// longLength of a whole property read, in 4 byte units
const propertyReadLength = 0x1fffffff

// transferXToWl converts a target of an X owner and writes the result into
// the fd of a Wayland reader.
type transferXToWl struct {
	transfer
	window   x.Window
	receiver dataReceiver
}

func newTransferXToWl(sel *selection, target x.Atom, fd int, ts x.Timestamp, parent x.Window) (*transferXToWl, error) {
	s := sel.s
	// the reader may stall, writes must never block the loop
	err := unix.SetNonblock(fd, true)
	if err != nil {
		err2 := s.closeFd(fd)
		if err2 != nil {
			logger.Warning(err2)
		}
		return nil, xerrors.Errorf("set wayland fd nonblocking: %w", err)
	}
	win, err := s.xc.CreateWindow(WindowOptions{
		Parent:    parent,
		Width:     10,
		Height:    10,
		EventMask: x.EventMaskSubstructureNotify | x.EventMaskPropertyChange,
	})
	if err != nil {
		err2 := s.closeFd(fd)
		if err2 != nil {
			logger.Warning(err2)
		}
		return nil, err
	}
	t := &transferXToWl{
		transfer: transfer{
			sel:       sel,
			atom:      target,
			fd:        fd,
			timestamp: ts,
		},
		window: win,
	}
	s.xc.ConvertSelection(win, sel.atom, target, s.atoms.wlSelection, ts)
	s.flush()
	return t, nil
}

func (t *transferXToWl) handleSelectionNotify(ev *x.SelectionNotifyEvent) bool {
	if ev.Requestor != t.window || ev.Selection != t.sel.atom {
		return false
	}
	s := t.sel.s
	if ev.Property == x.None {
		logger.Warningf("conversion of %s refused by owner", s.atomName(t.atom))
		t.endTransfer()
		return true
	}
	if ev.Target == s.atoms.targets {
		logger.Warning("unexpected TARGETS reply in data transfer")
		return true
	}
	if t.receiver != nil {
		return true
	}

	switch ev.Target {
	case s.atoms.netscapeURL:
		t.receiver = &netscapeURLReceiver{}
	case s.atoms.mozURL:
		t.receiver = &mozURLReceiver{charset: s.cfg.MozURLCharset}
	default:
		t.receiver = &plainReceiver{}
	}
	t.startTransfer()
	return true
}

func (t *transferXToWl) startTransfer() {
	s := t.sel.s
	reply, err := s.xc.GetProperty(true, t.window, s.atoms.wlSelection,
		x.GetPropertyTypeAny, 0, propertyReadLength)
	if err != nil {
		logger.Warning(err)
		t.endTransfer()
		return
	}
	s.flush()
	t.resetTimeout()

	if reply.Type == s.atoms.incr {
		// deleting the INCR property starts the chunk stream
		t.incr = true
		logger.Debugf("start incr transfer of %s", s.atomName(t.atom))
		return
	}
	t.receiver.transferFromProperty(reply.Value)
	t.dataSourceWrite()
}

func (t *transferXToWl) handlePropertyNotify(ev *x.PropertyNotifyEvent) bool {
	if ev.Window != t.window {
		return false
	}
	if ev.State == x.PropertyNewValue && ev.Atom == t.sel.s.atoms.wlSelection {
		t.getIncrChunk()
	}
	return true
}

func (t *transferXToWl) getIncrChunk() {
	if !t.incr || t.receiver == nil {
		return
	}
	s := t.sel.s
	reply, err := s.xc.GetProperty(false, t.window, s.atoms.wlSelection,
		x.GetPropertyTypeAny, 0, propertyReadLength)
	if err != nil {
		logger.Warning(err)
		t.endTransfer()
		return
	}
	t.resetTimeout()

	if len(reply.Value) > 0 {
		t.receiver.transferFromProperty(reply.Value)
		t.dataSourceWrite()
		return
	}
	// zero-length chunk ends INCR
	s.xc.DeleteProperty(t.window, s.atoms.wlSelection)
	s.flush()
	t.endTransfer()
}

func (t *transferXToWl) dataSourceWrite() {
	data := t.receiver.data()
	if len(data) > 0 {
		n, err := unix.Write(t.fd, data)
		if err != nil {
			if !isTemporaryErr(err) {
				logger.Warning("write wayland fd err:", err)
				t.endTransfer()
				return
			}
			n = 0
		}
		t.receiver.partRead(n)
		t.resetTimeout()
		if n < len(data) {
			if t.watch == nil {
				t.watchFd(eventloop.Writable, t.dataSourceWrite)
			}
			return
		}
	}

	t.clearWatch()
	t.receiver.reset()
	if t.incr {
		// ask the owner for the next chunk
		s := t.sel.s
		s.xc.DeleteProperty(t.window, s.atoms.wlSelection)
		s.flush()
		return
	}
	t.endTransfer()
}

func (t *transferXToWl) endTransfer() {
	if t.finished {
		return
	}
	if t.window != x.None {
		t.sel.s.xc.DestroyWindow(t.window)
		t.sel.s.flush()
	}
	t.finish(t)
	t.window = x.None
}
