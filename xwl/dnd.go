// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
)

const (
	xdndVersion = 5
	// the proxy windows cover any screen setup
	dndWindowSize = 8192
)

// drag is one drag-and-drop session between the two worlds.
type drag interface {
	handleClientMessage(msg *ClientMessage) bool
	moveFilter(target Window, pos Point) DragEventReply
	// end reports whether the drag can be destroyed right away, otherwise
	// it calls the finish callback later.
	end(performed bool) bool
	setOnFinish(fn func())
	destroy()
}

// dnd bridges the XdndSelection and owns the drags.
type dnd struct {
	*selection
	currentDrag drag
	oldDrags    []drag
}

func newDnd(s *session) (*dnd, error) {
	d := &dnd{}
	sel, err := newSelection(s, s.atoms.xdndSelection, d, WindowOptions{
		Width:     dndWindowSize,
		Height:    dndWindowSize,
		EventMask: x.EventMaskSubstructureNotify | x.EventMaskPropertyChange,
	})
	if err != nil {
		return nil, err
	}
	d.selection = sel
	sel.onTransferStarted = d.transferStarted
	sel.onTransferFinished = d.transferFinished
	sel.onDisowned = d.handleDisowned

	s.xc.ChangeProperty(x.PropModeReplace, sel.window, s.atoms.xdndAware,
		x.AtomAtom, 32, encodeCard32(xdndVersion))
	s.flush()
	return d, nil
}

func (d *dnd) handleClaimedByPeer(ev *xfixes.SelectionNotifyEvent) {
	if d.currentDrag != nil {
		if _, ok := d.currentDrag.(*xToWlDrag); ok {
			// the drag source itself or a client we do not care about
			return
		}
		logger.Warningf("XdndSelection claimed by %d during a wayland drag, take it back", ev.Owner)
		d.setOwned(true)
		return
	}

	d.createX11Source(nil)
	s := d.s
	origin := s.seat.PointerFocus()
	if origin == nil || !origin.IsXwayland() {
		return
	}
	if !s.seat.IsPointerButtonPressed(s.cfg.DragButton) {
		// not a drag, the claim is stale
		return
	}
	d.createX11Source(ev)
	if d.xSource == nil {
		return
	}
	drag, err := newXToWlDrag(d, d.xSource)
	if err != nil {
		logger.Warning("start x drag err:", err)
		return
	}
	logger.Debug("x drag started by", ev.Owner)
	d.currentDrag = drag
}

func (d *dnd) handleOffersChanged(added, removed []string) {
	// offers arrive with XdndEnter
}

func (d *dnd) handleClientMessage(msg *ClientMessage) bool {
	for _, drag := range d.oldDrags {
		if drag.handleClientMessage(msg) {
			return true
		}
	}
	if d.currentDrag != nil && d.currentDrag.handleClientMessage(msg) {
		return true
	}
	return false
}

func (d *dnd) handleDisowned() {
	if _, ok := d.currentDrag.(*wlToXDrag); ok {
		logger.Debug("XdndSelection lost during a wayland drag")
		d.setOwned(true)
	}
}

func (d *dnd) dragMoveFilter(target Window, pos Point) DragEventReply {
	if d.currentDrag == nil {
		return DragEventReplyWayland
	}
	return d.currentDrag.moveFilter(target, pos)
}

// startDrag is called when a drag started on the seat.
func (d *dnd) startDrag() {
	dsi := d.s.seat.DragSource()
	if dsi == nil {
		return
	}
	if _, ok := dsi.(*proxyDragSource); ok {
		// our own X drag
		return
	}
	if d.currentDrag != nil {
		logger.Warning("wayland drag started while another drag is running")
		return
	}
	d.currentDrag = newWlToXDrag(d, dsi)
	d.setWlSource(newWlSource(d.selection, dsi))
	d.setOwned(true)
}

// endDrag is called when the drag on the seat ended.
func (d *dnd) endDrag(performed bool) {
	drag := d.currentDrag
	if drag == nil {
		return
	}
	d.currentDrag = nil
	if drag.end(performed) {
		d.destroyDrag(drag)
		return
	}
	d.oldDrags = append(d.oldDrags, drag)
	drag.setOnFinish(func() {
		d.clearOldDrag(drag)
	})
}

func (d *dnd) clearOldDrag(drag drag) {
	for i, item := range d.oldDrags {
		if item == drag {
			d.oldDrags = append(d.oldDrags[:i], d.oldDrags[i+1:]...)
			d.s.deferDestroy(func() {
				d.destroyDrag(drag)
			})
			return
		}
	}
}

func (d *dnd) destroyDrag(drag drag) {
	drag.destroy()
	if wd, ok := drag.(*wlToXDrag); ok && d.wlSource != nil && d.wlSource.dsi == wd.dsi {
		d.setWlSource(nil)
		d.setOwned(false)
	}
}

func (d *dnd) drags() []drag {
	drags := append([]drag{}, d.oldDrags...)
	if d.currentDrag != nil {
		drags = append(drags, d.currentDrag)
	}
	return drags
}

// transferStarted counts a data request against the X drag whose source
// serves it, the drag may have ended on the seat already.
func (d *dnd) transferStarted(ts x.Timestamp) {
	for _, drag := range d.drags() {
		if xd, ok := drag.(*xToWlDrag); ok && xd.source == d.xSource {
			xd.dataRequested(ts)
			return
		}
	}
}

func (d *dnd) transferFinished(ts x.Timestamp) {
	for _, drag := range d.drags() {
		if xd, ok := drag.(*xToWlDrag); ok && xd.transferFinished(ts) {
			return
		}
	}
}

func (d *dnd) destroy() {
	if d.currentDrag != nil {
		d.currentDrag.destroy()
		d.currentDrag = nil
	}
	for _, drag := range d.oldDrags {
		drag.destroy()
	}
	d.oldDrags = nil
	d.selection.destroy()
}

func (s *session) atomToClientAction(atom x.Atom) DnDAction {
	switch atom {
	case s.atoms.xdndActionCopy:
		return DnDActionCopy
	case s.atoms.xdndActionMove:
		return DnDActionMove
	}
	// XdndActionAsk is not supported
	return DnDActionNone
}

func (s *session) clientActionToAtom(action DnDAction) x.Atom {
	switch action {
	case DnDActionCopy:
		return s.atoms.xdndActionCopy
	case DnDActionMove:
		return s.atoms.xdndActionMove
	case DnDActionAsk:
		return s.atoms.xdndActionAsk
	}
	return x.None
}
