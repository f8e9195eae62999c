// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
)

// wlToXDrag is a drag started by a Wayland client over X windows.
type wlToXDrag struct {
	dnd   *dnd
	dsi   DragSource
	visit *xVisit

	onFinish func()
}

func newWlToXDrag(d *dnd, dsi DragSource) *wlToXDrag {
	return &wlToXDrag{
		dnd: d,
		dsi: dsi,
	}
}

func (drag *wlToXDrag) handleClientMessage(msg *ClientMessage) bool {
	if drag.visit != nil && drag.visit.handleClientMessage(msg) {
		return true
	}
	return false
}

func (drag *wlToXDrag) moveFilter(target Window, pos Point) DragEventReply {
	s := drag.dnd.s
	if drag.visit != nil && drag.visit.target == target {
		drag.visit.sendPosition(pos)
		return DragEventReplyTake
	}

	if drag.visit != nil {
		s.seat.SetDragTarget(nil, pos)
		drag.visit.leave()
		drag.visit = nil
	}

	if target == nil || !target.IsXwayland() {
		return DragEventReplyWayland
	}

	s.workspace.ActivateWindow(target)
	drag.visit = newXVisit(drag, target, pos)
	return DragEventReplyTake
}

func (drag *wlToXDrag) end(performed bool) bool {
	visit := drag.visit
	if visit == nil || visit.finished {
		return true
	}
	if performed {
		visit.drop()
	} else {
		visit.leave()
	}
	if visit.finished {
		return true
	}
	visit.onFinish = func() {
		if drag.onFinish != nil {
			drag.onFinish()
		}
	}
	return false
}

func (drag *wlToXDrag) setOnFinish(fn func()) {
	drag.onFinish = fn
}

func (drag *wlToXDrag) destroy() {
	if drag.visit != nil && drag.visit.dropTimer != nil {
		drag.visit.dropTimer.Stop()
		drag.visit.dropTimer = nil
	}
	drag.visit = nil
}

type positionState struct {
	pending bool
	cached  bool
	cache   Point
}

// xVisit is the stay of a Wayland drag over one X window.
type xVisit struct {
	drag   *wlToXDrag
	target Window
	window x.Window

	version          uint32
	supportedActions DnDAction
	preferredAction  DnDAction
	proposedAction   DnDAction

	accepts  bool
	pos      positionState
	entered  bool
	dropped  bool
	dropSent bool
	finished bool

	dropTimer eventloop.Timer
	onFinish  func()
}

func newXVisit(drag *wlToXDrag, target Window, pos Point) *xVisit {
	v := &xVisit{
		drag:   drag,
		target: target,
		window: target.XWindow(),
	}
	version, ok := v.targetVersion()
	if !ok {
		logger.Debugf("window %d is not dnd aware", v.window)
		v.doFinish()
		return v
	}
	v.version = version
	v.receiveOffer(pos)
	return v
}

// targetVersion reads the XDND version announced by the target.
func (v *xVisit) targetVersion() (uint32, bool) {
	s := v.drag.dnd.s
	reply, err := s.xc.GetProperty(false, v.window, s.atoms.xdndAware,
		x.GetPropertyTypeAny, 0, 1)
	if err != nil {
		logger.Warning(err)
		return 0, false
	}
	if reply.Type != x.AtomAtom {
		return 0, false
	}
	list, err := getAtomListFromReply(reply)
	if err != nil || len(list) == 0 {
		return 0, false
	}
	version := uint32(list[0])
	if version < 1 {
		return 0, false
	}
	if version > xdndVersion {
		version = xdndVersion
	}
	return version, true
}

func (v *xVisit) handleClientMessage(msg *ClientMessage) bool {
	if v.finished {
		return false
	}
	s := v.drag.dnd.s
	switch msg.Type {
	case s.atoms.xdndStatus:
		return v.handleStatus(msg)
	case s.atoms.xdndFinished:
		return v.handleFinished(msg)
	}
	return false
}

func (v *xVisit) handleStatus(msg *ClientMessage) bool {
	data := msg.Data
	if x.Window(data[0]) != v.window {
		// wrong target window
		return false
	}
	s := v.drag.dnd.s
	if logger.GetLogLevel() == log.LevelDebug {
		logger.Debug("visit got", s.clientMessageToString(msg))
	}

	v.accepts = data[1]&1 != 0
	v.pos.pending = false

	if !v.dropped {
		if v.accepts {
			mimes := v.drag.dsi.MimeTypes()
			if len(mimes) > 0 {
				v.drag.dsi.Accept(mimes[0])
			}
		} else {
			v.drag.dsi.Accept("")
		}
		v.preferredAction = s.atomToClientAction(x.Atom(data[4]))
		v.determineProposedAction()
		v.requestDragAndDropAction()
	}

	if v.pos.cached {
		// send the position we held back
		v.pos.cached = false
		v.sendPosition(v.pos.cache)
	} else if v.dropped {
		v.drop()
	}
	return true
}

func (v *xVisit) handleFinished(msg *ClientMessage) bool {
	data := msg.Data
	if x.Window(data[0]) != v.window {
		return false
	}
	if !v.dropped {
		// drop was never sent
		v.doFinish()
		return true
	}
	v.drag.dsi.Finished()
	v.doFinish()
	return true
}

func (v *xVisit) sendPosition(pos Point) {
	if v.finished {
		return
	}
	if v.pos.pending {
		v.pos.cache = pos
		v.pos.cached = true
		return
	}
	v.pos.pending = true

	s := v.drag.dnd.s
	packed := uint32(uint16(pos.X))<<16 | uint32(uint16(pos.Y))
	s.sendClientMessage(v.window, s.atoms.xdndPosition, [5]uint32{
		uint32(v.drag.dnd.window),
		0,
		packed,
		uint32(x.CurrentTime),
		uint32(s.clientActionToAtom(v.proposedAction)),
	})
}

func (v *xVisit) leave() {
	if v.finished || v.dropped {
		return
	}
	if v.entered {
		v.sendLeave()
	}
	v.doFinish()
}

func (v *xVisit) receiveOffer(pos Point) {
	v.retrieveSupportedActions()
	v.enter(pos)
}

func (v *xVisit) enter(pos Point) {
	v.entered = true
	v.sendEnter()
	v.sendPosition(pos)
}

func (v *xVisit) sendEnter() {
	s := v.drag.dnd.s
	var data [5]uint32
	data[0] = uint32(v.drag.dnd.window)
	data[1] = v.version << 24

	var targets []x.Atom
	for _, mime := range v.drag.dsi.MimeTypes() {
		atom := s.mimeTypeToAtom(mime)
		if atom != x.None && !containsAtom(targets, atom) {
			targets = append(targets, atom)
		}
	}
	if len(targets) > 3 {
		data[1] |= 1
		s.xc.ChangeProperty(x.PropModeReplace, v.drag.dnd.window, s.atoms.xdndTypeList,
			x.AtomAtom, 32, encodeAtoms(targets))
	} else {
		for i, atom := range targets {
			data[2+i] = uint32(atom)
		}
	}
	s.sendClientMessage(v.window, s.atoms.xdndEnter, data)
}

func (v *xVisit) sendDrop(ts x.Timestamp) {
	s := v.drag.dnd.s
	var data [5]uint32
	data[0] = uint32(v.drag.dnd.window)
	data[2] = uint32(ts)
	s.sendClientMessage(v.window, s.atoms.xdndDrop, data)
	v.dropSent = true
	v.drag.dsi.DropPerformed()

	if v.version < 2 {
		// no XdndFinished before version 2
		v.drag.dsi.Finished()
		v.doFinish()
	}
}

func (v *xVisit) sendLeave() {
	s := v.drag.dnd.s
	var data [5]uint32
	data[0] = uint32(v.drag.dnd.window)
	s.sendClientMessage(v.window, s.atoms.xdndLeave, data)
}

func (v *xVisit) drop() {
	if v.finished {
		return
	}
	v.dropped = true
	if !v.entered {
		return
	}
	v.startDropTimer()
	if v.pos.pending {
		// drop on the next status
		return
	}
	if !v.accepts {
		v.sendLeave()
		v.doFinish()
		return
	}
	v.sendDrop(x.CurrentTime)
}

func (v *xVisit) retrieveSupportedActions() {
	v.supportedActions = v.drag.dsi.SupportedActions()
	v.determineProposedAction()
	v.requestDragAndDropAction()
}

func (v *xVisit) determineProposedAction() {
	oldProposed := v.proposedAction
	switch {
	case v.supportedActions.Has(v.preferredAction):
		v.proposedAction = v.preferredAction
	case v.supportedActions.Has(DnDActionCopy):
		v.proposedAction = DnDActionCopy
	default:
		v.proposedAction = DnDActionNone
	}
	if oldProposed != v.proposedAction && v.entered {
		v.sendPosition(v.drag.dnd.s.seat.PointerPos())
	}
}

func (v *xVisit) requestDragAndDropAction() {
	action := v.preferredAction
	if action == DnDActionNone {
		action = DnDActionCopy
	}
	switch {
	case v.supportedActions.Has(action):
	case v.supportedActions.Has(DnDActionCopy):
		action = DnDActionCopy
	case v.supportedActions.Has(DnDActionMove):
		action = DnDActionMove
	}
	v.drag.dsi.SetSelectedAction(action)
}

// startDropTimer ends the visit when the target does not complete the drop
// handshake in time.
func (v *xVisit) startDropTimer() {
	if v.dropTimer != nil {
		return
	}
	s := v.drag.dnd.s
	v.dropTimer = s.loop.AddTimer(s.cfg.DropTimeout, false, func() {
		v.dropTimer = nil
		if v.finished {
			return
		}
		logger.Warningf("window %d did not finish the drop in time", v.window)
		if !v.dropSent {
			v.sendLeave()
		}
		v.doFinish()
	})
}

func (v *xVisit) doFinish() {
	v.finished = true
	v.pos.cached = false
	if v.dropTimer != nil {
		v.dropTimer.Stop()
		v.dropTimer = nil
	}
	if v.onFinish != nil {
		v.onFinish()
	}
}
