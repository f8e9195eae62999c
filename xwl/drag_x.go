// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/log"
	"github.com/linuxdeepin/go-lib/strv"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
	"golang.org/x/xerrors"
)

type dataRequest struct {
	timestamp x.Timestamp
	done      bool
}

// xToWlDrag is a drag started by an X client and dropped on Wayland
// windows.
type xToWlDrag struct {
	dnd        *dnd
	source     *x11Source
	dataSource *proxyDragSource

	visit     *wlVisit
	oldVisits []*wlVisit

	dataRequests       []dataRequest
	performed          bool
	lastSelectedAction DnDAction
	dropTimer          eventloop.Timer

	finished bool
	onFinish func()
}

func newXToWlDrag(d *dnd, source *x11Source) (*xToWlDrag, error) {
	drag := &xToWlDrag{
		dnd:    d,
		source: source,
	}
	drag.dataSource = newProxyDragSource(drag.requestData)
	drag.dataSource.onDropPerformed = drag.handleDropPerformed
	drag.dataSource.onFinished = drag.handleDnDFinished

	err := d.s.seat.StartDrag(drag.dataSource)
	if err != nil {
		return nil, xerrors.Errorf("start seat drag: %w", err)
	}
	return drag, nil
}

func (drag *xToWlDrag) requestData(mimeType string, fd int) {
	drag.source.startTransfer(mimeType, fd)
}

func (drag *xToWlDrag) dataRequested(ts x.Timestamp) {
	drag.dataRequests = append(drag.dataRequests, dataRequest{timestamp: ts})
}

// transferFinished marks the first open request with ts done.
func (drag *xToWlDrag) transferFinished(ts x.Timestamp) bool {
	for i := range drag.dataRequests {
		req := &drag.dataRequests[i]
		if req.timestamp == ts && !req.done {
			req.done = true
			drag.checkForFinished()
			return true
		}
	}
	return false
}

func (drag *xToWlDrag) handleDropPerformed() {
	drag.performed = true
	if drag.visit != nil {
		visit := drag.visit
		visit.onFinish = func(*wlVisit) {
			drag.checkForFinished()
		}
		drag.dropTimer = drag.dnd.s.loop.AddTimer(drag.dnd.s.cfg.DropTimeout, false, func() {
			drag.dropTimer = nil
			if !visit.entered || !visit.dropHandled {
				// X client timed out
				drag.finish()
			} else if len(drag.dataRequests) == 0 {
				// Wayland client timed out
				visit.sendFinished()
				drag.finish()
			}
		})
	}
	drag.checkForFinished()
}

func (drag *xToWlDrag) handleDnDFinished() {
	drag.checkForFinished()
}

func (drag *xToWlDrag) handleClientMessage(msg *ClientMessage) bool {
	for _, visit := range drag.oldVisits {
		if visit.handleClientMessage(msg) {
			return true
		}
	}
	if drag.visit != nil && drag.visit.handleClientMessage(msg) {
		return true
	}
	return false
}

func (drag *xToWlDrag) moveFilter(target Window, pos Point) DragEventReply {
	s := drag.dnd.s
	if drag.visit != nil && drag.visit.target == target {
		return DragEventReplyIgnore
	}

	hasCurrent := drag.visit != nil
	if hasCurrent {
		visit := drag.visit
		drag.visit = nil
		if visit.leave() {
			visit.destroy()
		} else {
			drag.oldVisits = append(drag.oldVisits, visit)
			visit.onFinish = drag.clearOldVisit
		}
	}

	if target == nil || target.IsXwayland() {
		// X handles it
		if target != nil && s.workspace.ActiveWindow() != target {
			s.workspace.ActivateWindow(target)
		}
		if hasCurrent {
			s.seat.SetDragTarget(nil, pos)
		}
		return DragEventReplyIgnore
	}

	visit, err := newWlVisit(drag, target)
	if err != nil {
		logger.Warning(err)
		return DragEventReplyIgnore
	}
	visit.onOffers = drag.setOffers
	drag.visit = visit
	return DragEventReplyIgnore
}

func (drag *xToWlDrag) clearOldVisit(visit *wlVisit) {
	for i, item := range drag.oldVisits {
		if item == visit {
			drag.oldVisits = append(drag.oldVisits[:i], drag.oldVisits[i+1:]...)
			drag.dnd.s.deferDestroy(visit.destroy)
			return
		}
	}
}

func (drag *xToWlDrag) setOffers(offers []MimeOffer) {
	drag.source.setOffers(offers)
	mimes := offerMimes(offers)
	if !mimeTypesEqual(drag.dataSource.MimeTypes(), mimes) {
		drag.dataSource.setMimeTypes(mimes)
	}
	drag.setDragTarget()
}

func (drag *xToWlDrag) setDragTarget() {
	if drag.visit == nil {
		return
	}
	s := drag.dnd.s
	target := drag.visit.target
	s.workspace.ActivateWindow(target)
	s.seat.SetDragTarget(target, s.seat.PointerPos())
}

func (drag *xToWlDrag) selectedDragAndDropAction() DnDAction {
	// the selected action is reset by the seat after the drop
	if !drag.performed {
		drag.lastSelectedAction = drag.dataSource.SelectedAction()
	}
	return drag.lastSelectedAction
}

func (drag *xToWlDrag) setDragAndDropAction(action DnDAction) {
	drag.dataSource.setSupportedActions(action)
}

func (drag *xToWlDrag) checkForFinished() bool {
	if drag.visit == nil {
		drag.finish()
		return true
	}
	if !drag.visit.finished {
		return false
	}
	if len(drag.dataRequests) == 0 {
		// wait for the Wayland target to ask
		return false
	}
	for _, req := range drag.dataRequests {
		if !req.done {
			return false
		}
	}
	drag.visit.sendFinished()
	drag.finish()
	return true
}

func (drag *xToWlDrag) hasPendingRequests() bool {
	for _, req := range drag.dataRequests {
		if !req.done {
			return true
		}
	}
	return false
}

func (drag *xToWlDrag) finish() {
	if drag.finished {
		return
	}
	drag.finished = true
	if drag.dropTimer != nil {
		drag.dropTimer.Stop()
		drag.dropTimer = nil
	}
	if drag.onFinish != nil {
		drag.onFinish()
	}
}

func (drag *xToWlDrag) end(performed bool) bool {
	if drag.finished {
		return true
	}
	if !performed && !drag.hasPendingRequests() {
		return true
	}
	return false
}

func (drag *xToWlDrag) setOnFinish(fn func()) {
	drag.onFinish = fn
	if drag.finished {
		fn()
	}
}

func (drag *xToWlDrag) destroy() {
	if drag.dropTimer != nil {
		drag.dropTimer.Stop()
		drag.dropTimer = nil
	}
	if drag.visit != nil {
		drag.visit.destroy()
		drag.visit = nil
	}
	for _, visit := range drag.oldVisits {
		visit.destroy()
	}
	drag.oldVisits = nil
	drag.dataSource.Cancel()
}

// wlVisit is the stay of an X drag over one Wayland window. A proxy window
// on top of everything receives the XDND messages for it.
type wlVisit struct {
	drag   *xToWlDrag
	target Window
	window x.Window

	srcWindow  x.Window
	version    uint32
	action     DnDAction
	actionAtom x.Atom

	mapped      bool
	entered     bool
	dropHandled bool
	finished    bool
	destroyed   bool

	onOffers func([]MimeOffer)
	onFinish func(*wlVisit)
}

func newWlVisit(drag *xToWlDrag, target Window) (*wlVisit, error) {
	s := drag.dnd.s
	win, err := s.xc.CreateWindow(WindowOptions{
		Width:     dndWindowSize,
		Height:    dndWindowSize,
		EventMask: x.EventMaskSubstructureNotify | x.EventMaskPropertyChange,
	})
	if err != nil {
		return nil, xerrors.Errorf("create visit window: %w", err)
	}
	v := &wlVisit{
		drag:   drag,
		target: target,
		window: win,
	}
	drag.dnd.overwriteRequestorWindow(win)

	s.xc.ChangeProperty(x.PropModeReplace, win, s.atoms.xdndAware,
		x.AtomAtom, 32, encodeCard32(xdndVersion))
	s.xc.MapWindow(win)
	s.flush()
	v.mapped = true
	return v, nil
}

// leave reports whether the visit is finished and can go away.
func (v *wlVisit) leave() bool {
	v.drag.dnd.overwriteRequestorWindow(x.None)
	v.unmapProxyWindow()
	return v.finished
}

func (v *wlVisit) handleClientMessage(msg *ClientMessage) bool {
	if msg.Window != v.window {
		return false
	}
	s := v.drag.dnd.s
	if logger.GetLogLevel() == log.LevelDebug {
		logger.Debug("visit got", s.clientMessageToString(msg))
	}
	switch msg.Type {
	case s.atoms.xdndEnter:
		return v.handleEnter(msg)
	case s.atoms.xdndPosition:
		return v.handlePosition(msg)
	case s.atoms.xdndDrop:
		return v.handleDrop(msg)
	case s.atoms.xdndLeave:
		return v.handleLeave(msg)
	}
	return false
}

func (v *wlVisit) handleEnter(msg *ClientMessage) bool {
	if v.entered {
		return true
	}
	v.entered = true
	data := msg.Data
	v.srcWindow = x.Window(data[0])
	v.version = data[1] >> 24

	var offers []MimeOffer
	if data[1]&1 == 0 {
		offers = v.offersFromAtoms([]x.Atom{x.Atom(data[2]), x.Atom(data[3]), x.Atom(data[4])})
	} else {
		offers = v.getMimesFromWinProperty()
	}
	if v.onOffers != nil {
		v.onOffers(offers)
	}
	return true
}

func (v *wlVisit) offersFromAtoms(list []x.Atom) []MimeOffer {
	s := v.drag.dnd.s
	var offers []MimeOffer
	var mimes strv.Strv
	for _, atom := range list {
		if atom == x.None {
			continue
		}
		for _, mime := range s.atomToMimeTypes(atom) {
			if mimes.Contains(mime) {
				continue
			}
			mimes = append(mimes, mime)
			offers = append(offers, MimeOffer{Mime: mime, Atom: atom})
		}
	}
	return offers
}

func (v *wlVisit) getMimesFromWinProperty() []MimeOffer {
	s := v.drag.dnd.s
	reply, err := s.xc.GetProperty(false, v.srcWindow, s.atoms.xdndTypeList,
		x.AtomAtom, 0, 0x1fffffff)
	if err != nil {
		logger.Warning(err)
		return nil
	}
	if reply.Type != x.AtomAtom {
		return nil
	}
	list, err := getAtomListFromReply(reply)
	if err != nil {
		logger.Warning(err)
		return nil
	}
	return v.offersFromAtoms(list)
}

func (v *wlVisit) handlePosition(msg *ClientMessage) bool {
	s := v.drag.dnd.s
	data := msg.Data
	v.srcWindow = x.Window(data[0])

	if v.target == nil {
		// not over a Wayland window
		v.action = DnDActionNone
		v.actionAtom = x.None
		v.sendStatus()
		return true
	}

	v.drag.source.timestamp = x.Timestamp(data[3])

	actionAtom := s.atoms.xdndActionCopy
	if v.version > 1 {
		actionAtom = x.Atom(data[4])
	}
	action := s.atomToClientAction(actionAtom)
	if action == DnDActionNone {
		// default to copy
		action = DnDActionCopy
		actionAtom = s.atoms.xdndActionCopy
	}
	v.actionAtom = actionAtom
	if v.action != action {
		v.action = action
		v.drag.setDragAndDropAction(action)
	}

	v.sendStatus()
	return true
}

func (v *wlVisit) handleDrop(msg *ClientMessage) bool {
	v.dropHandled = true
	data := msg.Data
	v.srcWindow = x.Window(data[0])
	v.drag.source.timestamp = x.Timestamp(data[2])
	v.doFinish()
	return true
}

func (v *wlVisit) handleLeave(msg *ClientMessage) bool {
	v.entered = false
	v.srcWindow = x.Window(msg.Data[0])
	v.doFinish()
	return true
}

func (v *wlVisit) targetAcceptsAction() bool {
	if v.action == DnDActionNone {
		return false
	}
	selected := v.drag.selectedDragAndDropAction()
	return selected == v.action || selected == DnDActionCopy
}

func (v *wlVisit) sendStatus() {
	s := v.drag.dnd.s
	// we want positions also inside the window
	flags := uint32(1 << 1)
	var actionAtom x.Atom
	if v.targetAcceptsAction() {
		flags |= 1
		actionAtom = v.actionAtom
	}
	s.sendClientMessage(v.srcWindow, s.atoms.xdndStatus,
		[5]uint32{uint32(v.window), flags, 0, 0, uint32(actionAtom)})
}

func (v *wlVisit) sendFinished() {
	s := v.drag.dnd.s
	accepted := v.entered && v.action != DnDActionNone
	var data [5]uint32
	data[0] = uint32(v.window)
	if accepted {
		data[1] = 1
		data[2] = uint32(v.actionAtom)
	}
	s.sendClientMessage(v.srcWindow, s.atoms.xdndFinished, data)
}

func (v *wlVisit) unmapProxyWindow() {
	if !v.mapped {
		return
	}
	s := v.drag.dnd.s
	s.xc.UnmapWindow(v.window)
	s.flush()
	v.mapped = false
}

func (v *wlVisit) doFinish() {
	v.finished = true
	v.unmapProxyWindow()
	if v.onFinish != nil {
		v.onFinish(v)
	}
}

func (v *wlVisit) destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	s := v.drag.dnd.s
	if v.drag.dnd.requestorWindow == v.window {
		v.drag.dnd.overwriteRequestorWindow(x.None)
	}
	s.xc.DestroyWindow(v.window)
	s.flush()
}
