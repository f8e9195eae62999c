// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
)

type ownership int

const (
	ownershipNone ownership = iota
	ownershipLocal
	ownershipForeign
)

func (o ownership) String() string {
	switch o {
	case ownershipLocal:
		return "local"
	case ownershipForeign:
		return "foreign"
	}
	return "none"
}

// selectionHooks are the points where clipboard, primary and dnd differ.
type selectionHooks interface {
	handleClaimedByPeer(ev *xfixes.SelectionNotifyEvent)
	handleOffersChanged(added, removed []string)
	handleClientMessage(msg *ClientMessage) bool
}

// selection bridges one X selection atom.
type selection struct {
	s     *session
	hooks selectionHooks

	atom            x.Atom
	window          x.Window
	requestorWindow x.Window
	// timestamp of our last claim
	timestamp x.Timestamp
	owner     ownership

	// at most one of them is set
	wlSource *wlSource
	xSource  *x11Source

	wlToXTransfers []*transferWlToX
	xToWlTransfers []*transferXToWl
	timeoutTimer   eventloop.Timer

	onDisowned         func()
	onTransferStarted  func(ts x.Timestamp)
	onTransferFinished func(ts x.Timestamp)
}

func newSelection(s *session, atom x.Atom, hooks selectionHooks, opts WindowOptions) (*selection, error) {
	win, err := s.xc.CreateWindow(opts)
	if err != nil {
		return nil, err
	}
	sel := &selection{
		s:               s,
		hooks:           hooks,
		atom:            atom,
		window:          win,
		requestorWindow: win,
	}
	s.xc.SelectSelectionInput(win, atom,
		xfixes.SelectionEventMaskSetSelectionOwner|
			xfixes.SelectionEventMaskSelectionClientClose|
			xfixes.SelectionEventMaskSelectionWindowDestroy)
	s.flush()
	logger.Debugf("selection %s window: %d", s.atomName(atom), win)
	return sel, nil
}

func (sel *selection) name() string {
	return sel.s.atomName(sel.atom)
}

func (sel *selection) filterEvent(ev interface{}) bool {
	switch e := ev.(type) {
	case *x.SelectionNotifyEvent:
		return sel.handleSelectionNotify(e)
	case *x.PropertyNotifyEvent:
		return sel.handlePropertyNotify(e)
	case *x.SelectionRequestEvent:
		return sel.handleSelectionRequest(e)
	case *ClientMessage:
		return sel.hooks.handleClientMessage(e)
	case *xfixes.SelectionNotifyEvent:
		return sel.handleXfixesNotify(e)
	}
	return false
}

func (sel *selection) handleXfixesNotify(ev *xfixes.SelectionNotifyEvent) bool {
	if ev.Window != sel.window || ev.Selection != sel.atom {
		return false
	}
	sel.onOwnershipChanged(ev)
	return true
}

func (sel *selection) onOwnershipChanged(ev *xfixes.SelectionNotifyEvent) {
	prev := sel.owner
	switch {
	case ev.Owner == sel.window:
		sel.owner = ownershipLocal
		if ev.SelectionTimestamp > sel.timestamp || sel.timestamp == 0 {
			sel.timestamp = ev.SelectionTimestamp
		}
		if sel.wlSource != nil {
			sel.wlSource.timestamp = sel.timestamp
		}
		logger.Debugf("%s claimed by us, ts: %d", sel.name(), sel.timestamp)

	case ev.Owner == x.None && prev == ownershipLocal:
		sel.owner = ownershipNone
		logger.Debugf("%s disowned", sel.name())
		if sel.onDisowned != nil {
			sel.onDisowned()
		}

	default:
		if ev.Owner == x.None {
			sel.owner = ownershipNone
		} else {
			sel.owner = ownershipForeign
		}
		logger.Debugf("%s claimed by peer %d, ts: %d", sel.name(), ev.Owner, ev.SelectionTimestamp)
		sel.hooks.handleClaimedByPeer(ev)
	}
}

func (sel *selection) setOwned(own bool) {
	if own {
		sel.s.xc.SetSelectionOwner(sel.window, sel.atom, x.CurrentTime)
	} else {
		sel.s.xc.SetSelectionOwner(x.None, sel.atom, sel.timestamp)
	}
	sel.s.flush()
}

func (sel *selection) overwriteRequestorWindow(win x.Window) {
	if win == x.None {
		sel.requestorWindow = sel.window
		return
	}
	sel.requestorWindow = win
}

// setWlSource replaces the current source with src, nil clears it.
func (sel *selection) setWlSource(src *wlSource) {
	sel.destroySources()
	sel.wlSource = src
	if src != nil {
		src.timestamp = sel.timestamp
	}
}

// createX11Source replaces the current source with the foreign owner of ev.
// A nil event or an event without owner only clears it.
func (sel *selection) createX11Source(ev *xfixes.SelectionNotifyEvent) {
	sel.destroySources()
	if ev == nil || ev.Owner == x.None {
		return
	}
	sel.xSource = newX11Source(sel, ev)
}

func (sel *selection) destroySources() {
	if sel.wlSource != nil {
		sel.wlSource = nil
	}
	if sel.xSource != nil {
		sel.xSource.destroy()
		sel.xSource = nil
	}
}

func (sel *selection) handleSelectionRequest(ev *x.SelectionRequestEvent) bool {
	if ev.Selection != sel.atom {
		return false
	}
	if logger.GetLogLevel() == log.LevelDebug {
		logger.Debug(sel.s.eventToString(ev))
	}

	request := *ev
	if request.Property == x.None {
		// obsolete requestor
		request.Property = request.Target
	}

	if !sel.s.isXwaylandActive() {
		logger.Debugf("%s request while no Xwayland window is active", sel.name())
		sel.sendSelectionNotify(&request, false)
		return true
	}
	if request.Time != x.CurrentTime && request.Time < sel.timestamp {
		logger.Debugf("%s request is stale, request ts: %d, claim ts: %d",
			sel.name(), request.Time, sel.timestamp)
		sel.sendSelectionNotify(&request, false)
		return true
	}
	if sel.wlSource == nil {
		sel.sendSelectionNotify(&request, false)
		return true
	}
	sel.wlSource.handleSelectionRequest(&request)
	return true
}

func (sel *selection) sendSelectionNotify(ev *x.SelectionRequestEvent, success bool) {
	var property x.Atom
	if success {
		property = ev.Property
	}
	event := &x.SelectionNotifyEvent{
		Time:      ev.Time,
		Requestor: ev.Requestor,
		Selection: ev.Selection,
		Target:    ev.Target,
		Property:  property,
	}
	sel.s.xc.SendSelectionNotify(event)
	sel.s.flush()

	if logger.GetLogLevel() == log.LevelDebug {
		successStr := "success"
		if !success {
			successStr = "fail"
		}
		logger.Debugf("finish selection request %s {Requestor: %d, Selection: %s,"+
			" Target: %s, Property: %s}",
			successStr, ev.Requestor,
			sel.s.atomDesc(ev.Selection),
			sel.s.atomDesc(ev.Target),
			sel.s.atomDesc(ev.Property))
	}
}

func (sel *selection) handleSelectionNotify(ev *x.SelectionNotifyEvent) bool {
	if sel.xSource != nil && sel.xSource.handleSelectionNotify(ev) {
		return true
	}
	for _, t := range sel.xToWlTransfers {
		if t.handleSelectionNotify(ev) {
			return true
		}
	}
	return false
}

func (sel *selection) handlePropertyNotify(ev *x.PropertyNotifyEvent) bool {
	for _, t := range sel.xToWlTransfers {
		if t.handlePropertyNotify(ev) {
			return true
		}
	}
	for _, t := range sel.wlToXTransfers {
		if t.handlePropertyNotify(ev) {
			return true
		}
	}
	return false
}

// startTransferToWayland converts target into fd for a Wayland reader.
func (sel *selection) startTransferToWayland(target x.Atom, fd int) {
	var ts x.Timestamp
	if sel.xSource != nil {
		ts = sel.xSource.timestamp
	}
	t, err := newTransferXToWl(sel, target, fd, ts, sel.requestorWindow)
	if err != nil {
		logger.Warning("start transfer to wayland err:", err)
		return
	}
	sel.xToWlTransfers = append(sel.xToWlTransfers, t)
	logger.Debugf("%s transfer %s to wayland started", sel.name(), sel.s.atomName(target))
	if sel.onTransferStarted != nil {
		sel.onTransferStarted(ts)
	}
	sel.startTimeoutTransfersTimer()
}

// startTransferToX answers ev with the data read from fd.
func (sel *selection) startTransferToX(ev *x.SelectionRequestEvent, fd int) {
	t := newTransferWlToX(sel, ev, fd)
	sel.wlToXTransfers = append(sel.wlToXTransfers, t)
	logger.Debugf("%s transfer %s to x started", sel.name(), sel.s.atomName(ev.Target))
	sel.startTimeoutTransfersTimer()
	t.startTransferFromSource()
}

func (sel *selection) transferFinished(t transferer) {
	switch tt := t.(type) {
	case *transferWlToX:
		for i, item := range sel.wlToXTransfers {
			if item == tt {
				sel.wlToXTransfers = append(sel.wlToXTransfers[:i], sel.wlToXTransfers[i+1:]...)
				break
			}
		}
	case *transferXToWl:
		for i, item := range sel.xToWlTransfers {
			if item == tt {
				sel.xToWlTransfers = append(sel.xToWlTransfers[:i], sel.xToWlTransfers[i+1:]...)
				break
			}
		}
	}
	sel.endTimeoutTransfersTimer()
	if sel.onTransferFinished != nil {
		sel.onTransferFinished(t.base().timestamp)
	}
}

func (sel *selection) startTimeoutTransfersTimer() {
	if sel.timeoutTimer != nil {
		return
	}
	sel.timeoutTimer = sel.s.loop.AddTimer(sel.s.cfg.TransferTimeout, true, sel.timeoutTransfers)
}

// restartTimeoutTransfersTimer re-arms a running tick with the current
// transfer timeout.
func (sel *selection) restartTimeoutTransfersTimer() {
	if sel.timeoutTimer == nil {
		return
	}
	sel.timeoutTimer.Stop()
	sel.timeoutTimer = nil
	sel.startTimeoutTransfersTimer()
}

func (sel *selection) endTimeoutTransfersTimer() {
	if len(sel.wlToXTransfers) > 0 || len(sel.xToWlTransfers) > 0 {
		return
	}
	if sel.timeoutTimer != nil {
		sel.timeoutTimer.Stop()
		sel.timeoutTimer = nil
	}
}

func (sel *selection) timeoutTransfers() {
	var all []transferer
	for _, t := range sel.wlToXTransfers {
		all = append(all, t)
	}
	for _, t := range sel.xToWlTransfers {
		all = append(all, t)
	}
	for _, t := range all {
		if t.base().idleTick() {
			logger.Warningf("%s transfer %s timed out", sel.name(), sel.s.atomName(t.base().atom))
			t.endTransfer()
		}
	}
}

func (sel *selection) destroy() {
	for len(sel.wlToXTransfers) > 0 {
		sel.wlToXTransfers[0].endTransfer()
	}
	for len(sel.xToWlTransfers) > 0 {
		sel.xToWlTransfers[0].endTransfer()
	}
	sel.destroySources()
	if sel.timeoutTimer != nil {
		sel.timeoutTimer.Stop()
		sel.timeoutTimer = nil
	}
	sel.s.xc.DestroyWindow(sel.window)
	sel.s.flush()
}
