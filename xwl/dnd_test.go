// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"testing"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDndPeer = x.Window(0x510001)

func packPos(pos Point) uint32 {
	return uint32(uint16(pos.X))<<16 | uint32(uint16(pos.Y))
}

// startWaylandDrag starts a drag of ds on the seat and lets the bridge own
// XdndSelection for it.
func startWaylandDrag(t *testing.T, env *testEnv, ds *testDragSource) *wlToXDrag {
	a := env.atoms()
	d := env.bridge.dnd
	env.seat.dragSource = ds
	env.bridge.HandleDragStarted()

	drag, ok := d.currentDrag.(*wlToXDrag)
	require.True(t, ok)
	require.NotNil(t, d.wlSource)
	owner, ok := env.xc.lastOwner(a.xdndSelection)
	require.True(t, ok)
	require.Equal(t, d.window, owner.owner)
	require.True(t, env.claimByPeer(a.xdndSelection, d.window, d.window, 50))
	return drag
}

func newTestDragSource(mimes ...string) *testDragSource {
	return &testDragSource{
		testDataSource: testDataSource{
			mimes: mimes,
			data:  map[string][]byte{mimeTextPlainUtf8: []byte("dragged")},
		},
		supported: DnDActionCopy | DnDActionMove,
	}
}

func newAwareXWindow(env *testEnv, xwin x.Window, version uint32) *testWindow {
	env.xc.setAtomProp(xwin, env.atoms().xdndAware, x.Atom(version))
	return &testWindow{xwayland: true, xwin: xwin}
}

func sendStatus(t *testing.T, env *testEnv, from x.Window, accept bool, action x.Atom) {
	var flags uint32
	if accept {
		flags = 1
	}
	require.True(t, env.bridge.filterEvent(&ClientMessage{
		Window: env.bridge.dnd.window,
		Type:   env.atoms().xdndStatus,
		Data:   [5]uint32{uint32(from), flags, 0, 0, uint32(action)},
	}))
}

func Test_WaylandDragOverUnawareWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := &testWindow{xwayland: true, xwin: 0x700001}
	assert.Equal(t, DragEventReplyTake, env.bridge.DragMoveFilter(target, Point{X: 10, Y: 10}))
	assert.Equal(t, DragEventReplyTake, env.bridge.DragMoveFilter(target, Point{X: 12, Y: 10}))
	assert.Empty(t, env.xc.messages)
	assert.Equal(t, []Window{target}, env.ws.activated)

	env.bridge.HandleDragEnded(true)
	assert.Nil(t, d.currentDrag)
	assert.Empty(t, d.oldDrags)
	assert.Nil(t, d.wlSource)
	owner, _ := env.xc.lastOwner(a.xdndSelection)
	assert.Equal(t, x.Window(x.None), owner.owner)
	assert.Equal(t, 0, ds.dropPerformed)
}

func Test_WaylandDragOverWaylandWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	startWaylandDrag(t, env, newTestDragSource(mimeTextPlainUtf8))

	assert.Equal(t, DragEventReplyWayland, env.bridge.DragMoveFilter(&testWindow{}, Point{}))
	assert.Equal(t, DragEventReplyWayland, env.bridge.DragMoveFilter(nil, Point{}))
	assert.Empty(t, env.xc.messages)
}

func Test_NoDragMovesGoToWayland(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, DragEventReplyWayland, env.bridge.DragMoveFilter(&testWindow{xwayland: true}, Point{}))
}

func Test_WaylandDragDropOnX(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := newAwareXWindow(env, 0x700002, 5)
	env.seat.pos = Point{X: 100, Y: 200}
	assert.Equal(t, DragEventReplyTake, env.bridge.DragMoveFilter(target, Point{X: 100, Y: 200}))
	assert.Equal(t, DnDActionCopy, ds.selected)

	enter := env.xc.messagesTo(target.xwin, a.xdndEnter)
	require.Len(t, enter, 1)
	assert.Equal(t, [5]uint32{uint32(d.window), 5 << 24, uint32(a.utf8String), 0, 0}, enter[0].Data)
	positions := env.xc.messagesTo(target.xwin, a.xdndPosition)
	require.Len(t, positions, 1)
	assert.Equal(t, [5]uint32{uint32(d.window), 0, packPos(Point{X: 100, Y: 200}),
		uint32(x.CurrentTime), uint32(a.xdndActionCopy)}, positions[0].Data)

	// held back until the target answers
	env.bridge.DragMoveFilter(target, Point{X: 101, Y: 200})
	env.bridge.DragMoveFilter(target, Point{X: 102, Y: 201})
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndPosition), 1)

	// the preferred action changes the proposal, it goes out at once
	env.seat.pos = Point{X: 102, Y: 201}
	sendStatus(t, env, target.xwin, true, a.xdndActionMove)
	assert.Equal(t, []string{mimeTextPlainUtf8}, ds.accepted)
	assert.Equal(t, DnDActionMove, ds.selected)
	positions = env.xc.messagesTo(target.xwin, a.xdndPosition)
	require.Len(t, positions, 2)
	assert.Equal(t, packPos(Point{X: 102, Y: 201}), positions[1].Data[2])
	assert.Equal(t, uint32(a.xdndActionMove), positions[1].Data[4])

	// then the held back one
	sendStatus(t, env, target.xwin, true, a.xdndActionMove)
	positions = env.xc.messagesTo(target.xwin, a.xdndPosition)
	require.Len(t, positions, 3)
	assert.Equal(t, packPos(Point{X: 102, Y: 201}), positions[2].Data[2])

	sendStatus(t, env, target.xwin, true, a.xdndActionMove)
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndPosition), 3)

	env.bridge.HandleDragEnded(true)
	drops := env.xc.messagesTo(target.xwin, a.xdndDrop)
	require.Len(t, drops, 1)
	assert.Equal(t, uint32(d.window), drops[0].Data[0])
	assert.Equal(t, 1, ds.dropPerformed)
	require.Len(t, d.oldDrags, 1)

	// the target fetches the data
	prop := env.xc.atom("XdndData")
	require.True(t, env.bridge.filterEvent(&x.SelectionRequestEvent{
		Time:      x.CurrentTime,
		Owner:     d.window,
		Requestor: target.xwin,
		Selection: a.xdndSelection,
		Target:    a.utf8String,
		Property:  prop,
	}))
	env.loop.pumpUntil(t, func() bool { return len(d.wlToXTransfers) == 0 })
	assert.Equal(t, "dragged", string(env.xc.prop(target.xwin, prop).data))

	require.True(t, env.bridge.filterEvent(&ClientMessage{
		Window: d.window,
		Type:   a.xdndFinished,
		Data:   [5]uint32{uint32(target.xwin), 1, uint32(a.xdndActionMove)},
	}))
	assert.Equal(t, 1, ds.finished)
	assert.Empty(t, env.loop.activeTimers())
	// destroyed on the next loop turn
	assert.Len(t, d.oldDrags, 0)
	assert.NotNil(t, d.wlSource)
	env.loop.runPosted()
	assert.Nil(t, d.wlSource)
	owner, _ := env.xc.lastOwner(a.xdndSelection)
	assert.Equal(t, x.Window(x.None), owner.owner)
}

func Test_WaylandDropWhilePositionPending(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := newAwareXWindow(env, 0x700003, 5)
	env.bridge.DragMoveFilter(target, Point{X: 1, Y: 1})
	env.bridge.HandleDragEnded(true)
	assert.Empty(t, env.xc.messagesTo(target.xwin, a.xdndDrop))

	sendStatus(t, env, target.xwin, true, a.xdndActionCopy)
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndDrop), 1)
	assert.Equal(t, 1, ds.dropPerformed)
}

func Test_WaylandDropWithoutFinished(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := newAwareXWindow(env, 0x700006, 5)
	env.bridge.DragMoveFilter(target, Point{X: 1, Y: 1})
	sendStatus(t, env, target.xwin, true, a.xdndActionCopy)
	env.bridge.HandleDragEnded(true)
	require.Len(t, env.xc.messagesTo(target.xwin, a.xdndDrop), 1)
	require.Len(t, d.oldDrags, 1)

	timers := env.loop.activeTimers()
	require.Len(t, timers, 1)
	assert.Equal(t, env.bridge.s.cfg.DropTimeout, timers[0].interval)
	assert.False(t, timers[0].repeat)

	// the target never sends XdndFinished
	env.loop.fireTimers()
	assert.Empty(t, d.oldDrags)
	assert.Empty(t, env.xc.messagesTo(target.xwin, a.xdndLeave))
	assert.Equal(t, 0, ds.finished)
	env.loop.runPosted()
	assert.Nil(t, d.wlSource)
	owner, _ := env.xc.lastOwner(a.xdndSelection)
	assert.Equal(t, x.Window(x.None), owner.owner)
	assert.Empty(t, env.loop.activeTimers())

	// a late answer is ignored
	assert.False(t, env.bridge.filterEvent(&ClientMessage{
		Window: d.window,
		Type:   a.xdndFinished,
		Data:   [5]uint32{uint32(target.xwin), 1, uint32(a.xdndActionCopy)},
	}))
	assert.Equal(t, 0, ds.finished)
}

func Test_WaylandDropWithoutStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := newAwareXWindow(env, 0x700007, 5)
	env.bridge.DragMoveFilter(target, Point{X: 1, Y: 1})
	env.bridge.HandleDragEnded(true)
	require.Len(t, d.oldDrags, 1)

	env.loop.fireTimers()
	assert.Empty(t, env.xc.messagesTo(target.xwin, a.xdndDrop))
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndLeave), 1)
	assert.Equal(t, 0, ds.dropPerformed)
	assert.Empty(t, d.oldDrags)
	env.loop.runPosted()
	assert.Nil(t, d.wlSource)
}

func Test_WaylandDropRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := newAwareXWindow(env, 0x700004, 5)
	env.bridge.DragMoveFilter(target, Point{X: 1, Y: 1})
	sendStatus(t, env, target.xwin, false, x.None)
	assert.Equal(t, []string{""}, ds.accepted)

	env.bridge.HandleDragEnded(true)
	assert.Empty(t, env.xc.messagesTo(target.xwin, a.xdndDrop))
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndLeave), 1)
	assert.Equal(t, 0, ds.dropPerformed)
	assert.Empty(t, d.oldDrags)
	assert.Nil(t, d.wlSource)
}

func Test_WaylandDragOldTarget(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	ds := newTestDragSource(mimeTextPlainUtf8)
	startWaylandDrag(t, env, ds)

	target := newAwareXWindow(env, 0x700005, 1)
	env.bridge.DragMoveFilter(target, Point{X: 1, Y: 1})
	enter := env.xc.messagesTo(target.xwin, a.xdndEnter)
	require.Len(t, enter, 1)
	assert.Equal(t, uint32(1), enter[0].Data[1]>>24)

	sendStatus(t, env, target.xwin, true, x.None)
	env.bridge.HandleDragEnded(true)
	// no XdndFinished before version 2
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndDrop), 1)
	assert.Equal(t, 1, ds.finished)
	assert.Empty(t, env.bridge.dnd.oldDrags)
}

func Test_WaylandDragTypeList(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	startWaylandDrag(t, env, newTestDragSource(mimeTextPlainUtf8, mimeTextPlain,
		mimeURIList, mimeXURI, "image/png"))

	target := newAwareXWindow(env, 0x700006, 7)
	env.bridge.DragMoveFilter(target, Point{})
	enter := env.xc.messagesTo(target.xwin, a.xdndEnter)
	require.Len(t, enter, 1)
	assert.Equal(t, uint32(5<<24|1), enter[0].Data[1])
	assert.Equal(t, [3]uint32{}, [3]uint32{enter[0].Data[2], enter[0].Data[3], enter[0].Data[4]})

	list := env.xc.prop(d.window, a.xdndTypeList)
	require.NotNil(t, list)
	assert.Equal(t, encodeAtoms([]x.Atom{a.utf8String, a.text, a.uriList, env.xc.atom("image/png")}), list.data)
}

func Test_WaylandDragLeavesToWayland(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	startWaylandDrag(t, env, newTestDragSource(mimeTextPlainUtf8))

	target := newAwareXWindow(env, 0x700007, 5)
	env.bridge.DragMoveFilter(target, Point{})
	assert.Equal(t, DragEventReplyWayland, env.bridge.DragMoveFilter(&testWindow{}, Point{X: 5, Y: 5}))
	assert.Len(t, env.xc.messagesTo(target.xwin, a.xdndLeave), 1)
	require.NotEmpty(t, env.seat.dragTargets)
	assert.Nil(t, env.seat.dragTargets[len(env.seat.dragTargets)-1].target)

	// a late status of the old target is not ours any more
	assert.False(t, env.bridge.filterEvent(&ClientMessage{
		Window: env.bridge.dnd.window,
		Type:   a.xdndStatus,
		Data:   [5]uint32{uint32(target.xwin), 1},
	}))
}

func Test_WaylandDragKeepsXdndSelection(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	startWaylandDrag(t, env, newTestDragSource(mimeTextPlainUtf8))

	require.True(t, env.claimByPeer(a.xdndSelection, d.window, testDndPeer, 60))
	owner, _ := env.xc.lastOwner(a.xdndSelection)
	assert.Equal(t, d.window, owner.owner)

	require.True(t, env.claimByPeer(a.xdndSelection, d.window, d.window, 61))
	require.True(t, env.claimByPeer(a.xdndSelection, d.window, x.None, 62))
	owner, _ = env.xc.lastOwner(a.xdndSelection)
	assert.Equal(t, d.window, owner.owner)
}

// startXDrag lets testDndPeer own XdndSelection with the button held.
func startXDrag(t *testing.T, env *testEnv) *xToWlDrag {
	a := env.atoms()
	d := env.bridge.dnd
	env.seat.focus = &testWindow{xwayland: true, xwin: 0x400002}
	env.seat.pressed[btnLeft] = true
	require.True(t, env.claimByPeer(a.xdndSelection, d.window, testDndPeer, 900))
	drag, ok := d.currentDrag.(*xToWlDrag)
	require.True(t, ok)
	require.Equal(t, DragSource(drag.dataSource), env.seat.dragSource)

	// the seat reports our own drag back
	env.bridge.HandleDragStarted()
	require.Equal(t, drag, d.currentDrag)
	return drag
}

func xdndMessage(win x.Window, typ x.Atom, data ...uint32) *ClientMessage {
	msg := &ClientMessage{Window: win, Type: typ}
	copy(msg.Data[:], data)
	return msg
}

// enterWaylandWindow moves the X drag over a Wayland window and lets the
// peer enter and position there.
func enterWaylandWindow(t *testing.T, env *testEnv, drag *xToWlDrag, target *testWindow) *wlVisit {
	a := env.atoms()
	assert.Equal(t, DragEventReplyIgnore, env.bridge.DragMoveFilter(target, Point{X: 40, Y: 40}))
	visit := drag.visit
	require.NotNil(t, visit)
	assert.True(t, env.xc.windows[visit.window].mapped)
	assert.Equal(t, visit.window, env.bridge.dnd.requestorWindow)

	require.True(t, env.bridge.filterEvent(xdndMessage(visit.window, a.xdndEnter,
		uint32(testDndPeer), 5<<24, uint32(a.utf8String), uint32(a.text))))
	assert.Equal(t, []string{mimeTextPlainUtf8, mimeTextPlain}, drag.dataSource.MimeTypes())
	require.NotEmpty(t, env.seat.dragTargets)
	assert.Equal(t, target, env.seat.dragTargets[len(env.seat.dragTargets)-1].target)

	// the Wayland target picked copy
	drag.dataSource.SetSelectedAction(DnDActionCopy)
	require.True(t, env.bridge.filterEvent(xdndMessage(visit.window, a.xdndPosition,
		uint32(testDndPeer), 0, packPos(Point{X: 40, Y: 40}), 1000, uint32(a.xdndActionCopy))))
	status := env.xc.messagesTo(testDndPeer, a.xdndStatus)
	require.NotEmpty(t, status)
	assert.Equal(t, [5]uint32{uint32(visit.window), 3, 0, 0, uint32(a.xdndActionCopy)},
		status[len(status)-1].Data)
	assert.Equal(t, DnDActionCopy, drag.dataSource.SupportedActions())
	return visit
}

func Test_XDragNeedsButton(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd

	env.seat.focus = &testWindow{xwayland: true}
	require.True(t, env.claimByPeer(a.xdndSelection, d.window, testDndPeer, 900))
	assert.Nil(t, d.currentDrag)
	assert.Nil(t, env.seat.dragSource)

	env.seat.focus = &testWindow{}
	env.seat.pressed[btnLeft] = true
	require.True(t, env.claimByPeer(a.xdndSelection, d.window, testDndPeer, 901))
	assert.Nil(t, d.currentDrag)
}

func Test_XDragDropOnWayland(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	drag := startXDrag(t, env)
	target := &testWindow{}
	visit := enterWaylandWindow(t, env, drag, target)

	require.True(t, env.bridge.filterEvent(xdndMessage(visit.window, a.xdndDrop,
		uint32(testDndPeer), 0, 1234)))
	assert.True(t, visit.finished)
	assert.False(t, env.xc.windows[visit.window].mapped)

	// the seat drops on the Wayland target
	drag.dataSource.DropPerformed()
	env.bridge.HandleDragEnded(true)
	require.Len(t, d.oldDrags, 1)
	assert.Len(t, env.loop.activeTimers(), 1)

	r, w := newPipe(t)
	result := readAll(r)
	drag.dataSource.RequestData(mimeTextPlainUtf8, w)
	require.Len(t, d.xToWlTransfers, 1)
	tw := env.xc.lastWindow()
	assert.Equal(t, visit.window, env.xc.windows[tw].opts.Parent)
	assert.Equal(t, convertCall{
		requestor: tw,
		selection: a.xdndSelection,
		target:    a.utf8String,
		property:  a.wlSelection,
		ts:        1234,
	}, env.xc.converts[len(env.xc.converts)-1])
	assert.Empty(t, env.xc.messagesTo(testDndPeer, a.xdndFinished))

	env.xc.props[propKey{tw, a.wlSelection}] = &fakeProp{typ: a.utf8String, format: 8, data: []byte("from x")}
	require.True(t, env.bridge.filterEvent(&x.SelectionNotifyEvent{
		Time:      1234,
		Requestor: tw,
		Selection: a.xdndSelection,
		Target:    a.utf8String,
		Property:  a.wlSelection,
	}))
	assert.Equal(t, "from x", string(waitResult(t, result)))

	finished := env.xc.messagesTo(testDndPeer, a.xdndFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, [5]uint32{uint32(visit.window), 1, uint32(a.xdndActionCopy)}, finished[0].Data)
	assert.Empty(t, env.loop.activeTimers())

	env.loop.runPosted()
	assert.Empty(t, d.oldDrags)
	assert.Contains(t, env.xc.destroyed, visit.window)
	assert.True(t, drag.dataSource.cancelled)
}

func Test_XDropTimesOut(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	drag := startXDrag(t, env)
	visit := enterWaylandWindow(t, env, drag, &testWindow{})

	require.True(t, env.bridge.filterEvent(xdndMessage(visit.window, a.xdndDrop,
		uint32(testDndPeer), 0, 1234)))
	drag.dataSource.DropPerformed()
	env.bridge.HandleDragEnded(true)
	require.Len(t, d.oldDrags, 1)

	timers := env.loop.activeTimers()
	require.Len(t, timers, 1)
	assert.Equal(t, env.bridge.s.cfg.DropTimeout, timers[0].interval)
	assert.False(t, timers[0].repeat)

	// the Wayland target never asks for data
	env.loop.fireTimers()
	assert.Len(t, env.xc.messagesTo(testDndPeer, a.xdndFinished), 1)
	env.loop.runPosted()
	assert.Empty(t, d.oldDrags)
	assert.Contains(t, env.xc.destroyed, visit.window)
}

func Test_XDragCancelled(t *testing.T) {
	env := newTestEnv(t, nil)
	d := env.bridge.dnd
	drag := startXDrag(t, env)
	visit := enterWaylandWindow(t, env, drag, &testWindow{})

	env.bridge.HandleDragEnded(false)
	assert.Nil(t, d.currentDrag)
	assert.Empty(t, d.oldDrags)
	assert.Contains(t, env.xc.destroyed, visit.window)
	assert.True(t, drag.dataSource.cancelled)
}

func Test_XDragSwitchesWaylandWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.atoms()
	d := env.bridge.dnd
	drag := startXDrag(t, env)
	first := enterWaylandWindow(t, env, drag, &testWindow{})

	second := &testWindow{}
	env.bridge.DragMoveFilter(second, Point{X: 50, Y: 50})
	require.NotNil(t, drag.visit)
	assert.NotEqual(t, first, drag.visit)
	assert.Equal(t, []*wlVisit{first}, drag.oldVisits)
	assert.False(t, env.xc.windows[first.window].mapped)
	assert.Equal(t, drag.visit.window, d.requestorWindow)

	// the peer leaves the old proxy window
	require.True(t, env.bridge.filterEvent(xdndMessage(first.window, a.xdndLeave, uint32(testDndPeer))))
	assert.Empty(t, drag.oldVisits)
	assert.NotContains(t, env.xc.destroyed, first.window)
	env.loop.runPosted()
	assert.Contains(t, env.xc.destroyed, first.window)
	assert.Equal(t, drag.visit.window, d.requestorWindow)
}

func Test_XDragBackOverX(t *testing.T) {
	env := newTestEnv(t, nil)
	drag := startXDrag(t, env)
	visit := enterWaylandWindow(t, env, drag, &testWindow{})

	xwin := &testWindow{xwayland: true, xwin: 0x700010}
	assert.Equal(t, DragEventReplyIgnore, env.bridge.DragMoveFilter(xwin, Point{X: 1, Y: 1}))
	assert.Nil(t, drag.visit)
	assert.Equal(t, Window(xwin), env.ws.active)
	assert.Nil(t, env.seat.dragTargets[len(env.seat.dragTargets)-1].target)
	assert.Equal(t, env.bridge.dnd.window, env.bridge.dnd.requestorWindow)
	assert.False(t, env.xc.windows[visit.window].mapped)
}
