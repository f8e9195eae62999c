// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"io"
	"os"
	"testing"
	"time"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type propKey struct {
	win  x.Window
	prop x.Atom
}

type fakeProp struct {
	typ    x.Atom
	format uint8
	data   []byte
}

type fakeXWindow struct {
	opts   WindowOptions
	mapped bool
	mask   uint32
}

type convertCall struct {
	requestor x.Window
	selection x.Atom
	target    x.Atom
	property  x.Atom
	ts        x.Timestamp
}

type ownerCall struct {
	owner     x.Window
	selection x.Atom
	ts        x.Timestamp
}

type sentMessage struct {
	dest x.Window
	msg  ClientMessage
}

// fakeXClient is an in-memory X server, it records requests and keeps
// windows and properties.
type fakeXClient struct {
	atoms      map[string]x.Atom
	names      map[x.Atom]string
	nextAtom   x.Atom
	nextWindow x.Window

	windows   map[x.Window]*fakeXWindow
	destroyed []x.Window
	props     map[propKey]*fakeProp

	converts      []convertCall
	owners        []ownerCall
	notifies      []x.SelectionNotifyEvent
	messages      []sentMessage
	propChanges   []propKey
	selectedInput map[x.Atom]x.Window
}

func newFakeXClient() *fakeXClient {
	return &fakeXClient{
		atoms:         make(map[string]x.Atom),
		names:         make(map[x.Atom]string),
		nextAtom:      1000,
		nextWindow:    0x200000,
		windows:       make(map[x.Window]*fakeXWindow),
		props:         make(map[propKey]*fakeProp),
		selectedInput: make(map[x.Atom]x.Window),
	}
}

func (xc *fakeXClient) GetAtom(name string) (x.Atom, error) {
	if atom, ok := xc.atoms[name]; ok {
		return atom, nil
	}
	xc.nextAtom++
	xc.atoms[name] = xc.nextAtom
	xc.names[xc.nextAtom] = name
	return xc.nextAtom, nil
}

func (xc *fakeXClient) GetAtomName(atom x.Atom) (string, error) {
	return xc.names[atom], nil
}

func (xc *fakeXClient) XfixesFirstEvent() uint8 {
	return 87
}

func (xc *fakeXClient) CreateWindow(opts WindowOptions) (x.Window, error) {
	xc.nextWindow++
	xc.windows[xc.nextWindow] = &fakeXWindow{opts: opts, mask: opts.EventMask}
	return xc.nextWindow, nil
}

func (xc *fakeXClient) DestroyWindow(win x.Window) {
	delete(xc.windows, win)
	xc.destroyed = append(xc.destroyed, win)
}

func (xc *fakeXClient) MapWindow(win x.Window) {
	if w := xc.windows[win]; w != nil {
		w.mapped = true
	}
}

func (xc *fakeXClient) UnmapWindow(win x.Window) {
	if w := xc.windows[win]; w != nil {
		w.mapped = false
	}
}

func (xc *fakeXClient) ChangeWindowEventMask(win x.Window, mask uint32) {
	w := xc.windows[win]
	if w == nil {
		// a client window
		w = &fakeXWindow{}
		xc.windows[win] = w
	}
	w.mask = mask
}

func (xc *fakeXClient) SetSelectionOwner(owner x.Window, selection x.Atom, ts x.Timestamp) {
	xc.owners = append(xc.owners, ownerCall{owner: owner, selection: selection, ts: ts})
}

func (xc *fakeXClient) SelectSelectionInput(win x.Window, selection x.Atom, mask uint32) {
	xc.selectedInput[selection] = win
}

func (xc *fakeXClient) ConvertSelection(requestor x.Window, selection, target, property x.Atom, ts x.Timestamp) {
	xc.converts = append(xc.converts, convertCall{
		requestor: requestor,
		selection: selection,
		target:    target,
		property:  property,
		ts:        ts,
	})
}

func (xc *fakeXClient) ChangeProperty(mode uint8, win x.Window, property, typ x.Atom, format uint8, data []byte) {
	key := propKey{win, property}
	xc.props[key] = &fakeProp{typ: typ, format: format, data: append([]byte(nil), data...)}
	xc.propChanges = append(xc.propChanges, key)
}

func (xc *fakeXClient) GetProperty(del bool, win x.Window, property, typ x.Atom,
	longOffset, longLength uint32) (*x.GetPropertyReply, error) {
	key := propKey{win, property}
	p := xc.props[key]
	if p == nil {
		return &x.GetPropertyReply{}, nil
	}
	if typ != x.GetPropertyTypeAny && typ != p.typ {
		return &x.GetPropertyReply{Type: p.typ, Format: p.format}, nil
	}
	if del {
		delete(xc.props, key)
	}
	unit := uint32(p.format) / 8
	if unit == 0 {
		unit = 1
	}
	return &x.GetPropertyReply{
		Type:     p.typ,
		Format:   p.format,
		ValueLen: uint32(len(p.data)) / unit,
		Value:    p.data,
	}, nil
}

func (xc *fakeXClient) DeleteProperty(win x.Window, property x.Atom) {
	delete(xc.props, propKey{win, property})
}

func (xc *fakeXClient) SendSelectionNotify(ev *x.SelectionNotifyEvent) {
	xc.notifies = append(xc.notifies, *ev)
}

func (xc *fakeXClient) SendClientMessage(dest x.Window, msg *ClientMessage) {
	xc.messages = append(xc.messages, sentMessage{dest: dest, msg: *msg})
}

func (xc *fakeXClient) Flush() error {
	return nil
}

func (xc *fakeXClient) atom(name string) x.Atom {
	atom, _ := xc.GetAtom(name)
	return atom
}

func (xc *fakeXClient) setAtomProp(win x.Window, prop x.Atom, atoms ...x.Atom) {
	xc.props[propKey{win, prop}] = &fakeProp{typ: x.AtomAtom, format: 32, data: encodeAtoms(atoms)}
}

func (xc *fakeXClient) prop(win x.Window, prop x.Atom) *fakeProp {
	return xc.props[propKey{win, prop}]
}

func (xc *fakeXClient) messagesTo(dest x.Window, typ x.Atom) []ClientMessage {
	var result []ClientMessage
	for _, m := range xc.messages {
		if m.dest == dest && m.msg.Type == typ {
			result = append(result, m.msg)
		}
	}
	return result
}

func (xc *fakeXClient) lastWindow() x.Window {
	return xc.nextWindow
}

func (xc *fakeXClient) lastNotify() x.SelectionNotifyEvent {
	return xc.notifies[len(xc.notifies)-1]
}

func (xc *fakeXClient) lastOwner(selection x.Atom) (ownerCall, bool) {
	for i := len(xc.owners) - 1; i >= 0; i-- {
		if xc.owners[i].selection == selection {
			return xc.owners[i], true
		}
	}
	return ownerCall{}, false
}

type fakeWatch struct {
	loop    *fakeLoop
	fd      int
	events  eventloop.Events
	cb      func()
	removed bool
}

func (w *fakeWatch) Remove() {
	w.removed = true
	if w.loop.watches[w.fd] == w {
		delete(w.loop.watches, w.fd)
	}
}

type fakeTimer struct {
	interval time.Duration
	repeat   bool
	cb       func()
	stopped  bool
}

func (t *fakeTimer) Stop() {
	t.stopped = true
}

// fakeLoop runs callbacks only when the test asks for it.
type fakeLoop struct {
	watches map[int]*fakeWatch
	timers  []*fakeTimer
	posted  []func()
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{
		watches: make(map[int]*fakeWatch),
	}
}

func (l *fakeLoop) WatchFd(fd int, events eventloop.Events, cb func()) (eventloop.Watch, error) {
	w := &fakeWatch{loop: l, fd: fd, events: events, cb: cb}
	l.watches[fd] = w
	return w, nil
}

func (l *fakeLoop) AddTimer(interval time.Duration, repeat bool, cb func()) eventloop.Timer {
	t := &fakeTimer{interval: interval, repeat: repeat, cb: cb}
	l.timers = append(l.timers, t)
	return t
}

func (l *fakeLoop) Post(cb func()) {
	l.posted = append(l.posted, cb)
}

func (l *fakeLoop) runPosted() {
	for len(l.posted) > 0 {
		cb := l.posted[0]
		l.posted = l.posted[1:]
		cb()
	}
}

func (l *fakeLoop) activeTimers() []*fakeTimer {
	var result []*fakeTimer
	for _, t := range l.timers {
		if !t.stopped {
			result = append(result, t)
		}
	}
	return result
}

func (l *fakeLoop) fireTimers() {
	for _, t := range l.activeTimers() {
		if t.stopped {
			continue
		}
		if !t.repeat {
			t.stopped = true
		}
		t.cb()
	}
}

func (l *fakeLoop) fireWatches() {
	var watches []*fakeWatch
	for _, w := range l.watches {
		watches = append(watches, w)
	}
	for _, w := range watches {
		if !w.removed {
			w.cb()
		}
	}
}

// pumpUntil fires fd watches until cond holds.
func (l *fakeLoop) pumpUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		l.fireWatches()
		time.Sleep(time.Millisecond)
	}
}

type testWindow struct {
	xwayland bool
	xwin     x.Window
}

func (w *testWindow) IsXwayland() bool {
	return w.xwayland
}

func (w *testWindow) XWindow() x.Window {
	return w.xwin
}

type fakeWorkspace struct {
	active    Window
	activated []Window
}

func (ws *fakeWorkspace) ActiveWindow() Window {
	return ws.active
}

func (ws *fakeWorkspace) ActivateWindow(w Window) {
	ws.active = w
	ws.activated = append(ws.activated, w)
}

type dragTargetCall struct {
	target Window
	pos    Point
}

type fakeSeat struct {
	selection        DataSource
	primarySelection DataSource
	pos              Point
	pressed          map[uint32]bool
	focus            Window
	dragSource       DragSource
	dragTargets      []dragTargetCall
	startDragErr     error

	onSelectionChanged        func()
	onPrimarySelectionChanged func()
}

func newFakeSeat() *fakeSeat {
	return &fakeSeat{
		pressed: make(map[uint32]bool),
	}
}

func (seat *fakeSeat) Selection() DataSource {
	return seat.selection
}

func (seat *fakeSeat) SetSelection(source DataSource) {
	if seat.selection == source {
		return
	}
	if seat.selection != nil {
		seat.selection.Cancel()
	}
	seat.selection = source
	if seat.onSelectionChanged != nil {
		seat.onSelectionChanged()
	}
}

func (seat *fakeSeat) PrimarySelection() DataSource {
	return seat.primarySelection
}

func (seat *fakeSeat) SetPrimarySelection(source DataSource) {
	if seat.primarySelection == source {
		return
	}
	if seat.primarySelection != nil {
		seat.primarySelection.Cancel()
	}
	seat.primarySelection = source
	if seat.onPrimarySelectionChanged != nil {
		seat.onPrimarySelectionChanged()
	}
}

func (seat *fakeSeat) PointerPos() Point {
	return seat.pos
}

func (seat *fakeSeat) IsPointerButtonPressed(button uint32) bool {
	return seat.pressed[button]
}

func (seat *fakeSeat) PointerFocus() Window {
	return seat.focus
}

func (seat *fakeSeat) DragSource() DragSource {
	return seat.dragSource
}

func (seat *fakeSeat) StartDrag(source DragSource) error {
	if seat.startDragErr != nil {
		return seat.startDragErr
	}
	seat.dragSource = source
	return nil
}

func (seat *fakeSeat) SetDragTarget(target Window, pos Point) {
	seat.dragTargets = append(seat.dragTargets, dragTargetCall{target: target, pos: pos})
}

// testDataSource is a Wayland client source, it writes data[mime] into the
// requested fd.
type testDataSource struct {
	mimes     []string
	data      map[string][]byte
	requests  []string
	cancelled bool
	// keep the write ends of requests without data open
	held []int
}

func (ds *testDataSource) MimeTypes() []string {
	return ds.mimes
}

func (ds *testDataSource) RequestData(mimeType string, fd int) {
	ds.requests = append(ds.requests, mimeType)
	data, ok := ds.data[mimeType]
	if !ok {
		ds.held = append(ds.held, fd)
		return
	}
	go func() {
		f := os.NewFile(uintptr(fd), "source")
		_, _ = f.Write(data)
		_ = f.Close()
	}()
}

func (ds *testDataSource) Cancel() {
	ds.cancelled = true
}

func (ds *testDataSource) closeHeld() {
	for _, fd := range ds.held {
		_ = unix.Close(fd)
	}
	ds.held = nil
}

type testDragSource struct {
	testDataSource
	supported     DnDAction
	selected      DnDAction
	accepted      []string
	dropPerformed int
	finished      int
}

func (ds *testDragSource) SupportedActions() DnDAction {
	return ds.supported
}

func (ds *testDragSource) SelectedAction() DnDAction {
	return ds.selected
}

func (ds *testDragSource) SetSelectedAction(action DnDAction) {
	ds.selected = action
}

func (ds *testDragSource) Accept(mimeType string) {
	ds.accepted = append(ds.accepted, mimeType)
}

func (ds *testDragSource) DropPerformed() {
	ds.dropPerformed++
}

func (ds *testDragSource) Finished() {
	ds.finished++
}

type testEnv struct {
	xc     *fakeXClient
	seat   *fakeSeat
	ws     *fakeWorkspace
	loop   *fakeLoop
	bridge *DataBridge
	closed map[int]int
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	env := &testEnv{
		xc:     newFakeXClient(),
		seat:   newFakeSeat(),
		ws:     &fakeWorkspace{},
		loop:   newFakeLoop(),
		closed: make(map[int]int),
	}
	b, err := NewDataBridge(env.xc, env.seat, env.ws, env.loop, cfg)
	require.NoError(t, err)
	env.bridge = b
	env.seat.onSelectionChanged = b.HandleSelectionChanged
	env.seat.onPrimarySelectionChanged = b.HandlePrimarySelectionChanged
	b.s.closeFd = func(fd int) error {
		env.closed[fd]++
		return unix.Close(fd)
	}
	return env
}

func (env *testEnv) atoms() *atoms {
	return env.bridge.s.atoms
}

func (env *testEnv) focusXwayland() *testWindow {
	w := &testWindow{xwayland: true, xwin: 0x400001}
	env.ws.active = w
	return w
}

func (env *testEnv) claimByPeer(selection x.Atom, window, owner x.Window, ts x.Timestamp) bool {
	return env.bridge.filterEvent(&xfixes.SelectionNotifyEvent{
		Subtype:            xfixes.SelectionEventSetSelectionOwner,
		Window:             window,
		Owner:              owner,
		Selection:          selection,
		Timestamp:          ts,
		SelectionTimestamp: ts,
	})
}

// newPipe returns a pipe with a nonblocking write end.
func newPipe(t *testing.T) (r, w int) {
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	require.NoError(t, unix.SetNonblock(p[1], true))
	return p[0], p[1]
}

// readAll collects everything from fd on a goroutine.
func readAll(fd int) <-chan []byte {
	ch := make(chan []byte, 1)
	go func() {
		f := os.NewFile(uintptr(fd), "reader")
		data, _ := io.ReadAll(f)
		_ = f.Close()
		ch <- data
	}()
	return ch
}

func testPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}
