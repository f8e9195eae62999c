// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"encoding/binary"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
	"golang.org/x/xerrors"
)

// ClientMessage is a format 32 client message.
type ClientMessage struct {
	Window x.Window
	Type   x.Atom
	Data   [5]uint32
}

type WindowOptions struct {
	// Parent defaults to the root window.
	Parent        x.Window
	X, Y          int16
	Width, Height uint16
	InputOnly     bool
	EventMask     uint32
}

// XClient is the part of the X connection the bridge talks through. Requests
// without a result are buffered, Flush sends them.
type XClient interface {
	GetAtom(name string) (x.Atom, error)
	GetAtomName(atom x.Atom) (string, error)
	XfixesFirstEvent() uint8

	CreateWindow(opts WindowOptions) (x.Window, error)
	DestroyWindow(win x.Window)
	// MapWindow maps win on top of the stack.
	MapWindow(win x.Window)
	UnmapWindow(win x.Window)
	ChangeWindowEventMask(win x.Window, mask uint32)

	SetSelectionOwner(owner x.Window, selection x.Atom, ts x.Timestamp)
	SelectSelectionInput(win x.Window, selection x.Atom, mask uint32)
	ConvertSelection(requestor x.Window, selection, target, property x.Atom, ts x.Timestamp)

	ChangeProperty(mode uint8, win x.Window, property, typ x.Atom, format uint8, data []byte)
	GetProperty(delete bool, win x.Window, property, typ x.Atom,
		longOffset, longLength uint32) (*x.GetPropertyReply, error)
	DeleteProperty(win x.Window, property x.Atom)

	SendSelectionNotify(ev *x.SelectionNotifyEvent)
	SendClientMessage(dest x.Window, msg *ClientMessage)
	Flush() error
}

type xClient struct {
	conn *x.Conn
}

// NewXClient wraps an established connection to Xwayland.
func NewXClient(conn *x.Conn) XClient {
	_, err := xfixes.QueryVersion(conn, xfixes.MajorVersion, xfixes.MinorVersion).Reply(conn)
	if err != nil {
		logger.Warning(err)
	}
	return &xClient{conn: conn}
}

func (xc *xClient) GetAtom(name string) (x.Atom, error) {
	atom, err := xc.conn.GetAtom(name)
	if err != nil {
		return x.None, xerrors.Errorf("intern atom %q: %w", name, err)
	}
	return atom, nil
}

func (xc *xClient) GetAtomName(atom x.Atom) (string, error) {
	name, err := xc.conn.GetAtomName(atom)
	if err != nil {
		return "", xerrors.Errorf("get atom name %d: %w", atom, err)
	}
	return name, nil
}

func (xc *xClient) XfixesFirstEvent() uint8 {
	return xc.conn.GetExtensionData(xfixes.Ext()).FirstEvent
}

func (xc *xClient) CreateWindow(opts WindowOptions) (x.Window, error) {
	xid, err := xc.conn.AllocID()
	if err != nil {
		return 0, xerrors.Errorf("alloc window id: %w", err)
	}
	win := x.Window(xid)

	parent := opts.Parent
	if parent == 0 {
		parent = xc.conn.GetDefaultScreen().Root
	}
	class := uint16(x.WindowClassInputOutput)
	if opts.InputOnly {
		class = x.WindowClassInputOnly
	}
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}

	x.CreateWindow(xc.conn, 0, win, parent,
		opts.X, opts.Y, width, height, 0,
		class, x.CopyFromParent,
		x.CWEventMask, []uint32{opts.EventMask})
	return win, nil
}

func (xc *xClient) DestroyWindow(win x.Window) {
	x.DestroyWindow(xc.conn, win)
}

func (xc *xClient) MapWindow(win x.Window) {
	x.MapWindow(xc.conn, win)
	x.ConfigureWindow(xc.conn, win, x.ConfigWindowStackMode, []uint32{x.StackModeAbove})
}

func (xc *xClient) UnmapWindow(win x.Window) {
	x.UnmapWindow(xc.conn, win)
}

func (xc *xClient) ChangeWindowEventMask(win x.Window, mask uint32) {
	x.ChangeWindowAttributes(xc.conn, win, x.CWEventMask, []uint32{mask})
}

func (xc *xClient) SetSelectionOwner(owner x.Window, selection x.Atom, ts x.Timestamp) {
	x.SetSelectionOwner(xc.conn, owner, selection, ts)
}

func (xc *xClient) SelectSelectionInput(win x.Window, selection x.Atom, mask uint32) {
	xfixes.SelectSelectionInput(xc.conn, win, selection, mask)
}

func (xc *xClient) ConvertSelection(requestor x.Window, selection, target, property x.Atom, ts x.Timestamp) {
	x.ConvertSelection(xc.conn, requestor, selection, target, property, ts)
}

func (xc *xClient) ChangeProperty(mode uint8, win x.Window, property, typ x.Atom, format uint8, data []byte) {
	x.ChangeProperty(xc.conn, mode, win, property, typ, format, data)
}

func (xc *xClient) GetProperty(delete bool, win x.Window, property, typ x.Atom,
	longOffset, longLength uint32) (*x.GetPropertyReply, error) {
	reply, err := x.GetProperty(xc.conn, delete, win, property, typ, longOffset, longLength).Reply(xc.conn)
	if err != nil {
		return nil, xerrors.Errorf("get property %d of window %d: %w", property, win, err)
	}
	return reply, nil
}

func (xc *xClient) DeleteProperty(win x.Window, property x.Atom) {
	x.DeleteProperty(xc.conn, win, property)
}

func (xc *xClient) SendSelectionNotify(ev *x.SelectionNotifyEvent) {
	w := x.NewWriter()
	x.WriteSelectionNotifyEvent(w, ev)
	x.SendEvent(xc.conn, false, ev.Requestor, x.EventMaskNoEvent, w.Bytes())
}

func (xc *xClient) SendClientMessage(dest x.Window, msg *ClientMessage) {
	var data x.ClientMessageData
	data.SetData32(&msg.Data)
	event := x.ClientMessageEvent{
		Format: 32,
		Window: msg.Window,
		Type:   msg.Type,
		Data:   data,
	}
	w := x.NewWriter()
	x.WriteClientMessageEvent(w, &event)
	x.SendEvent(xc.conn, false, dest, x.EventMaskNoEvent, w.Bytes())
}

func (xc *xClient) Flush() error {
	return xc.conn.Flush()
}

// ForwardEvents delivers the events of conn to filter on the loop
// goroutine.
func ForwardEvents(conn *x.Conn, loop EventLoop, filter func(ev x.GenericEvent) bool) {
	eventChan := make(chan x.GenericEvent, 50)
	conn.AddEventChan(eventChan)
	go func() {
		for ev := range eventChan {
			ev := ev
			loop.Post(func() {
				filter(ev)
			})
		}
	}()
}

func encodeAtoms(atoms []x.Atom) []byte {
	w := x.NewWriter()
	for _, atom := range atoms {
		w.Write4b(uint32(atom))
	}
	return w.Bytes()
}

func encodeCard32(v uint32) []byte {
	w := x.NewWriter()
	w.Write4b(v)
	return w.Bytes()
}

// the connection is set up little-endian
func getAtomListFromReply(reply *x.GetPropertyReply) ([]x.Atom, error) {
	if reply.Format != 32 {
		return nil, xerrors.Errorf("bad reply format %d", reply.Format)
	}
	if len(reply.Value)%4 != 0 {
		return nil, xerrors.Errorf("bad reply length %d", len(reply.Value))
	}
	result := make([]x.Atom, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		result = append(result, x.Atom(binary.LittleEndian.Uint32(reply.Value[i:])))
	}
	return result, nil
}
