// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"time"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/xwayland-databridge/common/eventloop"
)

type Point struct {
	X, Y int
}

// DnDAction is a bit set of drag-and-drop actions.
type DnDAction uint32

const (
	DnDActionNone DnDAction = 0
	DnDActionCopy DnDAction = 1 << 0
	DnDActionMove DnDAction = 1 << 1
	DnDActionAsk  DnDAction = 1 << 2
)

func (a DnDAction) Has(action DnDAction) bool {
	return action != DnDActionNone && a&action == action
}

func (a DnDAction) String() string {
	switch a {
	case DnDActionNone:
		return "none"
	case DnDActionCopy:
		return "copy"
	case DnDActionMove:
		return "move"
	case DnDActionAsk:
		return "ask"
	}
	return "mixed"
}

// DragEventReply tells pointer input who handles a motion during a drag.
type DragEventReply int

const (
	// DragEventReplyIgnore means the motion is consumed by X, the
	// compositor must not forward it.
	DragEventReplyIgnore DragEventReply = iota
	// DragEventReplyTake means the bridge proxies the motion to an X
	// target.
	DragEventReplyTake
	// DragEventReplyWayland means a native Wayland drag handles it.
	DragEventReplyWayland
)

func (r DragEventReply) String() string {
	switch r {
	case DragEventReplyIgnore:
		return "ignore"
	case DragEventReplyTake:
		return "take"
	case DragEventReplyWayland:
		return "wayland"
	}
	return "unknown"
}

// DataSource is a Wayland data source, either provided by a Wayland client
// or implemented by the bridge on behalf of an X11 owner.
type DataSource interface {
	MimeTypes() []string
	// RequestData asks the source to write mimeType into fd. The source
	// takes ownership of fd and closes it when done.
	RequestData(mimeType string, fd int)
	Cancel()
}

// DragSource is the data source of a drag-and-drop session. The methods
// besides DataSource are driven by the side acting as drag target.
type DragSource interface {
	DataSource
	SupportedActions() DnDAction
	SelectedAction() DnDAction
	SetSelectedAction(action DnDAction)
	// Accept reports the mime type the target would accept, "" for none.
	Accept(mimeType string)
	DropPerformed()
	Finished()
}

// Window is a toplevel known to the compositor.
type Window interface {
	IsXwayland() bool
	// XWindow is the X11 client window of an Xwayland toplevel.
	XWindow() x.Window
}

// Workspace answers focus questions.
type Workspace interface {
	ActiveWindow() Window
	ActivateWindow(w Window)
}

// Seat is the compositor seat the bridge shares data through.
type Seat interface {
	Selection() DataSource
	SetSelection(source DataSource)
	PrimarySelection() DataSource
	SetPrimarySelection(source DataSource)

	PointerPos() Point
	IsPointerButtonPressed(button uint32) bool
	// PointerFocus is the window under the pointer, nil if none.
	PointerFocus() Window

	DragSource() DragSource
	StartDrag(source DragSource) error
	// SetDragTarget changes the Wayland drag target, nil clears it.
	SetDragTarget(target Window, pos Point)
}

// EventLoop is the compositor loop the bridge is driven by. All callbacks
// run on the loop goroutine.
type EventLoop interface {
	WatchFd(fd int, events eventloop.Events, cb func()) (eventloop.Watch, error)
	AddTimer(interval time.Duration, repeat bool, cb func()) eventloop.Timer
	Post(cb func())
}
