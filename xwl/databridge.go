// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
)

// DataBridge shares the clipboard, the primary selection and drag-and-drop
// between Wayland clients and the X clients of one Xwayland server.
//
// Every method has to be called from the goroutine running loop.
type DataBridge struct {
	s         *session
	clipboard *clipboard
	primary   *clipboard
	dnd       *dnd
}

// NewDataBridge sets up the proxy windows on xc. A nil cfg means
// DefaultConfig.
func NewDataBridge(xc XClient, seat Seat, workspace Workspace, loop EventLoop, cfg *Config) (*DataBridge, error) {
	s, err := newSession(xc, seat, workspace, loop, cfg)
	if err != nil {
		return nil, err
	}
	b := &DataBridge{s: s}

	b.clipboard, err = newClipboardSelection(s)
	if err != nil {
		return nil, err
	}
	b.dnd, err = newDnd(s)
	if err != nil {
		b.clipboard.destroy()
		return nil, err
	}
	if s.cfg.PrimarySelection {
		b.primary, err = newPrimarySelection(s)
		if err != nil {
			b.dnd.destroy()
			b.clipboard.destroy()
			return nil, err
		}
	}
	logger.Info("xwayland data bridge started")
	return b, nil
}

// FilterEvent handles ev if it belongs to the bridge.
func (b *DataBridge) FilterEvent(ev x.GenericEvent) bool {
	event := decodeEvent(ev, b.s.xc.XfixesFirstEvent())
	if event == nil {
		return false
	}
	return b.filterEvent(event)
}

func (b *DataBridge) filterEvent(event interface{}) bool {
	handled := b.clipboard.filterEvent(event) || b.dnd.filterEvent(event)
	if !handled && b.primary != nil {
		handled = b.primary.filterEvent(event)
	}
	if logger.GetLogLevel() == log.LevelDebug {
		prefix := ">>"
		if handled {
			prefix = "->"
		}
		logger.Debug(prefix, b.s.eventToString(event))
	}
	return handled
}

// DragMoveFilter is called for pointer motion during a drag with the window
// under the pointer, target is nil over no window.
func (b *DataBridge) DragMoveFilter(target Window, pos Point) DragEventReply {
	return b.dnd.dragMoveFilter(target, pos)
}

// HandleSelectionChanged is called after the seat clipboard changed.
func (b *DataBridge) HandleSelectionChanged() {
	b.clipboard.wlSelectionChanged()
}

// HandlePrimarySelectionChanged is called after the seat primary selection
// changed.
func (b *DataBridge) HandlePrimarySelectionChanged() {
	if b.primary != nil {
		b.primary.wlSelectionChanged()
	}
}

// HandleActiveWindowChanged is called after the focus moved.
func (b *DataBridge) HandleActiveWindowChanged() {
	b.clipboard.checkWlSource()
	if b.primary != nil {
		b.primary.checkWlSource()
	}
}

// HandleDragStarted is called after a drag started on the seat.
func (b *DataBridge) HandleDragStarted() {
	b.dnd.startDrag()
}

// HandleDragEnded is called after the seat drag ended, performed reports a
// drop as opposed to a cancel.
func (b *DataBridge) HandleDragEnded(performed bool) {
	b.dnd.endDrag(performed)
}

// SetPrimarySelectionEnabled creates or removes the PRIMARY bridge.
func (b *DataBridge) SetPrimarySelectionEnabled(enabled bool) error {
	b.s.cfg.PrimarySelection = enabled
	if enabled == (b.primary != nil) {
		return nil
	}
	if !enabled {
		b.primary.destroy()
		b.primary = nil
		return nil
	}
	primary, err := newPrimarySelection(b.s)
	if err != nil {
		return err
	}
	b.primary = primary
	primary.wlSelectionChanged()
	return nil
}

// WatchConfig applies changes of the config keys while running.
func (b *DataBridge) WatchConfig(watcher ConfigWatcher) {
	for _, key := range configKeys {
		key := key
		watcher.ConnectConfigChanged(key, func(value interface{}) {
			b.s.loop.Post(func() {
				b.applyConfig(key, value)
			})
		})
	}
}

func (b *DataBridge) applyConfig(key string, value interface{}) {
	if !b.s.cfg.apply(key, value) {
		logger.Warningf("config key %s: bad value %v", key, value)
		return
	}
	logger.Infof("config %s changed to %v", key, value)
	switch key {
	case dSettingsKeyPrimarySelectionEnabled:
		err := b.SetPrimarySelectionEnabled(b.s.cfg.PrimarySelection)
		if err != nil {
			logger.Warning(err)
		}
	case dSettingsKeyTransferTimeout:
		b.clipboard.restartTimeoutTransfersTimer()
		if b.primary != nil {
			b.primary.restartTimeoutTransfersTimer()
		}
		b.dnd.restartTimeoutTransfersTimer()
	}
}

// Destroy releases every window, transfer and drag. It has to run before the
// X connection is closed.
func (b *DataBridge) Destroy() {
	b.dnd.destroy()
	if b.primary != nil {
		b.primary.destroy()
		b.primary = nil
	}
	b.clipboard.destroy()
	b.s.drainPendingDestroy()
	logger.Info("xwayland data bridge stopped")
}
