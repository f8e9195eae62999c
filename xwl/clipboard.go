// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
)

// seatSlot is one selection slot of the seat, clipboard or primary.
type seatSlot struct {
	get func() DataSource
	set func(DataSource)
}

// clipboard syncs one plain selection, CLIPBOARD or PRIMARY, with the seat.
type clipboard struct {
	*selection
	slot seatSlot
	// our stand-in for the X11 owner, set in the seat slot
	proxySource *proxyDataSource
}

func newClipboard(s *session, atom x.Atom, slot seatSlot) (*clipboard, error) {
	c := &clipboard{
		slot: slot,
	}
	sel, err := newSelection(s, atom, c, WindowOptions{
		Width:     10,
		Height:    10,
		EventMask: x.EventMaskSubstructureNotify | x.EventMaskPropertyChange,
	})
	if err != nil {
		return nil, err
	}
	c.selection = sel
	sel.onDisowned = c.handleDisowned
	return c, nil
}

func newClipboardSelection(s *session) (*clipboard, error) {
	return newClipboard(s, s.atoms.clipboard, seatSlot{
		get: s.seat.Selection,
		set: s.seat.SetSelection,
	})
}

func newPrimarySelection(s *session) (*clipboard, error) {
	return newClipboard(s, s.atoms.primary, seatSlot{
		get: s.seat.PrimarySelection,
		set: s.seat.SetPrimarySelection,
	})
}

func (c *clipboard) ownsSeatSelection() bool {
	current := c.slot.get()
	return current != nil && c.proxySource != nil && current == DataSource(c.proxySource)
}

// wlSelectionChanged is called when the seat slot got a new source.
func (c *clipboard) wlSelectionChanged() {
	dsi := c.slot.get()
	if !c.ownsSeatSelection() {
		c.proxySource = nil
		if dsi != nil {
			// a Wayland client replaced the X11 owner or our forwarded source
			c.setWlSource(nil)
		}
	}
	c.checkWlSource()
}

// checkWlSource makes us the X owner whenever a Wayland client holds the
// slot and an Xwayland window has focus.
func (c *clipboard) checkWlSource() {
	dsi := c.slot.get()
	removeSource := func() {
		if c.wlSource != nil {
			c.setWlSource(nil)
			c.setOwned(false)
		}
	}

	if dsi == nil || c.ownsSeatSelection() || !c.s.isXwaylandActive() {
		removeSource()
		return
	}
	if c.wlSource != nil && c.wlSource.dsi == dsi {
		return
	}
	logger.Debugf("%s: forward wayland selection to x", c.name())
	c.setWlSource(newWlSource(c.selection, dsi))
	c.setOwned(true)
}

func (c *clipboard) handleClaimedByPeer(ev *xfixes.SelectionNotifyEvent) {
	c.createX11Source(nil)
	if !c.s.isXwaylandActive() {
		logger.Debugf("%s: ignore claim of %d, no Xwayland window is active", c.name(), ev.Owner)
		return
	}
	c.createX11Source(ev)
	if c.xSource != nil {
		c.xSource.getTargets()
		return
	}
	if c.ownsSeatSelection() {
		c.proxySource = nil
		c.slot.set(nil)
	}
}

func (c *clipboard) handleOffersChanged(added, removed []string) {
	src := c.xSource
	if src == nil {
		return
	}
	mimes := src.mimeTypes()
	if len(mimes) == 0 {
		if c.ownsSeatSelection() {
			c.proxySource = nil
			c.slot.set(nil)
		}
		return
	}
	logger.Debugf("%s: forward x selection to wayland, added: %v, removed: %v",
		c.name(), added, removed)
	c.proxySource = newProxyDataSource(mimes, c.requestData)
	c.slot.set(c.proxySource)
}

func (c *clipboard) requestData(mimeType string, fd int) {
	if c.xSource == nil {
		err := c.s.closeFd(fd)
		if err != nil {
			logger.Warning(err)
		}
		return
	}
	c.xSource.startTransfer(mimeType, fd)
}

func (c *clipboard) handleClientMessage(msg *ClientMessage) bool {
	return false
}

// handleDisowned keeps the X side owned while a Wayland source is
// forwarded, a disown racing a newer claim is answered with one more claim.
func (c *clipboard) handleDisowned() {
	if c.wlSource != nil {
		c.setOwned(true)
	}
}

func (c *clipboard) destroy() {
	if c.ownsSeatSelection() {
		c.slot.set(nil)
	}
	c.proxySource = nil
	c.selection.destroy()
}
