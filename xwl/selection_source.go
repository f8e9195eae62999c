// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/strv"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
	"golang.org/x/sys/unix"
)

// wlSource serves X requestors from a Wayland data source.
type wlSource struct {
	sel       *selection
	dsi       DataSource
	timestamp x.Timestamp
}

func newWlSource(sel *selection, dsi DataSource) *wlSource {
	return &wlSource{
		sel: sel,
		dsi: dsi,
	}
}

func (src *wlSource) handleSelectionRequest(ev *x.SelectionRequestEvent) {
	atoms := src.sel.s.atoms
	switch ev.Target {
	case atoms.targets:
		src.sendTargets(ev)
	case atoms.timestamp:
		src.sendTimestamp(ev)
	case atoms.delete:
		src.sel.sendSelectionNotify(ev, true)
	default:
		if !src.checkStartTransfer(ev) {
			src.sel.sendSelectionNotify(ev, false)
		}
	}
}

func (src *wlSource) sendTargets(ev *x.SelectionRequestEvent) {
	s := src.sel.s
	targets := []x.Atom{s.atoms.timestamp, s.atoms.targets}
	for _, mime := range src.dsi.MimeTypes() {
		atom := s.mimeTypeToAtom(mime)
		if atom == x.None {
			continue
		}
		if !containsAtom(targets, atom) {
			targets = append(targets, atom)
		}
	}
	s.xc.ChangeProperty(x.PropModeReplace, ev.Requestor, ev.Property,
		x.AtomAtom, 32, encodeAtoms(targets))
	src.sel.sendSelectionNotify(ev, true)
}

func (src *wlSource) sendTimestamp(ev *x.SelectionRequestEvent) {
	s := src.sel.s
	s.xc.ChangeProperty(x.PropModeReplace, ev.Requestor, ev.Property,
		x.AtomInteger, 32, encodeCard32(uint32(src.timestamp)))
	src.sel.sendSelectionNotify(ev, true)
}

func (src *wlSource) checkStartTransfer(ev *x.SelectionRequestEvent) bool {
	s := src.sel.s
	mimes := s.atomToMimeTypes(ev.Target)
	if len(mimes) == 0 {
		logger.Debugf("no mime type for target %s", s.atomDesc(ev.Target))
		return false
	}
	mime, ok := matchMimeType(src.dsi.MimeTypes(), mimes[0])
	if !ok {
		logger.Debugf("source does not offer %s", mimes[0])
		return false
	}

	var p [2]int
	err := unix.Pipe2(p[:], unix.O_CLOEXEC)
	if err != nil {
		logger.Warning("create pipe err:", err)
		return false
	}
	err = unix.SetNonblock(p[0], true)
	if err != nil {
		logger.Warning("set pipe nonblock err:", err)
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
		return false
	}

	src.dsi.RequestData(mime, p[1])
	src.sel.startTransferToX(ev, p[0])
	return true
}

// x11Source is the X owner of a selection seen from the Wayland side.
type x11Source struct {
	sel       *selection
	owner     x.Window
	timestamp x.Timestamp
	offers    []MimeOffer
}

func newX11Source(sel *selection, ev *xfixes.SelectionNotifyEvent) *x11Source {
	return &x11Source{
		sel:       sel,
		owner:     ev.Owner,
		timestamp: ev.SelectionTimestamp,
	}
}

// getTargets asks the owner for its formats, the answer arrives as
// SelectionNotify on the selection window.
func (src *x11Source) getTargets() {
	s := src.sel.s
	s.xc.ConvertSelection(src.sel.window, src.sel.atom, s.atoms.targets,
		s.atoms.wlSelection, src.timestamp)
	s.flush()
}

func (src *x11Source) handleSelectionNotify(ev *x.SelectionNotifyEvent) bool {
	if ev.Requestor != src.sel.window || ev.Selection != src.sel.atom {
		return false
	}
	if ev.Target != src.sel.s.atoms.targets {
		return false
	}
	if ev.Property == x.None {
		logger.Warningf("%s owner %d refused TARGETS", src.sel.name(), src.owner)
		return true
	}
	src.handleTargets()
	return true
}

func (src *x11Source) handleTargets() {
	s := src.sel.s
	reply, err := s.xc.GetProperty(true, src.sel.window, s.atoms.wlSelection,
		x.AtomAtom, 0, 4096)
	if err != nil {
		logger.Warning(err)
		return
	}
	s.flush()
	if reply.Type != x.AtomAtom {
		logger.Warningf("bad TARGETS type %s", s.atomDesc(reply.Type))
		return
	}
	targets, err := getAtomListFromReply(reply)
	if err != nil {
		logger.Warning(err)
		return
	}

	offers := s.offersFromAtoms(targets)
	added, removed := diffOffers(src.offers, offers)
	src.offers = offers
	logger.Debugf("%s offers: %v", src.sel.name(), offerMimes(offers))
	if len(added) > 0 || len(removed) > 0 {
		src.sel.hooks.handleOffersChanged(added, removed)
	}
}

func (src *x11Source) setOffers(offers []MimeOffer) {
	src.offers = offers
}

func (src *x11Source) mimeTypes() []string {
	return offerMimes(src.offers)
}

// startTransfer writes mimeType into fd, fd is closed when nothing offers
// the format.
func (src *x11Source) startTransfer(mimeType string, fd int) {
	for _, offer := range src.offers {
		if offer.Mime == mimeType {
			src.sel.startTransferToWayland(offer.Atom, fd)
			return
		}
	}
	logger.Debugf("%s has no offer for %s", src.sel.name(), mimeType)
	err := src.sel.s.closeFd(fd)
	if err != nil {
		logger.Warning(err)
	}
}

func (src *x11Source) destroy() {
	src.offers = nil
}

func containsAtom(list []x.Atom, atom x.Atom) bool {
	for _, item := range list {
		if item == atom {
			return true
		}
	}
	return false
}

func mimeTypesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, mime := range a {
		if !strv.Strv(b).Contains(mime) {
			return false
		}
	}
	return true
}
