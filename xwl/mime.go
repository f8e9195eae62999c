// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/strv"
	x "github.com/linuxdeepin/go-x11-client"
)

// MimeOffer is one format advertised by an X11 owner.
type MimeOffer struct {
	Mime string
	Atom x.Atom
}

func (s *session) mimeTypeToAtom(mimeType string) x.Atom {
	switch mimeType {
	case mimeTextPlainUtf8:
		return s.atoms.utf8String
	case mimeTextPlain:
		return s.atoms.text
	case mimeURIList, mimeXURI:
		return s.atoms.uriList
	}
	return s.atomCache.atom(mimeType)
}

func (s *session) atomToMimeTypes(atom x.Atom) []string {
	switch atom {
	case x.None:
		return nil
	case s.atoms.utf8String:
		return []string{mimeTextPlainUtf8}
	case s.atoms.text:
		return []string{mimeTextPlain}
	case s.atoms.uriList, s.atoms.netscapeURL, s.atoms.mozURL:
		// text/x-uri is how some Wayland clients name a uri list
		return []string{mimeURIList, mimeXURI}
	}
	name := s.atomCache.name(atom)
	if name == "" {
		return nil
	}
	return []string{name}
}

func (s *session) atomName(atom x.Atom) string {
	if atom == x.None {
		return "None"
	}
	name := s.atomCache.name(atom)
	if name == "" {
		return "?"
	}
	return name
}

// isMetaTarget reports targets that describe the selection rather than
// carry data.
func (s *session) isMetaTarget(atom x.Atom) bool {
	switch atom {
	case x.None, s.atoms.targets, s.atoms.timestamp, s.atoms.multiple,
		s.atoms.delete, s.atoms.saveTargets,
		s.atoms.insertProperty, s.atoms.insertSelection:
		return true
	}
	return false
}

// matchMimeType finds mimeType in offers, uri-list and x-uri stand in for
// each other.
func matchMimeType(offers []string, mimeType string) (string, bool) {
	if strv.Strv(offers).Contains(mimeType) {
		return mimeType, true
	}
	var alias string
	switch mimeType {
	case mimeURIList:
		alias = mimeXURI
	case mimeXURI:
		alias = mimeURIList
	default:
		return "", false
	}
	if strv.Strv(offers).Contains(alias) {
		return alias, true
	}
	return "", false
}

func offerMimes(offers []MimeOffer) []string {
	result := make([]string, 0, len(offers))
	for _, offer := range offers {
		if !strv.Strv(result).Contains(offer.Mime) {
			result = append(result, offer.Mime)
		}
	}
	return result
}

// offersFromAtoms maps target atoms to mime offers, skipping duplicates.
func (s *session) offersFromAtoms(targets []x.Atom) []MimeOffer {
	var offers []MimeOffer
	var mimes []string
	for _, target := range targets {
		if s.isMetaTarget(target) {
			continue
		}
		for _, mime := range s.atomToMimeTypes(target) {
			if strv.Strv(mimes).Contains(mime) {
				continue
			}
			mimes = append(mimes, mime)
			offers = append(offers, MimeOffer{Mime: mime, Atom: target})
		}
	}
	return offers
}

func diffOffers(oldOffers, newOffers []MimeOffer) (added, removed []string) {
	oldMimes := strv.Strv(offerMimes(oldOffers))
	newMimes := strv.Strv(offerMimes(newOffers))
	for _, mime := range newMimes {
		if !oldMimes.Contains(mime) {
			added = append(added, mime)
		}
	}
	for _, mime := range oldMimes {
		if !newMimes.Contains(mime) {
			removed = append(removed, mime)
		}
	}
	return
}
