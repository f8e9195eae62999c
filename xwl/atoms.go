// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	x "github.com/linuxdeepin/go-x11-client"
	"golang.org/x/xerrors"
)

const (
	mimeTextPlain     = "text/plain"
	mimeTextPlainUtf8 = "text/plain;charset=utf-8"
	mimeURIList       = "text/uri-list"
	mimeXURI          = "text/x-uri"
)

type atoms struct {
	clipboard     x.Atom
	primary       x.Atom
	xdndSelection x.Atom

	targets         x.Atom
	timestamp       x.Atom
	delete          x.Atom
	multiple        x.Atom
	saveTargets     x.Atom
	insertProperty  x.Atom
	insertSelection x.Atom
	incr            x.Atom
	wlSelection     x.Atom

	text        x.Atom
	utf8String  x.Atom
	uriList     x.Atom
	netscapeURL x.Atom
	mozURL      x.Atom

	xdndAware    x.Atom
	xdndEnter    x.Atom
	xdndPosition x.Atom
	xdndStatus   x.Atom
	xdndLeave    x.Atom
	xdndDrop     x.Atom
	xdndFinished x.Atom
	xdndTypeList x.Atom

	xdndActionCopy x.Atom
	xdndActionMove x.Atom
	xdndActionAsk  x.Atom
}

func newAtoms(xc XClient) (*atoms, error) {
	a := &atoms{}
	table := []struct {
		name string
		atom *x.Atom
	}{
		{"CLIPBOARD", &a.clipboard},
		{"PRIMARY", &a.primary},
		{"XdndSelection", &a.xdndSelection},
		{"TARGETS", &a.targets},
		{"TIMESTAMP", &a.timestamp},
		{"DELETE", &a.delete},
		{"MULTIPLE", &a.multiple},
		{"SAVE_TARGETS", &a.saveTargets},
		{"INSERT_PROPERTY", &a.insertProperty},
		{"INSERT_SELECTION", &a.insertSelection},
		{"INCR", &a.incr},
		{"WL_SELECTION", &a.wlSelection},
		{"TEXT", &a.text},
		{"UTF8_STRING", &a.utf8String},
		{mimeURIList, &a.uriList},
		{"_NETSCAPE_URL", &a.netscapeURL},
		{"text/x-moz-url", &a.mozURL},
		{"XdndAware", &a.xdndAware},
		{"XdndEnter", &a.xdndEnter},
		{"XdndPosition", &a.xdndPosition},
		{"XdndStatus", &a.xdndStatus},
		{"XdndLeave", &a.xdndLeave},
		{"XdndDrop", &a.xdndDrop},
		{"XdndFinished", &a.xdndFinished},
		{"XdndTypeList", &a.xdndTypeList},
		{"XdndActionCopy", &a.xdndActionCopy},
		{"XdndActionMove", &a.xdndActionMove},
		{"XdndActionAsk", &a.xdndActionAsk},
	}
	for _, item := range table {
		atom, err := xc.GetAtom(item.name)
		if err != nil {
			return nil, xerrors.Errorf("init atoms: %w", err)
		}
		*item.atom = atom
	}
	return a, nil
}

// atomCache keeps interned names both ways, an atom never changes its name
// during the connection.
type atomCache struct {
	xc     XClient
	names  map[x.Atom]string
	byName map[string]x.Atom
}

func newAtomCache(xc XClient) *atomCache {
	return &atomCache{
		xc:     xc,
		names:  make(map[x.Atom]string),
		byName: make(map[string]x.Atom),
	}
}

func (c *atomCache) atom(name string) x.Atom {
	if atom, ok := c.byName[name]; ok {
		return atom
	}
	atom, err := c.xc.GetAtom(name)
	if err != nil {
		logger.Warning(err)
		return x.None
	}
	c.byName[name] = atom
	c.names[atom] = name
	return atom
}

func (c *atomCache) name(atom x.Atom) string {
	if atom == x.None {
		return ""
	}
	if name, ok := c.names[atom]; ok {
		return name
	}
	name, err := c.xc.GetAtomName(atom)
	if err != nil {
		logger.Warning(err)
		return ""
	}
	c.names[atom] = name
	c.byName[name] = atom
	return name
}
