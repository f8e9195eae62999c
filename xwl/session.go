// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
	"golang.org/x/sys/unix"
)

var logger = log.NewLogger("xwl")

// session is the context every component of one bridge shares.
type session struct {
	xc        XClient
	atoms     *atoms
	atomCache *atomCache
	seat      Seat
	workspace Workspace
	loop      EventLoop
	cfg       *Config

	closeFd        func(fd int) error
	pendingDestroy []func()

	// INCR transfers per requestor window, across all selections
	incrRequestors map[x.Window]int
}

func newSession(xc XClient, seat Seat, workspace Workspace, loop EventLoop, cfg *Config) (*session, error) {
	atoms, err := newAtoms(xc)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &session{
		xc:        xc,
		atoms:     atoms,
		atomCache: newAtomCache(xc),
		seat:      seat,
		workspace: workspace,
		loop:      loop,
		cfg:       cfg,
		closeFd:   unix.Close,

		incrRequestors: make(map[x.Window]int),
	}, nil
}

func (s *session) flush() {
	err := s.xc.Flush()
	if err != nil {
		logger.Warning("flush x connection err:", err)
	}
}

func (s *session) isXwaylandActive() bool {
	w := s.workspace.ActiveWindow()
	return w != nil && w.IsXwayland()
}

func (s *session) sendClientMessage(dest x.Window, typ x.Atom, data [5]uint32) {
	msg := &ClientMessage{
		Window: dest,
		Type:   typ,
		Data:   data,
	}
	if logger.GetLogLevel() == log.LevelDebug {
		logger.Debug("send", s.clientMessageToString(msg))
	}
	s.xc.SendClientMessage(dest, msg)
	s.flush()
}

// deferDestroy runs fn on the next loop turn, objects retire from inside
// their own callbacks.
func (s *session) deferDestroy(fn func()) {
	s.pendingDestroy = append(s.pendingDestroy, fn)
	if len(s.pendingDestroy) == 1 {
		s.loop.Post(s.drainPendingDestroy)
	}
}

func (s *session) drainPendingDestroy() {
	for len(s.pendingDestroy) > 0 {
		pending := s.pendingDestroy
		s.pendingDestroy = nil
		for _, fn := range pending {
			fn()
		}
	}
}

// watchRequestor selects PropertyNotify on win for an INCR transfer.
func (s *session) watchRequestor(win x.Window) {
	if s.incrRequestors[win] == 0 {
		s.xc.ChangeWindowEventMask(win, x.EventMaskPropertyChange)
	}
	s.incrRequestors[win]++
}

// unwatchRequestor drops the event mask on win once its last INCR transfer
// is over.
func (s *session) unwatchRequestor(win x.Window) {
	n := s.incrRequestors[win]
	if n <= 1 {
		delete(s.incrRequestors, win)
		s.xc.ChangeWindowEventMask(win, x.EventMaskNoEvent)
		s.flush()
		return
	}
	s.incrRequestors[win] = n - 1
}
