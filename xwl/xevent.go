// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/xfixes"
)

// decodeEvent returns one of *x.SelectionRequestEvent,
// *x.SelectionNotifyEvent, *x.PropertyNotifyEvent, *ClientMessage or
// *xfixes.SelectionNotifyEvent, nil for everything else.
func decodeEvent(ev x.GenericEvent, xfixesFirstEvent uint8) interface{} {
	code := ev.GetEventCode()
	switch code {
	case x.SelectionRequestEventCode:
		event, err := x.NewSelectionRequestEvent(ev)
		if err != nil {
			logger.Warning(err)
			return nil
		}
		return event
	case x.SelectionNotifyEventCode:
		event, err := x.NewSelectionNotifyEvent(ev)
		if err != nil {
			logger.Warning(err)
			return nil
		}
		return event
	case x.PropertyNotifyEventCode:
		event, err := x.NewPropertyNotifyEvent(ev)
		if err != nil {
			logger.Warning(err)
			return nil
		}
		return event
	case x.ClientMessageEventCode:
		event, err := x.NewClientMessageEvent(ev)
		if err != nil {
			logger.Warning(err)
			return nil
		}
		if event.Format != 32 {
			return nil
		}
		msg := &ClientMessage{
			Window: event.Window,
			Type:   event.Type,
		}
		data := event.Data.GetData32()
		copy(msg.Data[:], data[:])
		return msg
	}

	if xfixesFirstEvent != 0 && code == xfixes.SelectionNotifyEventCode+xfixesFirstEvent {
		event, err := xfixes.NewSelectionNotifyEvent(ev)
		if err != nil {
			logger.Warning(err)
			return nil
		}
		return event
	}
	return nil
}

func (s *session) eventToString(ev interface{}) string {
	switch e := ev.(type) {
	case *x.SelectionRequestEvent:
		return fmt.Sprintf("SelectionRequestEvent {Time: %d, Owner: %d, Requestor: %d, "+
			"Selection: %s, Target: %s, Property: %s}",
			e.Time, e.Owner, e.Requestor,
			s.atomDesc(e.Selection), s.atomDesc(e.Target), s.atomDesc(e.Property))
	case *x.SelectionNotifyEvent:
		return fmt.Sprintf("SelectionNotifyEvent {Time: %d, Requestor: %d, "+
			"Selection: %s, Target: %s, Property: %s}",
			e.Time, e.Requestor,
			s.atomDesc(e.Selection), s.atomDesc(e.Target), s.atomDesc(e.Property))
	case *x.PropertyNotifyEvent:
		state := "NewValue"
		if e.State == x.PropertyDelete {
			state = "Delete"
		}
		return fmt.Sprintf("PropertyNotifyEvent {Window: %d, Atom: %s, Time: %d, State: %s}",
			e.Window, s.atomDesc(e.Atom), e.Time, state)
	case *ClientMessage:
		return s.clientMessageToString(e)
	case *xfixes.SelectionNotifyEvent:
		return fmt.Sprintf("XfixesSelectionNotifyEvent {Subtype: %d, Window: %d, Owner: %d, "+
			"Selection: %s, Timestamp: %d, SelectionTimestamp: %d}",
			e.Subtype, e.Window, e.Owner, s.atomDesc(e.Selection),
			e.Timestamp, e.SelectionTimestamp)
	}
	return spew.Sdump(ev)
}

func (s *session) clientMessageToString(msg *ClientMessage) string {
	return fmt.Sprintf("ClientMessage {Window: %d, Type: %s, Data: %s}",
		msg.Window, s.atomDesc(msg.Type), spew.Sprint(msg.Data))
}

func (s *session) atomDesc(atom x.Atom) string {
	return fmt.Sprintf("%s|%d", s.atomName(atom), atom)
}
