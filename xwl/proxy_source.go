// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"golang.org/x/sys/unix"
)

// proxyDataSource is the Wayland data source standing in for an X11 owner.
type proxyDataSource struct {
	mimeTypes []string
	onRequest func(mimeType string, fd int)
	cancelled bool
}

func newProxyDataSource(mimeTypes []string, onRequest func(mimeType string, fd int)) *proxyDataSource {
	return &proxyDataSource{
		mimeTypes: mimeTypes,
		onRequest: onRequest,
	}
}

func (ds *proxyDataSource) MimeTypes() []string {
	return ds.mimeTypes
}

func (ds *proxyDataSource) RequestData(mimeType string, fd int) {
	if ds.cancelled || ds.onRequest == nil {
		_ = unix.Close(fd)
		return
	}
	ds.onRequest(mimeType, fd)
}

func (ds *proxyDataSource) Cancel() {
	ds.cancelled = true
}

func (ds *proxyDataSource) setMimeTypes(mimeTypes []string) {
	ds.mimeTypes = mimeTypes
}

// proxyDragSource is the drag source of an X11 drag.
type proxyDragSource struct {
	proxyDataSource
	supportedActions DnDAction
	selectedAction   DnDAction
	acceptedMimeType string

	onDropPerformed func()
	onFinished      func()
}

func newProxyDragSource(onRequest func(mimeType string, fd int)) *proxyDragSource {
	return &proxyDragSource{
		proxyDataSource: proxyDataSource{
			onRequest: onRequest,
		},
		supportedActions: DnDActionCopy,
	}
}

func (ds *proxyDragSource) SupportedActions() DnDAction {
	return ds.supportedActions
}

func (ds *proxyDragSource) SelectedAction() DnDAction {
	return ds.selectedAction
}

func (ds *proxyDragSource) SetSelectedAction(action DnDAction) {
	ds.selectedAction = action
}

func (ds *proxyDragSource) Accept(mimeType string) {
	ds.acceptedMimeType = mimeType
}

func (ds *proxyDragSource) DropPerformed() {
	if ds.onDropPerformed != nil {
		ds.onDropPerformed()
	}
}

func (ds *proxyDragSource) Finished() {
	if ds.onFinished != nil {
		ds.onFinished()
	}
}

func (ds *proxyDragSource) setSupportedActions(actions DnDAction) {
	ds.supportedActions = actions
}
