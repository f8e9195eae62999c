// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"time"

	"github.com/linuxdeepin/xwayland-databridge/common/dconfig"
	"golang.org/x/xerrors"
)

const (
	dSettingsAppID        = "org.deepin.dde.daemon"
	dSettingsXwaylandName = "org.deepin.dde.daemon.xwayland"

	dSettingsKeyPrimarySelectionEnabled = "primarySelectionEnabled"
	dSettingsKeyTransferTimeout         = "transferTimeout"
	dSettingsKeyDropTimeout             = "dropTimeout"
	dSettingsKeyDragButton              = "dragButton"
	dSettingsKeyMozURLCharset           = "mozUrlCharset"
)

// BTN_LEFT of linux/input-event-codes.h
const btnLeft = 0x110

type Config struct {
	PrimarySelection bool
	// TransferTimeout is the tick after which an idle transfer is marked,
	// a transfer still idle on the next tick is ended.
	TransferTimeout time.Duration
	// DropTimeout is how long a dropped X drag waits for both sides.
	DropTimeout time.Duration
	// DragButton is the evdev code of the button an X drag is held with.
	DragButton uint32
	// MozURLCharset is the charset text/x-moz-url data is handed out in.
	MozURLCharset string
}

func DefaultConfig() *Config {
	return &Config{
		PrimarySelection: true,
		TransferTimeout:  5 * time.Second,
		DropTimeout:      2 * time.Second,
		DragButton:       btnLeft,
		MozURLCharset:    "ISO-8859-1",
	}
}

var configKeys = []string{
	dSettingsKeyPrimarySelectionEnabled,
	dSettingsKeyTransferTimeout,
	dSettingsKeyDropTimeout,
	dSettingsKeyDragButton,
	dSettingsKeyMozURLCharset,
}

type valueGetter interface {
	GetValue(key string) (interface{}, error)
}

// ConfigWatcher is implemented by *dconfig.DConfig.
type ConfigWatcher interface {
	ConnectConfigChanged(key string, cb func(interface{}))
}

// LoadConfig reads the xwayland DConfig resource. The defaults are returned
// along with the error when DConfig is unavailable.
func LoadConfig() (*Config, *dconfig.DConfig, error) {
	dc, err := dconfig.NewDConfig(dSettingsAppID, dSettingsXwaylandName, "")
	if err != nil {
		return DefaultConfig(), nil, xerrors.Errorf("load xwayland config: %w", err)
	}
	return loadConfigFrom(dc), dc, nil
}

func loadConfigFrom(getter valueGetter) *Config {
	cfg := DefaultConfig()
	for _, key := range configKeys {
		value, err := getter.GetValue(key)
		if err != nil {
			logger.Debugf("config key %s: %v", key, err)
			continue
		}
		if !cfg.apply(key, value) {
			logger.Warningf("config key %s: bad value %v", key, value)
		}
	}
	return cfg
}

// apply sets key to value, it reports false for unknown keys and bad
// values.
func (cfg *Config) apply(key string, value interface{}) bool {
	switch key {
	case dSettingsKeyPrimarySelectionEnabled:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		cfg.PrimarySelection = v
	case dSettingsKeyTransferTimeout, dSettingsKeyDropTimeout:
		ms, ok := dconfig.ToInt(value)
		if !ok || ms <= 0 {
			return false
		}
		d := time.Duration(ms) * time.Millisecond
		if key == dSettingsKeyTransferTimeout {
			cfg.TransferTimeout = d
		} else {
			cfg.DropTimeout = d
		}
	case dSettingsKeyDragButton:
		button, ok := dconfig.ToInt(value)
		if !ok || button <= 0 {
			return false
		}
		cfg.DragButton = uint32(button)
	case dSettingsKeyMozURLCharset:
		v, ok := value.(string)
		if !ok {
			return false
		}
		cfg.MozURLCharset = v
	default:
		return false
	}
	return true
}
