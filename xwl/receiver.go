// SPDX-FileCopyrightText: 2023 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xwl

import (
	"bytes"

	"github.com/axgle/mahonia"
	"golang.org/x/text/encoding/unicode"
)

// dataReceiver holds property data until it is written to the Wayland fd.
type dataReceiver interface {
	transferFromProperty(value []byte)
	data() []byte
	partRead(n int)
	reset()
}

type plainReceiver struct {
	buf    []byte
	offset int
}

func (r *plainReceiver) transferFromProperty(value []byte) {
	r.setData(value)
}

func (r *plainReceiver) setData(value []byte) {
	r.buf = value
	r.offset = 0
}

func (r *plainReceiver) data() []byte {
	return r.buf[r.offset:]
}

func (r *plainReceiver) partRead(n int) {
	r.offset += n
	if r.offset > len(r.buf) {
		r.offset = len(r.buf)
	}
}

func (r *plainReceiver) reset() {
	r.buf = nil
	r.offset = 0
}

// netscapeURLReceiver gets "url\ntitle\n" pairs and keeps the urls.
type netscapeURLReceiver struct {
	plainReceiver
}

func (r *netscapeURLReceiver) transferFromProperty(value []byte) {
	r.setData(stripEveryOtherLine(value))
}

// mozURLReceiver gets UTF-16 "url\ntitle" pairs.
type mozURLReceiver struct {
	plainReceiver
	charset string
}

func (r *mozURLReceiver) transferFromProperty(value []byte) {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	utf8Data, err := decoder.Bytes(value)
	if err != nil {
		logger.Warning("decode text/x-moz-url err:", err)
		r.setData(nil)
		return
	}
	if idx := bytes.IndexByte(utf8Data, 0); idx >= 0 {
		utf8Data = utf8Data[:idx]
	}
	r.setData(stripEveryOtherLine(encodeCharset(utf8Data, r.charset)))
}

func encodeCharset(utf8Data []byte, charset string) []byte {
	if charset == "" {
		return utf8Data
	}
	encoder := mahonia.NewEncoder(charset)
	if encoder == nil {
		logger.Warningf("unknown charset %q", charset)
		return utf8Data
	}
	return []byte(encoder.ConvertString(string(utf8Data)))
}

// stripEveryOtherLine drops the second line of every pair. Data without a
// line break is kept as is.
func stripEveryOtherLine(value []byte) []byte {
	if bytes.IndexByte(value, '\n') < 0 {
		return value
	}
	var result []byte
	removeLine := false
	start := 0
	for start < len(value) {
		part := value[start:]
		lineBreak := bytes.IndexByte(part, '\n')
		if lineBreak < 0 {
			if !removeLine {
				result = append(result, part...)
			}
			break
		}
		if removeLine {
			result = append(result, '\n')
		} else {
			result = append(result, part[:lineBreak]...)
		}
		removeLine = !removeLine
		start += lineBreak + 1
	}
	return result
}
