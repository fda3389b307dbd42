package utils

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const (
	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
	GBK   = "GBK"
)

func isGbk(enc string) bool {
	return strings.EqualFold(enc, GBK)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// 按enc编码写出，需Close以刷新转换缓冲（不会关闭w）
func EncodingWriter(w io.Writer, enc string) io.WriteCloser {
	if isGbk(enc) {
		return transform.NewWriter(w, simplifiedchinese.GBK.NewEncoder())
	}
	return nopWriteCloser{w}
}

// GBK 转 UTF-8 读取
func DecodingReader(r io.Reader, enc string) io.Reader {
	if isGbk(enc) {
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	}
	return r
}

// 去掉UTF-8 BOM
func TrimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
