package web_fetch

import (
	"bytes"
	"mime"
	"strings"

	"github.com/mohammad-safakhou/aisearch/tools/web_fetch/models"
)

var pdfMagic = []byte("%PDF")

// Detect classifies raw bytes using the declared content type and the leading
// bytes. PDF wins whenever either signal says PDF; everything else is HTML.
func Detect(contentType string, raw []byte) models.Kind {
	mt := mediaType(contentType)
	if mt == "application/pdf" || mt == "application/x-pdf" || bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), pdfMagic) {
		return models.KindPDF
	}
	return models.KindHTML
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
