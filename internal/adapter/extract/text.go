package extract

import (
	"strings"
)

const utf8BOM = "\ufeff"

// decodeText reads data as UTF-8, dropping invalid byte sequences, a
// leading byte order mark and carriage returns.
func decodeText(data []byte) string {
	text := strings.ToValidUTF8(string(data), "")
	text = strings.TrimPrefix(text, utf8BOM)
	return strings.ReplaceAll(text, "\r\n", "\n")
}
