package viewer

import (
	"strings"

	"github.com/robertlancer/supershare/internal/drive"
)

// renderPage builds the complete viewer document: the file's title as page
// title, its icon as favicon, and a borderless full-viewport iframe at the
// preview URL. Title and icon link are interpolated verbatim; documents come
// from a single operator-controlled folder.
func renderPage(file *drive.FileInfo, previewURL string) string {
	var b strings.Builder

	b.WriteString("<html>")
	b.WriteString("<head><title>" + file.Title + "</title>")
	b.WriteString("<link rel=\"icon\" type=\"image/png\"\n href=\"" + file.IconLink + "\" />")
	b.WriteString("</head>")
	b.WriteString("<body>")
	b.WriteString("<style>\n")
	b.WriteString("html, body { overflow:hidden; height:100%; padding:0px; margin:0px; }")
	b.WriteString("\n</style>")
	b.WriteString("<iframe src='" + previewURL + "' frameborder=0 style='width:100%;height:100%;' /></iframe>")
	b.WriteString("</body></html>")

	return b.String()
}
