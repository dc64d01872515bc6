package viewer

import (
	"fmt"

	"github.com/robertlancer/supershare/internal/drive"
	"github.com/robertlancer/supershare/internal/logging"
)

// MIME types of Google Workspace documents with a dedicated preview URL form.
const (
	MimeDocument     = "application/vnd.google-apps.document"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePresentation = "application/vnd.google-apps.presentation"
	MimeDrawing      = "application/vnd.google-apps.drawing"
)

// PreviewURL derives the embeddable preview URL for a file from its MIME
// type, its first owner's email domain, and its ID. Files without an owner
// (or with an owner lacking a usable email domain) cannot be previewed.
func PreviewURL(file *drive.FileInfo) (string, error) {
	if len(file.Owners) == 0 {
		return "", fmt.Errorf("file %s has no owners", file.ID)
	}

	domain := logging.ExtractDomain(file.Owners[0].EmailAddress)
	if domain == "" {
		return "", fmt.Errorf("owner of file %s has no email domain", file.ID)
	}

	switch file.MimeType {
	case MimeDocument:
		return fmt.Sprintf("https://docs.google.com/a/%s/document/d/%s/preview", domain, file.ID), nil
	case MimeSpreadsheet:
		return fmt.Sprintf("https://docs.google.com/a/%s/spreadsheet/ccc?key=%s&output=html&widget=true&chrome=false", domain, file.ID), nil
	case MimePresentation:
		return fmt.Sprintf("https://docs.google.com/a/%s/presentation/d/%s/preview", domain, file.ID), nil
	case MimeDrawing:
		return fmt.Sprintf("https://docs.google.com/a/%s/drawings/d/%s/preview", domain, file.ID), nil
	default:
		return fmt.Sprintf("https://docs.google.com/a/%s/file/d/%s/preview", domain, file.ID), nil
	}
}
