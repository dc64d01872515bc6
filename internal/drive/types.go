package drive

import "strings"

// FileInfo represents metadata about a file in Google Drive.
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Title is the human-readable name of the file
	Title string `json:"title"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// IconLink is a link to the file's type icon
	IconLink string `json:"iconLink,omitempty"`

	// Owners are the owners of the file
	Owners []User `json:"owners,omitempty"`

	// Permissions are the access permissions for the file
	Permissions []Permission `json:"permissions,omitempty"`
}

// PubliclyViewable reports whether the file has at least one permission of
// type "anyone" (case-insensitive). Role and link flag are not required for
// the check.
func (f *FileInfo) PubliclyViewable() bool {
	for _, p := range f.Permissions {
		if strings.EqualFold(p.Type, TypeAnyone) {
			return true
		}
	}
	return false
}

// User represents a Google Drive user (owner, permission holder, etc.)
type User struct {
	// DisplayName is the display name of the user
	DisplayName string `json:"displayName"`

	// EmailAddress is the email address of the user
	EmailAddress string `json:"emailAddress"`
}

// Permission grantee types and roles used by the viewer.
const (
	TypeAnyone = "anyone"
	RoleReader = "reader"
)

// Permission represents access permissions for a file.
type Permission struct {
	// ID is the unique identifier for the permission
	ID string `json:"id"`

	// Type is the type of grantee (user, group, domain, anyone)
	Type string `json:"type"`

	// Role is the role granted by this permission (owner, writer, reader)
	Role string `json:"role"`

	// WithLink indicates the grant applies to anyone holding the file's link
	WithLink bool `json:"withLink"`

	// EmailAddress is the email address of the user or group (if type is user or group)
	EmailAddress string `json:"emailAddress,omitempty"`

	// Domain is the domain to which this permission refers (if type is domain)
	Domain string `json:"domain,omitempty"`

	// Name is the display name of the grantee
	Name string `json:"name,omitempty"`
}

// AnyoneWithLink returns the permission the viewer inserts when a file is
// not yet publicly viewable.
func AnyoneWithLink() *Permission {
	return &Permission{
		Type:     TypeAnyone,
		Role:     RoleReader,
		WithLink: true,
	}
}
