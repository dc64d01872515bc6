// Package drive provides a thin client for the Google Drive API operations
// the document viewer needs: listing the files of a folder and managing
// link-sharing permissions.
//
// The client wraps a Drive v2 service obtained from the google package and
// converts API types to local types. Drive v2 is used deliberately: the
// viewer's lookup and sharing semantics are expressed in v2 terms (file
// title, icon link, link-sharing flag on permissions).
package drive
