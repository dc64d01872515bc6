// Package viewer implements the document viewer HTTP handler.
//
// A request path names a document by title (hyphens standing in for spaces).
// The handler resolves the title against the files of a configured Drive
// folder, lazily makes the matched file viewable by anyone with the link,
// and responds with an HTML page embedding the file's native Google preview
// in a full-viewport frame.
package viewer
