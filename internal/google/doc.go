// Package google provides service account authentication and client
// construction for Google APIs.
//
// The Factory produces one authenticated client per (impersonated account,
// API kind) pair and caches it for the lifetime of the process. Clients are
// built from a single PKCS#12 service account key loaded at startup and
// impersonate the requested account via domain-wide delegation.
package google
