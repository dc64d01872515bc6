// Package server provides the HTTP plumbing around the document viewer:
// the server context owning shared dependencies, the viewer HTTP server with
// request-ID and access-log middleware, Kubernetes-style health endpoints,
// and a dedicated Prometheus metrics server.
package server
