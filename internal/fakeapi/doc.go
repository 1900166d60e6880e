// Package fakeapi is an in-memory implementation of the task API the client
// consumes. It backs cmd/devapi and the end-to-end tests. Data lives for the
// life of the process.
package fakeapi
