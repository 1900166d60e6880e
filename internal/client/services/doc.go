// Package services holds the client-side state stores: the session, the theme
// preference, the user's task collection and the admin overview.
//
// Stores are safe for concurrent use. Observers are called synchronously, on
// the goroutine that caused the change, after the store's lock is released.
package services
