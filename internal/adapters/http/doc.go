// Package http delivers lifecycle notifications to a remote endpoint as
// JSON webhooks.
package http
