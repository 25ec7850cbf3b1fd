// Package factory provides provider registration and client construction.
//
// Providers register a constructor under their name; CreateClient looks the
// name up from a client configuration and builds the client. Importing this
// package registers all bundled providers.
package factory
