// Package domain contains the core entities of the speech analysis service.
// Domain types own their validation and carry no persistence or transport
// concerns.
package domain
