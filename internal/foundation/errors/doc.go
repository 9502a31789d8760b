// Package errors provides classified errors for attestbot.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying
// a category (what kind of failure), a severity (how bad it is for the
// current scope), and a retry strategy (what the caller may do about it).
// The HTTP adapter maps categories onto the service surface's status codes.
package errors
