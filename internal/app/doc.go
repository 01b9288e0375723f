// Package app holds the use cases of the coaching service. Services here
// validate input, orchestrate repositories and providers from the domain
// package and return domain sentinels or structured errors for the HTTP
// layer to translate.
package app
