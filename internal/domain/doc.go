// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (profile.go, conversation.go, goal.go, billing.go, ...)
// hold entity types, repository ports and provider ports. No implementation
// code, just contracts shared by app and the adapters.
package domain
