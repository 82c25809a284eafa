// Package plan holds the substitution plan domain model together with the
// pure rules used to merge multi-page plans and order them for display.
package plan
