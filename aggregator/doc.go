// Package aggregator turns the upstream page list into the published,
// display-ordered list of merged substitution plans and keeps it fresh.
package aggregator
