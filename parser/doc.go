// Package parser turns Untis substitution detail pages into plan values.
//
// Pages are read with golang.org/x/net/html after charset detection, so the
// ISO-8859-1 exports Untis produces by default decode correctly.
package parser
