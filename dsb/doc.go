// Package dsb talks to the DSBmobile JSON endpoint.
//
// A single POST carries the credentials as base64(gzip(json)) and the answer
// comes back wrapped the same way under the "d" key. The decoded document is a
// loosely typed menu tree; the timetable pages live under
// "Inhalte" > "Pläne" and the announcements under "Inhalte" > "News".
//
// The main type is Client. It never retries; scheduling, backoff and cache
// fallback belong to the caller.
package dsb
