// Package dedupe detects repeated form submissions. Each rendered create form
// carries a one-off token; the first request to claim a token wins and later
// requests with the same token inside the TTL are duplicates.
package dedupe
