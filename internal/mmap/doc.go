// Package mmap maps files and anonymous memory into typed views.
//
// A Buffer owns exactly one OS mapping and must be released with Close on
// every path; Close is idempotent. Views over a shared mapping observe each
// other's writes and those writes reach the backing file after Sync. Private
// mappings are copy-on-write.
//
// Writes through a mapping of a read-only source fail with a read-only
// violation at the point of the write, never at map time.
package mmap
