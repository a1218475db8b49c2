// Package sys supplies raw memory to the allocator, mapping and
// unmapping anonymous pages straight from the operating system. It is
// the only package that touches the OS and it never calls back into
// the allocator.
//
// Page size is queried once and cached for the lifetime of the
// process. All ranges handed out by this package are page-aligned and
// zero filled.
package sys
