// Package trace reconstructs stack traces reported by the memory-safety
// checker.
//
// The checker reports each frame as a directory and a file name given as
// byte buffers with explicit lengths, plus a line and column. Names are
// decoded leniently (invalid UTF-8 becomes U+FFFD) and joined; the path is
// canonicalized only when printed, falling back to the joined path if the
// file cannot be resolved.
//
// Frames are stored innermost first, as received, and printed outermost
// first so the faulting call reads last:
//
//	@ load i32 from dangling pointer
//
//	/src/main.rs:3:1
//	/src/lib.rs:10:5
package trace
