// Package goroutineid reads the current goroutine's ID from its stack header.
// It is used to detect calls made from the script event loop goroutine.
package goroutineid

import (
	"bytes"
	"runtime"
)

var header = []byte("goroutine ")

// Get returns the current goroutine ID, or 0 if it cannot be parsed.
func Get() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

// parse reads the decimal ID following the "goroutine " header.
func parse(stack []byte) int64 {
	if !bytes.HasPrefix(stack, header) {
		return 0
	}
	var id int64
	for _, c := range stack[len(header):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
