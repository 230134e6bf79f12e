package mail

import (
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"
	"syscall"
)

// Transient reports whether a send failure is connection-level and
// worth retrying on a fresh connection. Authentication failures and
// permanent SMTP rejections (5xx) are not transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		// 421 = service closing channel, 4xx = transient negative
		return protoErr.Code >= 400 && protoErr.Code < 500
	}

	// Fall back to message matching for errors the smtp client
	// flattens into plain strings.
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection reset",
		"broken pipe",
		"use of closed network connection",
		"unexpected eof",
		"connection closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
