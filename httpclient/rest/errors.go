package rest

import (
	"errors"

	"github.com/kbukum/portalgpt/httpclient"
)

func IsNotFound(err error) bool  { return httpclient.IsNotFound(err) }
func IsRetryable(err error) bool { return httpclient.IsRetryable(err) }
func IsTimeout(err error) bool   { return httpclient.IsTimeout(err) }

// IsDecode reports whether err is a body decoding failure.
func IsDecode(err error) bool {
	var d *DecodeError
	return errors.As(err, &d)
}
