package oauthmodel

import "errors"

var (
	ErrMalformedCallback = errors.New("malformed callback url")
	ErrNoToken           = errors.New("no token in exchange response")
)
