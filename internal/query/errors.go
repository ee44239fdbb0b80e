package query

import "errors"

var (
	ErrQuerySyntax = errors.New("query syntax error")
	ErrInvalidDate = errors.New("invalid date")
)
