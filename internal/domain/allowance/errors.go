package allowance

import "errors"

var (
	ErrAllowanceNotFound = errors.New("allowance not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
)
