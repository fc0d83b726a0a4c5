package openbis

import (
	"fmt"
	"strconv"
	"strings"
)

// LoginError reports a login whose reply did not look like a session token
// for the requested user. Nothing is stored when it is returned.
type LoginError struct {
	User   string
	Reason string
}

func (e *LoginError) Error() string {
	if e.User == "" {
		return "openbis: login failed: " + e.Reason
	}
	return fmt.Sprintf("openbis: login as %q failed: %s", e.User, e.Reason)
}

// NoDataStoreError reports that no data store matched the requested codes.
// Codes is empty when all data stores were requested.
type NoDataStoreError struct {
	Codes []string
}

func (e *NoDataStoreError) Error() string {
	if len(e.Codes) == 0 {
		return "openbis: no data stores found"
	}
	return "openbis: no data stores found for codes " + quoteAll(e.Codes)
}

// AmbiguousDataStoreError reports an operation that needs exactly one data
// store when several are in scope.
type AmbiguousDataStoreError struct {
	Op     string
	Stores []string
}

func (e *AmbiguousDataStoreError) Error() string {
	return fmt.Sprintf("openbis: %s needs exactly one data store, got %d: %s",
		e.Op, len(e.Stores), quoteAll(e.Stores))
}

// UnknownDataStoreError reports a creation routed to a data store that is not
// in the facade's scope.
type UnknownDataStoreError struct {
	Code   string
	Stores []string
}

func (e *UnknownDataStoreError) Error() string {
	return fmt.Sprintf("openbis: data store %q is not one of %s", e.Code, quoteAll(e.Stores))
}

func quoteAll(s []string) string {
	q := make([]string, len(s))
	for i, v := range s {
		q[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(q, ", ") + "]"
}
