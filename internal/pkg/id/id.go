package id

import "github.com/oklog/ulid/v2"

// New returns a new ULID string. ULIDs sort by creation time and are safe
// for use as DynamoDB partition keys.
func New() string {
	return ulid.Make().String()
}
