// Package wirepolicy converts between JSON-like documents and Go structs under
// per-member metadata and per-call policies.
//
// Member metadata lives in the `wire` struct tag:
//
//	type Person struct {
//		FirstName string
//		LastName  string            `wire:"name=last_name"`
//		Secret    string            `wire:"ignore"`
//		Nickname  *string           `wire:"nulls=include"`
//		Created   time.Time         `wire:"readonly"`
//		Extra     ExtensionData[any] `wire:"extension"`
//	}
//
// Per-call Options add a naming policy, null suppression and read-only
// exclusion. Keys that match no member are captured into the extension member
// when one exists and dropped otherwise.
//
// Design policy:
//   - Keep only public APIs in the root package; put token plumbing under internal/.
//   - Token drivers live under source/, alternate document formats under yaml/ and msgpack/.
//   - The CLI lives under cmd/wirepolicy.
//
// Typical usage:
//
//	data, err := wirepolicy.Marshal(p, wirepolicy.Options{NamingPolicy: wirepolicy.CamelCase})
//	var out *Person
//	err = wirepolicy.Unmarshal(data, &out)
package wirepolicy
