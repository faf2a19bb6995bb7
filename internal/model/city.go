package model

// City is a row in the `cities` table.  Cities are immutable reference
// data: they are created by the seed process, keyed by a short code, and
// never deleted while a cafe references them.
//
// Fields:
//  Code  - short unique code used as the primary key (e.g. "sf").
//  Name  - display name of the city.
//  State - two-letter state abbreviation.
type City struct {
	Code  string `json:"code"`  // cities.code
	Name  string `json:"name"`  // cities.name
	State string `json:"state"` // cities.state
}
