// Package sessionlog loads recorded recommendation sessions.
//
// A session log is a JSON document. Two views are read from it: the SQL the
// user chose at each turn, and the recommendation lists offered at each
// turn starting with the cold-start list. Each view is validated against
// its own CUE definition before it is decoded.
package sessionlog
