// Package users stores user profiles: the plan assignment, the usage
// counters quota enforcement reads and writes, and linked source-control
// provider tokens.
package users
