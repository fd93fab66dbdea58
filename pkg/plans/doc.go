// Package plans defines subscription plans and their resource limits.
//
// A plan caps the number of error analyses and connected repositories a
// user may hold. A limit of Unlimited (-1) removes the cap. Plans are
// stored in PostgreSQL and are read-mostly; CachedRegistry layers an
// in-process LRU and Redis in front of the database.
package plans
