// Package driving defines the interfaces through which the outside world
// drives the core: the digest worker and the search service.
package driving
