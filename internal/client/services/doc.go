// Package services contains the application layer of the blog client.
//
// PostQueryService reads posts through the shared cache and deduplicates
// concurrent fetches of the same list. PostMutationService writes through
// the Post API and invalidates the cache tags the write affects.
// AuthService drives the session store. ListSlot holds the state of one
// logical list view and applies only the most recent load.
package services
