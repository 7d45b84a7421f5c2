// Package pagination drains paginated upstream collection listings.
//
// The upstream serves collections as numbered pages of ten items
// ({count, next, previous, results}). The batch fetcher:
//   - Fetches the first page to learn the item count
//   - Fetches the remaining pages in parallel (errgroup, bounded)
//   - Reassembles items in upstream order
//   - Fails the whole drain if any page fails
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(gateway, pagination.DefaultConfig())
//	items, err := fetcher.FetchAll(ctx, swapi.EntityCharacter)
package pagination
