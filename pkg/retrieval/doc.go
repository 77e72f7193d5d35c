// Package retrieval implements the bulk and paginated data-retrieval client
// for regulatory emissions, facility-attribute, and allowance datasets.
//
// One QuerySpec describes one logical unit of work (one state, one file
// category, one date window) and is consumed exactly once to produce one
// AssembledTable. Three retrieval modes are supported:
//
//   - Paginated: a probe request discovers the authoritative total record
//     count from the x-total-count header, pages are then fetched
//     sequentially with a fixed minimum inter-request delay, and rows are
//     concatenated in page order.
//
//   - Streaming window: a single request bounded by an inclusive date range
//     instead of pagination. Windows wider than the recommended limit emit a
//     non-fatal advisory; the remote service stays the authority on whether
//     the window is actually too large.
//
//   - Bulk catalog: one request returns a manifest of downloadable files;
//     the caller filters the manifest and hands the selected entries back
//     for download and concatenation.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(apiKey))
//	r := retrieval.New(c, retrieval.DefaultConfig(), retrieval.NewLogObserver())
//
//	spec := retrieval.NewPaginatedQuery("annual-CA",
//		"/emissions-mgmt/emissions/apportioned/annual",
//		retrieval.Filters{}.Add("stateCode", "CA").Add("year", years...),
//		100)
//	table, err := r.FetchPaginated(ctx, spec)
//
// Progress is reported through an injected Observer so the fetch loops stay
// free of output concerns. Independent QuerySpecs may run concurrently via
// FetchAll; each spec's own loop remains strictly sequential.
package retrieval
