// Package pagination turns a cursor-paged list API into a single ordered sequence.
//
// The service caps list pages at 50 (follow relationships) or 100 (everything
// else) records and hands back an opaque cursor with each page. Collect walks
// those pages strictly in order, since cursor N+1 is only known once page N
// has been read.
//
// Example usage:
//
//	users, err := pagination.Collect(ctx, fetchFollowers, pagination.Options{
//		List:     "followers",
//		PageSize: pagination.PageSizeFollow,
//		Total:    followerCount,
//	}, pagination.Exactly(120))
//
// Termination rules:
//   - stop when the service returns no cursor
//   - stop when a page is empty, even if it carries a cursor
//   - stop once the requested amount has been consumed (in page-size steps)
//
// A result shorter than requested is not an error. A failed fetch aborts the
// whole walk and discards what was gathered so far.
package pagination
