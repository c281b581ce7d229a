// Package contenthub is the metadata index and query engine behind the content hub's
// three media types: markdown articles, PDFs and image infographics.
//
// Each content type owns a directory holding a JSON index document (the system of
// record for metadata) and the content files named by each record's filename. A
// Repository composes an IndexStore, the pure Apply query function and a FileStore to
// implement list/get/upload/delete for one type.
//
// Consistency
//
// Uploads write the file before the index entry; deletes remove the index entry before
// the file. Either way a failure leaves an orphan file, which is inert, rather than an
// index entry pointing at nothing. Reconcile reports (and optionally prunes) orphans.
//
// Index writes are atomic (temporary file then rename). Uploads, deletes and reconciliation
// hold an OS file lock on the content-type directory for their whole load-modify-save cycle
// (for uploads, from the file write on), so repositories in other processes or other Hubs
// sharing the directory are serialized with this one. Writers also check that the document
// has not changed since it was loaded; an edit that bypasses the lock surfaces as a
// retryable ErrConcurrentWrite instead of a lost update.
package contenthub
