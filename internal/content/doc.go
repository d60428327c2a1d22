// Package content holds the site's public content and inbound messages:
// static pages, FAQs, contact submissions, and uploaded files.
//
// Repositories are thin sqlx + squirrel wrappers.  Visibility rules live in
// the query, never in handlers: published content goes through
// model.ActiveAt and soft-deleted files through model.NotDeleted.
package content
