// Package media holds the project, timeline, and media asset domain model:
// closed enumerations, timeline validation, and the snapshot copy a job
// consumes independently of later project edits.
package media
