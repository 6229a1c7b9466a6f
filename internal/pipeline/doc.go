// Package pipeline drives harvest runs: fetch, parse, assemble and persist.
//
// Two entry points exist and each has its own persistence contract. RunPages upserts every
// record as soon as it is assembled, so a store is never left with duplicate titles.
// RunListing collects every record first and appends them in one batch without
// de-duplication, which is meant for populating a new store. Both take a backup before
// touching the store and restore it when a store write fails.
package pipeline
