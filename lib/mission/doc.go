// Package mission knows which imaging missions an identification project can
// draw on and which external downloader serves each of them.
//
// Downloaders are opaque here: the image acquisition pipeline lives
// elsewhere, so this package only records which missions are enabled and
// which downloader name the pipeline should instantiate for each.
package mission
