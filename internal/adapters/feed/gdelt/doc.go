// Package gdelt streams event rows from the GDELT v2 export feed.
//
// The feed publishes one zipped tab separated archive per 15 minute interval
// at http://data.gdeltproject.org/gdeltv2/YYYYMMDDHHMMSS.export.CSV.zip.
// This package handles interval naming, archive fetch (with 404 vs transient
// failure distinction), zip extraction, and strict per row parsing. Turning
// rows into canonical entity records is the ingest service's job
package gdelt
