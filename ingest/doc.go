// Package ingest exports dataset metadata from a CKAN portal (the London
// Datastore by default) as line-delimited records for downstream indexing.
//
// Each output line is the dataset's landing page URL, a tab, and the
// preprocessed metadata as a single-line JSON object:
//
//	https://data.london.gov.uk/dataset/air-quality\t{"id":"air-quality",...}
package ingest
