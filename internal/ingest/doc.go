// Package ingest drives the price-report ingestion pipeline: it pages
// unread feed messages, parses them into price observations, classifies
// each observation against rolling per-item price history, and persists
// the labeled results in checkpointed flushes.
package ingest
