// Package model defines the shared domain types: catalogued items, parsed
// price observations, and the currency/venue enums used across the pipeline.
package model
