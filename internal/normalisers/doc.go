// Package normalisers provides implementations of the Normaliser interface
// for the accepted upload formats. Each normaliser knows how to extract text
// content from a specific MIME type.
//
// Normalisers are registered with the Registry at startup; the registry
// picks the highest-priority normaliser that supports a document's MIME type.
package normalisers
