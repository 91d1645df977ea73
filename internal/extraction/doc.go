// Package extraction resolves payment fields (amount, store, card, category)
// from a single message body.
//
// Extraction is layered. A stored or generated regex triple is applied first,
// field by field; any field the regex cannot resolve falls back to a caller
// supplied value, which is normally derived by the lightweight heuristics in
// this package. A result is produced only when a positive amount can be
// resolved by some layer.
package extraction
