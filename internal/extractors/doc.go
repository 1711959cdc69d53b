// Package extractors provides content extraction for each document
// source type and the registry that dispatches on it.
//
// Every extractor implements the same contract: bytes in, normalised
// text plus ordered positional anchors out. Text and markdown pass the
// content through (markdown additionally detects section headings), PDF
// extracts page by page, audio transcribes into time-aligned segments,
// and web/image degrade to metadata-only extraction.
package extractors
