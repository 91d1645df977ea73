// Package llm provides the language model collaborator of the classification
// pipeline. It supports OpenAI and Anthropic over plain HTTP, with rate
// limiting and retry, and turns their JSON answers into extraction results
// and regex triples.
package llm
