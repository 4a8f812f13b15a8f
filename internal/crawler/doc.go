// Package crawler implements the single-site crawl: URL normalization, the
// frontier, the page processor, the crawl engine with checkpoint and resume,
// the per-language aggregator, and the document assembler and publisher.
//
// Network, storage and LLM access sit behind the interfaces in
// interfaces.go; concrete implementations live in sibling packages and are
// wired together by cmd.
package crawler
