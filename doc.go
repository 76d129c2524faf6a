// Package simidx attaches similarity-search indexes to tabular row sets.
//
// Two index families are provided. VectorStore answers nearest-neighbor
// queries over dense vectors with pluggable backends (exact flat scan,
// inverted-file partitions, locality-sensitive hashing) selected through
// factory spec strings. DocumentStore answers relevance-ranked full-text
// queries through a rank.Client, either the in-process BM25 engine or a
// remote Elasticsearch-compatible service.
//
// Registry binds both families to a RowSet under one namespace so query
// results project back into the rows they were built from. Vector indexes
// snapshot to checksummed binary files or blob stores and round-trip
// losslessly.
package simidx
