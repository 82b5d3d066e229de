package mpt

import "github.com/prometheus/client_golang/prometheus"

// Metrics for monitoring service.
var (
	// nodeReads is the number of nodes read from the KV store.
	nodeReads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes read from the store",
			Name:      "node_reads_total",
			Namespace: "ethmpt",
		},
	)
	// nodeWrites is the number of nodes written into the KV store.
	nodeWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes written to the store",
			Name:      "node_writes_total",
			Namespace: "ethmpt",
		},
	)
	nodeCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node cache hits",
			Name:      "node_cache_hits_total",
			Namespace: "ethmpt",
		},
	)
	nodeCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node cache misses",
			Name:      "node_cache_misses_total",
			Namespace: "ethmpt",
		},
	)
	// trieCommits is the number of successful trie commits.
	trieCommits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie commits",
			Name:      "trie_commits_total",
			Namespace: "ethmpt",
		},
	)
)

func init() {
	prometheus.MustRegister(
		nodeReads,
		nodeWrites,
		nodeCacheHits,
		nodeCacheMisses,
		trieCommits,
	)
}
