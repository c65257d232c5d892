// Package reporting renders the outcome of a smokectl run.
//
// ConsoleReporter prints the summary table that closes every run:
//
//	--- Results ---
//	  postgres   PASS  postgres-nodeport:5432        1 attempt   0.3s
//	  minio      FAIL  minio:443 (fallback)          24 attempts  2m0s  probe failed: ...
//	One or more component checks failed: minio
//
// Metrics exports the same report as Prometheus gauges through the
// node_exporter textfile format, so a cron-driven smokectl can be scraped
// without running a server.
package reporting
