// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for PGO profile generation. They cover
// the hot paths of a bundle resolution:
//   - manifest decoding and schema validation
//   - dependency ordering and descriptor merging
//   - snapshot writes and reads
//   - the full load pipeline, cold and from cache
//
// To generate a PGO profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
