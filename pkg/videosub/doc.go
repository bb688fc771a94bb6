// Package videosub provides a reusable library for managing student video
// submissions: resumable uploads into pluggable storage backends, upload
// confirmation against backend processing state, and signed playback
// grants gated by a capability-based access table.
//
// It exposes a single Service interface that orchestrates upload session
// lifecycle (reserve, chunk transfer, confirm, cleanup), video record
// bookkeeping keyed by submission, and playback grant issuance.
// Implementations of repositories (memory, Postgres) and video stores
// (memory, S3, hosted TUS API) are provided under subpackages, as are the
// two grant issuers (CDN canned-policy URLs and RS256 bearer tokens).
//
// Upload Transport
//
// Files below the configured threshold use direct transport: the client
// receives a presigned endpoint and pushes bytes there itself. Larger
// files use chunked transport through the service, with strict offset
// sequencing so an interrupted transfer resumes exactly where the backend
// confirms it left off.
package videosub
