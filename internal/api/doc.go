// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/leads/stats for counts per processing status.
//   - GET /v1/leads/{apollo_id} for a lead and the addresses stored for its firm.
//   - POST /v1/leads/{apollo_id}/retry and POST /v1/leads/retry to return failed
//     leads to pending.
package api
