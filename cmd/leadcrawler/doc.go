// Package main hosts the leadcrawler executable.
//
// Architecture overview:
//   - Staging: `leadcrawler ingest leads.xlsx` maps spreadsheet headers onto the law_leads_final
//     columns and inserts new rows as pending. Existing apollo_ids are left untouched.
//   - Feeder & queue: `leadcrawler run` scans pending leads in apollo_id order into a bounded in-memory
//     queue sized by worker.queue_depth. A fixed pool of worker.concurrency workers drains it.
//   - Claim: each worker moves its lead pending -> in_progress with one conditional UPDATE. Losing that
//     race means another process owns the lead and the worker moves on.
//   - Crawl: the extractor fetches the root page through the configured fetcher (headless Chromium by
//     default, plain HTTP via Colly with fetch.mode=http), then the highest ranked same-host links such as
//     /contact or /attorneys, up to extract.max_pages pages. Addresses are normalized and filtered.
//   - Persist: the website resolves to one law_firms row, addresses are inserted into extracted_emails with
//     ON CONFLICT DO NOTHING, and the lead is marked completed. Fetch or storage failures mark it failed
//     with last_error.
//   - Recovery: a reaper returns claims older than worker.stale_after to pending. `leadcrawler retry`
//     returns failed leads to pending.
//
// Quick checklist:
//   - Configure LEADS_STORE_DSN (or DATABASE_URL), then run `leadcrawler migrate`.
//   - Dry run without a database: LEADS_STORE_DRIVER=memory leadcrawler run --once --ingest leads.csv.
//   - Operator endpoints (/healthz, /readyz, /metrics, /v1/leads/...) listen on server.port while run is active.
package main
