// Package ingest loads candidate leads from spreadsheet exports into the
// staging table.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// DefaultInsertBatch is the number of candidates written per transaction.
const DefaultInsertBatch = 500

// Skip records a data row that could not become a candidate. Row is 1-based
// and counts the header.
type Skip struct {
	Row    int
	Reason string
}

// Result is the outcome of reading one file.
type Result struct {
	Candidates []lead.Candidate
	Skipped    []Skip
}

// Inserter stages candidates.
type Inserter interface {
	InsertCandidates(ctx context.Context, candidates []lead.Candidate) (int64, error)
}

// ReadFile dispatches on the file extension.
func ReadFile(path string) (Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	case ".csv":
		return ReadCSV(path)
	default:
		return Result{}, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// Insert writes candidates in batches and returns how many were new.
func Insert(ctx context.Context, ins Inserter, candidates []lead.Candidate, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatch
	}
	var total int64
	for chunk := range slices.Chunk(candidates, batchSize) {
		n, err := ins.InsertCandidates(ctx, chunk)
		total += n
		if err != nil {
			return total, fmt.Errorf("insert candidates: %w", err)
		}
	}
	return total, nil
}

// toCandidates maps rows under a header row. Rows without an id or website
// are skipped; duplicate ids keep the first occurrence.
func toCandidates(rows [][]string) (Result, error) {
	if len(rows) == 0 {
		return Result{}, eris.New("ingest: file has no header row")
	}
	cols := columnMap(rows[0])
	if !slices.Contains(cols, fieldApolloID) || !slices.Contains(cols, fieldWebsite) {
		return Result{}, eris.Errorf("ingest: header %q lacks an id or website column", rows[0])
	}

	var res Result
	seen := make(map[string]int)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		var c lead.Candidate
		for j, cell := range row {
			if j < len(cols) && cols[j] != 0 {
				cols[j].set(&c, strings.TrimSpace(cell))
			}
		}
		switch {
		case c.ApolloID == "":
			res.Skipped = append(res.Skipped, Skip{Row: rowNum, Reason: "missing apollo_id"})
			continue
		case c.Website == "":
			res.Skipped = append(res.Skipped, Skip{Row: rowNum, Reason: "missing website"})
			continue
		}
		if first, dup := seen[c.ApolloID]; dup {
			res.Skipped = append(res.Skipped, Skip{
				Row:    rowNum,
				Reason: fmt.Sprintf("duplicate apollo_id %s (first at row %d)", c.ApolloID, first),
			})
			continue
		}
		seen[c.ApolloID] = rowNum
		c.Status = lead.StatusPending
		res.Candidates = append(res.Candidates, c)
	}
	return res, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
