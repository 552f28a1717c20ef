package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// evalLog appends one CSV row per evaluation and keeps the best candidate.
type evalLog struct {
	f *os.File
	w *csv.Writer

	count       int
	bestFitness float64
	bestParams  []float64
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	l := &evalLog{f: f, w: csv.NewWriter(f), bestFitness: 1e9}

	header := []string{"eval", "fitness", "viable", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write log header: %w", err)
	}
	return l, nil
}

// record logs the clamped values actually run and reports whether they
// are the best so far.
func (l *evalLog) record(values []float64, fitness, viable, quality float64) bool {
	l.count++
	improved := fitness < l.bestFitness
	if improved {
		l.bestFitness = fitness
		l.bestParams = append(l.bestParams[:0], values...)
	}

	row := make([]string, 0, 4+len(values))
	row = append(row,
		strconv.Itoa(l.count),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(viable, 'f', 3, 64),
		strconv.FormatFloat(quality, 'f', 4, 64),
	)
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 0, 64))
	}
	l.w.Write(row)
	l.w.Flush()
	return improved
}

func (l *evalLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
