// Package persistence handles the archival of benchmark results to disk.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"
)

// DataFile is a data file saved on disk, containing the JSON serialization
// of a benchmark result.
type DataFile struct {
	// Prefix is the root folder.
	Prefix string
	// Datatype is the data type (e.g. "benchmark").
	Datatype string
	// MeasurementID is the unique identifier of the run this file holds.
	MeasurementID string
	// Path is the complete path of the file on disk.
	Path string
	// Size is the number of bytes written.
	Size int
}

// WriteDataFile writes result to a date-partitioned JSON file under prefix
// and returns the corresponding DataFile.
//
// The generated path is
// <prefix>/<datatype>/yyyy/mm/dd/<datatype>-<timestamp>.<mid>.json.
func WriteDataFile(prefix, datatype, measurementID string, result any) (*DataFile, error) {
	timestamp := time.Now()
	dir := path.Join(prefix, datatype, timestamp.Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data directory: %w", err)
	}
	filepath := path.Join(dir, datatype+"-"+
		timestamp.Format("20060102T150405.000000000Z")+"."+measurementID+".json")

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal result: %w", err)
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return nil, fmt.Errorf("cannot write data file: %w", err)
	}
	return &DataFile{
		Prefix:        prefix,
		Datatype:      datatype,
		MeasurementID: measurementID,
		Path:          filepath,
		Size:          len(data),
	}, nil
}
