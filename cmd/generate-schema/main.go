package main

import (
	"flag"
	"os"

	"github.com/m-lab/go/cloud/bqx"
	"github.com/m-lab/go/rtx"

	"cloud.google.com/go/bigquery"

	"github.com/edgebench/edgebench/pkg/model"
)

var benchmarkSchema string

func init() {
	flag.StringVar(&benchmarkSchema, "benchmark", "/var/spool/datatypes/benchmark.json", "filename to write benchmark schema")
}

func main() {
	flag.Parse()
	// Generate and save the benchmark schema for autoloading.
	result := model.ArchivalData{}
	sch, err := bigquery.InferSchema(result)
	rtx.Must(err, "failed to generate benchmark schema")
	sch = bqx.RemoveRequired(sch)
	b, err := sch.ToJSONFields()
	rtx.Must(err, "failed to marshal benchmark schema")
	err = os.WriteFile(benchmarkSchema, b, 0o644)
	rtx.Must(err, "failed to write benchmark schema")
}
