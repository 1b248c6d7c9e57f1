package job

import (
	"strconv"

	"github.com/tigerroll/dimtime/internal/calendar"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/component/step/writer"
)

// Record is the parquet layout of one time-dimension row. Column order is part of the table contract.
type Record struct {
	SequenceID int64 `parquet:"name=sequence_id, type=INT64"`
	Timestamp  int64 `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Hour       int32 `parquet:"name=hour, type=INT32"`
	Day        int32 `parquet:"name=day, type=INT32"`
	Month      int32 `parquet:"name=month, type=INT32"`
	Year       int32 `parquet:"name=year, type=INT32"`
	Quarter    int32 `parquet:"name=quarter, type=INT32"`
	HalfYear   int32 `parquet:"name=half_year, type=INT32"`
}

// Schema is Record in catalog terms.
var Schema = []catalog.Column{
	{Name: "sequence_id", Type: "bigint"},
	{Name: "timestamp", Type: "timestamp"},
	{Name: "hour", Type: "int"},
	{Name: "day", Type: "int"},
	{Name: "month", Type: "int"},
	{Name: "year", Type: "int"},
	{Name: "quarter", Type: "int"},
	{Name: "half_year", Type: "int"},
}

// toRecords converts rows, attaching (partition_year, partition_month, partition_day) as partition values.
func toRecords(rows []calendar.Row) []writer.PartitionedRecord[Record] {
	out := make([]writer.PartitionedRecord[Record], len(rows))
	for i, r := range rows {
		out[i] = writer.PartitionedRecord[Record]{
			Values: []string{strconv.Itoa(r.PartitionYear), strconv.Itoa(r.PartitionMonth), strconv.Itoa(r.PartitionDay)},
			Record: Record{
				SequenceID: r.SequenceID,
				Timestamp:  r.Timestamp.UnixMilli(),
				Hour:       int32(r.Hour),
				Day:        int32(r.Day),
				Month:      int32(r.Month),
				Year:       int32(r.Year),
				Quarter:    int32(r.Quarter),
				HalfYear:   int32(r.HalfYear),
			},
		}
	}
	return out
}
